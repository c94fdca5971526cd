package models

// ServiceType is the category of field work on a vehicle.
type ServiceType string

const (
	ServiceInstallation ServiceType = "installation"
	ServiceMaintenance  ServiceType = "maintenance"
	ServiceRemoval      ServiceType = "removal"
)

// ServiceTypes lists the canonical service types in report column order.
var ServiceTypes = []ServiceType{ServiceInstallation, ServiceMaintenance, ServiceRemoval}

// ServiceTypeVocabulary maps accent-free lower-case fragments to the
// canonical type. Order matters: the first fragment found in the input wins.
var ServiceTypeVocabulary = []VocabularyEntry[ServiceType]{
	{Fragment: "instal", Value: ServiceInstallation},
	{Fragment: "manut", Value: ServiceMaintenance},
	{Fragment: "remo", Value: ServiceRemoval},
}

var serviceTypeLabels = map[ServiceType]string{
	ServiceInstallation: "Instalação",
	ServiceMaintenance:  "Manutenção",
	ServiceRemoval:      "Remoção",
}

// Label returns the Portuguese display string, or the raw value when unknown.
func (t ServiceType) Label() string {
	if l, ok := serviceTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// IsValid reports whether t is one of the canonical service types.
func (t ServiceType) IsValid() bool {
	_, ok := serviceTypeLabels[t]
	return ok
}

// Status is the lifecycle state of a Schedule.
type Status string

const (
	StatusCreated   Status = "criado"
	StatusScheduled Status = "agendado"
	StatusCompleted Status = "concluido"
	StatusLate      Status = "atrasado"
	StatusCancelled Status = "cancelado"
)

// Statuses lists every status value.
var Statuses = []Status{StatusCreated, StatusScheduled, StatusCompleted, StatusLate, StatusCancelled}

// PendingStatuses are the statuses counted as pending work.
var PendingStatuses = []Status{StatusCreated, StatusScheduled}

// StatusVocabulary maps accent-free lower-case fragments to a status.
var StatusVocabulary = []VocabularyEntry[Status]{
	{Fragment: "conclu", Value: StatusCompleted},
	{Fragment: "agenda", Value: StatusScheduled},
	{Fragment: "cria", Value: StatusCreated},
	{Fragment: "atrasa", Value: StatusLate},
	{Fragment: "cancel", Value: StatusCancelled},
}

var statusLabels = map[Status]string{
	StatusCreated:   "Criado",
	StatusScheduled: "Agendado",
	StatusCompleted: "Concluído",
	StatusLate:      "Atrasado",
	StatusCancelled: "Cancelado",
}

// Label returns the Portuguese display string, or the raw value when unknown.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsPending reports whether s counts as pending work.
func (s Status) IsPending() bool {
	return s == StatusCreated || s == StatusScheduled
}

// ServiceSource records how a Service document came to exist.
type ServiceSource string

const (
	SourceValidation ServiceSource = "validation"
	SourceImport     ServiceSource = "import"
	SourceLegacy     ServiceSource = "legacy"
)

var sourceLabels = map[ServiceSource]string{
	SourceValidation: "Validação",
	SourceImport:     "Importação",
	SourceLegacy:     "Legado",
}

// Label returns the Portuguese display string, or the raw value when unknown.
func (s ServiceSource) Label() string {
	if l, ok := sourceLabels[s]; ok {
		return l
	}
	return string(s)
}

// VocabularyEntry pairs an input fragment with the canonical value it means.
type VocabularyEntry[T ~string] struct {
	Fragment string
	Value    T
}
