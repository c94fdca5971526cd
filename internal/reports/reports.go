// Package reports builds the operational dashboard from grouped counts.
package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fieldops/internal/models"
	"github.com/ukydev/fieldops/internal/normalize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Query is the raw filter as it arrives from the request.
type Query struct {
	StartDate string
	EndDate   string
	ClientID  string
}

// AppliedFilters echoes which filters took effect.
type AppliedFilters struct {
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	ClientID        string     `json:"clientId,omitempty"`
	ClientIDIgnored bool       `json:"clientIdIgnored,omitempty"`
}

// TypeBuckets holds one count per canonical service type.
type TypeBuckets struct {
	Installation int64 `json:"installation"`
	Maintenance  int64 `json:"maintenance"`
	Removal      int64 `json:"removal"`
}

func (b *TypeBuckets) add(t models.ServiceType, n int64) {
	switch t {
	case models.ServiceInstallation:
		b.Installation += n
	case models.ServiceMaintenance:
		b.Maintenance += n
	case models.ServiceRemoval:
		b.Removal += n
	}
}

// StatusSummary counts schedules per status. Pendentes is criado + agendado.
type StatusSummary struct {
	Total     int64 `json:"total"`
	Pendentes int64 `json:"pendentes"`
	Criado    int64 `json:"criado"`
	Agendado  int64 `json:"agendado"`
	Concluido int64 `json:"concluido"`
	Atrasado  int64 `json:"atrasado"`
	Cancelado int64 `json:"cancelado"`
}

// ClientRow is one line of a per-client pivot. Total counts every record of
// the client, including service types outside the three buckets.
type ClientRow struct {
	ClientID string `json:"clientId"`
	Client   string `json:"client"`
	TypeBuckets
	Total int64 `json:"total"`
}

// ProviderRow is the pending count for one provider.
type ProviderRow struct {
	Provider string `json:"provider"`
	Total    int64  `json:"total"`
}

// PeriodRow is one month or day of the completed-services evolution.
type PeriodRow struct {
	Period string `json:"period"`
	TypeBuckets
	Total int64 `json:"total"`
}

// DailyReport is the per-client service count for a date window.
type DailyReport struct {
	From    time.Time   `json:"from"`
	To      time.Time   `json:"to"`
	Clients []ClientRow `json:"clients"`
	Totals  ClientRow   `json:"totals"`
}

// Report is the full dashboard payload.
type Report struct {
	Filters           AppliedFilters `json:"filters"`
	ServicesByType    TypeBuckets    `json:"servicesByType"`
	SchedulesByStatus StatusSummary  `json:"schedulesByStatus"`
	PendingByClient   []ClientRow    `json:"pendingByClient"`
	PendingByProvider []ProviderRow  `json:"pendingByProvider"`
	EvolutionByMonth  []PeriodRow    `json:"evolutionByMonth"`
	EvolutionByDay    []PeriodRow    `json:"evolutionByDay"`
	ReportDaily       DailyReport    `json:"reportDaily"`
}

// Builder assembles reports from a Source.
type Builder struct {
	src Source
	now func() time.Time
}

// NewBuilder returns a Builder over src.
func NewBuilder(src Source) *Builder {
	return &Builder{src: src, now: time.Now}
}

// ParseQuery turns request values into a Filter. A clientId that is not a
// valid id is dropped and flagged rather than rejected; unparseable dates are
// dropped. The end date is inclusive of its whole day.
func ParseQuery(q Query) (Filter, AppliedFilters) {
	var f Filter
	var applied AppliedFilters
	if t, ok := parseDay(q.StartDate); ok {
		f.From = &t
		applied.StartDate = &t
	}
	if t, ok := parseDay(q.EndDate); ok {
		end := t.AddDate(0, 0, 1)
		f.To = &end
		applied.EndDate = &t
	}
	if id := strings.TrimSpace(q.ClientID); id != "" {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			log.WithField("client_id", id).Warn("ignoring invalid clientId report filter")
			applied.ClientIDIgnored = true
		} else {
			f.ClientID = &oid
			applied.ClientID = oid.Hex()
		}
	}
	return f, applied
}

func parseDay(s string) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, ok := normalize.ParseDate(s)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// Build runs every section. Evolution is global and ignores the filter.
// The daily section uses the filter's window, or today when none is given.
func (b *Builder) Build(ctx context.Context, q Query) (Report, error) {
	f, applied := ParseQuery(q)
	report := Report{Filters: applied}

	byType, err := b.src.CompletedSchedulesByType(ctx, f)
	if err != nil {
		return report, fmt.Errorf("services by type: %w", err)
	}
	report.ServicesByType = BucketTypes(byType)

	byStatus, err := b.src.SchedulesByStatus(ctx, f)
	if err != nil {
		return report, fmt.Errorf("schedules by status: %w", err)
	}
	report.SchedulesByStatus = SummarizeStatus(byStatus)

	byClient, err := b.src.PendingSchedulesByClient(ctx, f)
	if err != nil {
		return report, fmt.Errorf("pending by client: %w", err)
	}
	report.PendingByClient = PivotClients(byClient)

	byProvider, err := b.src.PendingSchedulesByProvider(ctx, f)
	if err != nil {
		return report, fmt.Errorf("pending by provider: %w", err)
	}
	report.PendingByProvider = RankProviders(byProvider)

	monthly, err := b.src.CompletedServicesByPeriod(ctx, false)
	if err != nil {
		return report, fmt.Errorf("evolution by month: %w", err)
	}
	report.EvolutionByMonth = Periods(monthly, false)

	daily, err := b.src.CompletedServicesByPeriod(ctx, true)
	if err != nil {
		return report, fmt.Errorf("evolution by day: %w", err)
	}
	report.EvolutionByDay = Periods(daily, true)

	window := dailyWindow(f, b.now())
	services, err := b.src.ServicesByClient(ctx, window)
	if err != nil {
		return report, fmt.Errorf("daily report: %w", err)
	}
	report.ReportDaily = Daily(*window.From, *window.To, services)
	return report, nil
}

func dailyWindow(f Filter, now time.Time) Filter {
	w := f
	if w.From == nil && w.To == nil {
		y, m, d := now.Date()
		from := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		to := from.AddDate(0, 0, 1)
		w.From, w.To = &from, &to
		return w
	}
	if w.From == nil {
		from := w.To.AddDate(0, 0, -1)
		w.From = &from
	}
	if w.To == nil {
		to := w.From.AddDate(0, 0, 1)
		w.To = &to
	}
	return w
}

// BucketTypes folds raw type counts into the three canonical buckets.
func BucketTypes(counts []TypeCount) TypeBuckets {
	var b TypeBuckets
	for _, c := range counts {
		b.add(c.ServiceType, c.Count)
	}
	return b
}

// SummarizeStatus folds raw status counts into a StatusSummary.
func SummarizeStatus(counts []StatusCount) StatusSummary {
	var s StatusSummary
	for _, c := range counts {
		s.Total += c.Count
		switch c.Status {
		case models.StatusCreated:
			s.Criado += c.Count
		case models.StatusScheduled:
			s.Agendado += c.Count
		case models.StatusCompleted:
			s.Concluido += c.Count
		case models.StatusLate:
			s.Atrasado += c.Count
		case models.StatusCancelled:
			s.Cancelado += c.Count
		}
	}
	s.Pendentes = s.Criado + s.Agendado
	return s
}

// PivotClients turns (client, type) counts into one row per client, largest
// total first.
func PivotClients(counts []ClientTypeCount) []ClientRow {
	rows := []ClientRow{}
	index := map[primitive.ObjectID]int{}
	for _, c := range counts {
		i, ok := index[c.ClientID]
		if !ok {
			i = len(rows)
			index[c.ClientID] = i
			rows = append(rows, ClientRow{ClientID: c.ClientID.Hex(), Client: c.ClientName})
		}
		rows[i].add(c.ServiceType, c.Count)
		rows[i].Total += c.Count
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Total != rows[b].Total {
			return rows[a].Total > rows[b].Total
		}
		return rows[a].Client < rows[b].Client
	})
	return rows
}

// RankProviders orders provider counts, largest first. Empty providers are
// dropped.
func RankProviders(counts []ProviderCount) []ProviderRow {
	rows := []ProviderRow{}
	for _, c := range counts {
		if strings.TrimSpace(c.Provider) == "" {
			continue
		}
		rows = append(rows, ProviderRow{Provider: c.Provider, Total: c.Count})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Total != rows[b].Total {
			return rows[a].Total > rows[b].Total
		}
		return rows[a].Provider < rows[b].Provider
	})
	return rows
}

// Periods pivots period counts into chronological rows labelled YYYY-MM, or
// YYYY-MM-DD when daily.
func Periods(counts []PeriodCount, daily bool) []PeriodRow {
	rows := []PeriodRow{}
	index := map[string]int{}
	for _, c := range counts {
		label := fmt.Sprintf("%04d-%02d", c.Year, c.Month)
		if daily {
			label = fmt.Sprintf("%s-%02d", label, c.Day)
		}
		i, ok := index[label]
		if !ok {
			i = len(rows)
			index[label] = i
			rows = append(rows, PeriodRow{Period: label})
		}
		rows[i].add(c.ServiceType, c.Count)
		rows[i].Total += c.Count
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].Period < rows[b].Period })
	return rows
}

// Daily builds the per-client report for [from, to) with a totals row.
func Daily(from, to time.Time, counts []ClientTypeCount) DailyReport {
	clients := PivotClients(counts)
	totals := ClientRow{Client: "Total"}
	for _, r := range clients {
		totals.Installation += r.Installation
		totals.Maintenance += r.Maintenance
		totals.Removal += r.Removal
		totals.Total += r.Total
	}
	return DailyReport{From: from, To: to, Clients: clients, Totals: totals}
}
