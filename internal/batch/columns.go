package batch

import (
	"maps"
	"slices"

	"github.com/ukydev/fieldops/internal/normalize"
)

// Column describes one spreadsheet column and the row key it feeds.
type Column struct {
	Key     string
	Header  string
	Aliases []string
}

// ScheduleColumns are the columns a schedule import understands, in template order.
var ScheduleColumns = []Column{
	{Key: "vin", Header: "Chassi", Aliases: []string{"vin", "chassis"}},
	{Key: "plate", Header: "Placa", Aliases: []string{"plate"}},
	{Key: "model", Header: "Modelo", Aliases: []string{"model", "veiculo", "modelo do veiculo"}},
	{Key: "serviceType", Header: "Tipo de Serviço", Aliases: []string{"tipo", "servico", "service type", "service_type"}},
	{Key: "client", Header: "Cliente", Aliases: []string{"client", "empresa"}},
	{Key: "product", Header: "Produto", Aliases: []string{"product", "equipamento"}},
	{Key: "scheduledDate", Header: "Data Agendada", Aliases: []string{"data", "data do agendamento", "scheduled date", "scheduled_date"}},
	{Key: "status", Header: "Status", Aliases: []string{"situacao"}},
	{Key: "provider", Header: "Prestador", Aliases: []string{"provider", "fornecedor"}},
	{Key: "orderNumber", Header: "Número do Pedido", Aliases: []string{"pedido", "order number", "os", "ordem de servico"}},
	{Key: "notes", Header: "Observações", Aliases: []string{"observacao", "obs", "notes"}},
	{Key: "address", Header: "Endereço", Aliases: []string{"address"}},
	{Key: "city", Header: "Cidade", Aliases: []string{"city"}},
	{Key: "state", Header: "Estado", Aliases: []string{"uf", "state"}},
	{Key: "responsibleName", Header: "Responsável", Aliases: []string{"responsavel pelo local", "contato"}},
	{Key: "responsiblePhone", Header: "Telefone do Responsável", Aliases: []string{"telefone", "phone"}},
}

// ServiceColumns extend the schedule columns with validation fields.
var ServiceColumns = append(append([]Column{}, ScheduleColumns...),
	Column{Key: "date", Header: "Data do Serviço", Aliases: []string{"data de conclusao", "data da validacao", "service date"}},
	Column{Key: "deviceId", Header: "ID do Dispositivo", Aliases: []string{"dispositivo", "device", "device id", "imei"}},
	Column{Key: "technician", Header: "Técnico", Aliases: []string{"technician"}},
	Column{Key: "installationLocation", Header: "Local de Instalação", Aliases: []string{"installation location"}},
	Column{Key: "serviceAddress", Header: "Endereço do Serviço", Aliases: []string{"service address"}},
	Column{Key: "odometer", Header: "Odômetro", Aliases: []string{"km", "quilometragem"}},
	Column{Key: "blockingEnabled", Header: "Bloqueio", Aliases: []string{"bloqueio habilitado", "blocking"}},
	Column{Key: "protocolNumber", Header: "Protocolo", Aliases: []string{"numero do protocolo", "protocol"}},
	Column{Key: "validationNotes", Header: "Observações da Validação", Aliases: []string{"validation notes"}},
	Column{Key: "secondaryDevice", Header: "Dispositivo Secundário", Aliases: []string{"secondary device"}},
)

// Headers returns the display headers of columns, in order.
func Headers(columns []Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Header
	}
	return out
}

// CanonicalKey maps a header or loose key to a column key. Unknown names
// come back unchanged with ok=false.
func CanonicalKey(columns []Column, name string) (string, bool) {
	folded := normalize.Fold(name)
	if folded == "" {
		return name, false
	}
	for _, c := range columns {
		if folded == normalize.Fold(c.Key) || folded == normalize.Fold(c.Header) {
			return c.Key, true
		}
		for _, a := range c.Aliases {
			if folded == a {
				return c.Key, true
			}
		}
	}
	return name, false
}

// Canonicalize rewrites the keys of row to column keys. When several keys
// land on one column a non-blank value beats a blank one, then a key that
// already is the column key beats an alias, then the lowest key wins.
func Canonicalize(columns []Column, row Row) Row {
	out := make(Row, len(row))
	rank := make(map[string]int, len(row))
	for _, k := range slices.Sorted(maps.Keys(row)) {
		v := row[k]
		ck, _ := CanonicalKey(columns, k)
		r := 0
		if !isBlank(v) {
			r += 2
		}
		if k == ck {
			r++
		}
		if prev, taken := rank[ck]; taken && r <= prev {
			continue
		}
		out[ck] = v
		rank[ck] = r
	}
	return out
}
