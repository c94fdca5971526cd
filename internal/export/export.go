// Package export renders schedule and service listings as xlsx workbooks
// and reads uploaded workbooks back into batch rows.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/ukydev/fieldops/internal/models"
	"github.com/ukydev/fieldops/internal/normalize"
	"github.com/xuri/excelize/v2"
)

// Column is one exported column: a header, a fixed width and a cell value.
type Column[T any] struct {
	Header string
	Width  float64
	Value  func(T) any
}

func date(t *time.Time) any {
	if t == nil || t.IsZero() {
		return ""
	}
	return normalize.FormatDate(*t)
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

// ScheduleColumns is the schedule export layout.
var ScheduleColumns = []Column[models.ScheduleView]{
	{"Chassi", 22, func(s models.ScheduleView) any { return s.VIN }},
	{"Placa", 10, func(s models.ScheduleView) any { return s.Plate }},
	{"Modelo", 18, func(s models.ScheduleView) any { return s.Model }},
	{"Tipo de Serviço", 16, func(s models.ScheduleView) any { return s.ServiceType.Label() }},
	{"Status", 12, func(s models.ScheduleView) any { return s.Status.Label() }},
	{"Cliente", 28, func(s models.ScheduleView) any { return s.ClientName }},
	{"Produto", 22, func(s models.ScheduleView) any { return s.ProductName }},
	{"Data Agendada", 14, func(s models.ScheduleView) any { return date(s.ScheduledDate) }},
	{"Prestador", 20, func(s models.ScheduleView) any { return s.Provider }},
	{"Número do Pedido", 16, func(s models.ScheduleView) any { return s.OrderNumber }},
	{"Endereço", 30, func(s models.ScheduleView) any { return s.Location.Address }},
	{"Cidade", 16, func(s models.ScheduleView) any { return s.Location.City }},
	{"Estado", 8, func(s models.ScheduleView) any { return s.Location.State }},
	{"Responsável", 20, func(s models.ScheduleView) any { return s.Location.ResponsibleName }},
	{"Telefone do Responsável", 18, func(s models.ScheduleView) any { return s.Location.ResponsiblePhone }},
	{"Observações", 40, func(s models.ScheduleView) any { return s.Notes }},
	{"Criado por", 20, func(s models.ScheduleView) any { return s.CreatedBy }},
	{"Criado em", 14, func(s models.ScheduleView) any { return date(&s.CreatedAt) }},
}

// ServiceColumns is the service export layout.
var ServiceColumns = []Column[models.ServiceView]{
	{"Chassi", 22, func(s models.ServiceView) any { return s.VIN }},
	{"Placa", 10, func(s models.ServiceView) any { return s.Plate }},
	{"Modelo", 18, func(s models.ServiceView) any { return s.Model }},
	{"Tipo de Serviço", 16, func(s models.ServiceView) any { return s.ServiceType.Label() }},
	{"Status", 12, func(s models.ServiceView) any { return s.Status.Label() }},
	{"Cliente", 28, func(s models.ServiceView) any { return s.ClientName }},
	{"Produto", 22, func(s models.ServiceView) any { return s.ProductName }},
	{"Data do Serviço", 14, func(s models.ServiceView) any { return date(&s.CreatedAt) }},
	{"Prestador", 20, func(s models.ServiceView) any { return s.Provider }},
	{"Técnico", 20, func(s models.ServiceView) any { return s.Technician }},
	{"ID do Dispositivo", 18, func(s models.ServiceView) any { return s.DeviceID }},
	{"Dispositivo Secundário", 18, func(s models.ServiceView) any { return s.SecondaryDevice }},
	{"Local de Instalação", 20, func(s models.ServiceView) any { return s.InstallationLocation }},
	{"Endereço do Serviço", 30, func(s models.ServiceView) any { return s.ServiceAddress }},
	{"Odômetro", 10, func(s models.ServiceView) any { return s.Odometer }},
	{"Bloqueio", 10, func(s models.ServiceView) any { return yesNo(s.BlockingEnabled) }},
	{"Protocolo", 16, func(s models.ServiceView) any { return s.ProtocolNumber }},
	{"Observações da Validação", 40, func(s models.ServiceView) any { return s.ValidationNotes }},
	{"Validado por", 20, func(s models.ServiceView) any { return s.ValidatedBy }},
	{"Origem", 12, func(s models.ServiceView) any { return s.Source.Label() }},
}

// Sheet names.
const (
	ScheduleSheet = "Agendamentos"
	ServiceSheet  = "Serviços"
)

// WriteSchedules renders schedules to w as an xlsx workbook.
func WriteSchedules(w io.Writer, schedules []models.ScheduleView) error {
	return Write(w, ScheduleSheet, ScheduleColumns, schedules)
}

// WriteServices renders services to w as an xlsx workbook.
func WriteServices(w io.Writer, services []models.ServiceView) error {
	return Write(w, ServiceSheet, ServiceColumns, services)
}

// Write renders items under a styled, frozen header row.
func Write[T any](w io.Writer, sheet string, columns []Column[T], items []T) error {
	headers := make([]string, len(columns))
	widths := make([]float64, len(columns))
	for i, c := range columns {
		headers[i] = c.Header
		widths[i] = c.Width
	}
	f, err := newWorkbook(sheet, headers, widths)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	for r, item := range items {
		values := make([]any, len(columns))
		for i, c := range columns {
			values[i] = c.Value(item)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// newWorkbook creates a single-sheet workbook holding only the header row.
func newWorkbook(sheet string, headers []string, widths []float64) (*excelize.File, error) {
	f := excelize.NewFile()
	fail := func(err error) (*excelize.File, error) {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fail(fmt.Errorf("rename sheet: %w", err))
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fail(fmt.Errorf("header style: %w", err))
	}
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fail(fmt.Errorf("write header: %w", err))
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fail(err)
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fail(fmt.Errorf("column width: %w", err))
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return fail(err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fail(fmt.Errorf("header style: %w", err))
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fail(fmt.Errorf("freeze header: %w", err))
	}
	return f, nil
}

// Filename is the download name for an export of kind taken at t.
func Filename(kind string, t time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", kind, t.Format("2006-01-02"))
}
