package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fieldops/internal/batch"
	"github.com/ukydev/fieldops/internal/models"
	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, buf *bytes.Buffer) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteSchedules(t *testing.T) {
	scheduled := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	views := []models.ScheduleView{{
		Schedule: models.Schedule{
			VIN:           "9BWZZZ377VT004251",
			Plate:         "ABC1D23",
			ServiceType:   models.ServiceMaintenance,
			Status:        models.StatusCompleted,
			ScheduledDate: &scheduled,
		},
		ClientName: "Acme Transportes",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteSchedules(&buf, views))

	f := openWorkbook(t, &buf)
	assert.Equal(t, []string{ScheduleSheet}, f.GetSheetList())

	rows, err := f.GetRows(ScheduleSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Chassi", rows[0][0])
	assert.Equal(t, "9BWZZZ377VT004251", rows[1][0])
	assert.Equal(t, "Manutenção", rows[1][3])
	assert.Equal(t, "Concluído", rows[1][4])
	assert.Equal(t, "Acme Transportes", rows[1][5])
	assert.Equal(t, "05/03/2024", rows[1][7])

	width, err := f.GetColWidth(ScheduleSheet, "A")
	require.NoError(t, err)
	assert.Equal(t, 22.0, width)

	panes, err := f.GetPanes(ScheduleSheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
}

func TestWriteServices_Labels(t *testing.T) {
	views := []models.ServiceView{{
		Service: models.Service{
			VIN:             "VIN1",
			ServiceType:     models.ServiceRemoval,
			Status:          models.StatusCompleted,
			BlockingEnabled: true,
			Source:          models.SourceImport,
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteServices(&buf, views))

	rows, err := openWorkbook(t, &buf).GetRows(ServiceSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, "Remoção", row[3])
	assert.Equal(t, "Sim", row[15])
	assert.Equal(t, "Importação", row[19])
}

func TestWriteSchedules_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchedules(&buf, nil))

	rows, err := openWorkbook(t, &buf).GetRows(ScheduleSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReadRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, "Importar", batch.ScheduleColumns))

	f := openWorkbook(t, &buf)
	require.NoError(t, f.SetSheetRow("Importar", "A2", &[]any{"VIN1", "", "Onix", "Instalação", "Acme"}))
	require.NoError(t, f.SetSheetRow("Importar", "A4", &[]any{"VIN2", "XYZ9A87", "HB20", "remoção", "Globex"}))
	require.NoError(t, f.SetCellValue("Importar", "G4", 45000))

	var edited bytes.Buffer
	require.NoError(t, f.Write(&edited))

	rows, lines, err := ReadRows(&edited, batch.ScheduleColumns)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []int{2, 4}, lines, "blank sheet row 3 keeps its number")
	assert.Equal(t, "VIN1", rows[0].String("vin"))
	assert.False(t, rows[0].Has("plate"))
	assert.Equal(t, "Instalação", rows[0].String("serviceType"))
	assert.Equal(t, "Globex", rows[1].String("client"))
	assert.Equal(t, "45000", rows[1].String("scheduledDate"))
}

func TestReadRows_NotAWorkbook(t *testing.T) {
	_, _, err := ReadRows(bytes.NewBufferString("vin,model\n"), batch.ScheduleColumns)
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "agendamentos_2024-03-05.xlsx", Filename("agendamentos", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)))
}
