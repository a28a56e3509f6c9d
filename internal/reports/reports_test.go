package reports

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"checkclass/internal/domain"
)

func rec(id, classID, date string, st domain.Status) domain.AttendanceRecord {
	return domain.AttendanceRecord{
		ID: id, StudentID: "3", StudentName: "Juan Pérez", ClassID: classID, ClassName: classID + " name",
		Date: date, Time: "10:05", Status: st, Teacher: "Prof. García",
	}
}

// fixture mirrors the five demo records.
func fixture() []domain.AttendanceRecord {
	return []domain.AttendanceRecord{
		rec("1", "math101", "2023-05-10", domain.StatusPresent),
		rec("2", "math101", "2023-05-10", domain.StatusPresent),
		rec("3", "physics201", "2023-05-11", domain.StatusLate),
		rec("4", "math101", "2023-05-11", domain.StatusPresent),
		rec("5", "math101", "2023-05-11", domain.StatusPresent),
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil))
	assert.Equal(t, Stats{}, ComputeStats([]domain.AttendanceRecord{}))
}

func TestComputeStatsSeventyFivePercent(t *testing.T) {
	absent := rec("4", "math101", "2023-05-12", domain.StatusAbsent)
	absent.Reason = "enfermo"
	s := ComputeStats([]domain.AttendanceRecord{
		rec("1", "math101", "2023-05-10", domain.StatusPresent),
		rec("2", "math101", "2023-05-10", domain.StatusPresent),
		rec("3", "math101", "2023-05-11", domain.StatusPresent),
		absent,
	})
	assert.Equal(t, Stats{Total: 4, Present: 3, Absent: 1, Percentage: 75}, s)
}

func TestPercentageRounds(t *testing.T) {
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 0, Percentage(5, 0))
	assert.Equal(t, 100, Percentage(7, 7))
}

func TestGroupByClass(t *testing.T) {
	g := GroupByClass(fixture())
	require.Len(t, g, 2)
	assert.Equal(t, ClassStats{ClassID: "math101", ClassName: "math101 name",
		Stats: Stats{Total: 4, Present: 4, Percentage: 100}}, g["math101"])
	assert.Equal(t, ClassStats{ClassID: "physics201", ClassName: "physics201 name",
		Stats: Stats{Total: 1, Late: 1, Percentage: 0}}, g["physics201"])
}

func TestGroupByMonthKeepsFirstAppearanceOrder(t *testing.T) {
	recs := []domain.AttendanceRecord{
		rec("1", "math101", "2023-06-01", domain.StatusPresent),
		rec("2", "math101", "2023-05-10", domain.StatusLate),
		rec("3", "math101", "2023-06-15", domain.StatusJustified),
		rec("4", "math101", "not-a-date", domain.StatusPresent),
		rec("5", "math101", "2024-05-10", domain.StatusPresent),
	}
	assert.Equal(t, []MonthBucket{
		{Label: "2023-06", Present: 1, Justified: 1},
		{Label: "2023-05", Late: 1},
		{Label: UnknownMonth, Present: 1},
		{Label: "2024-05", Present: 1},
	}, GroupByMonth(recs))
}

func TestFilterByStatusAndDateRange(t *testing.T) {
	c, err := ParseCriteria("2023-05-10", "2023-05-10", "Presente", "", "")
	require.NoError(t, err)
	got := Filter(fixture(), c)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func TestFilterPassThroughAndOrder(t *testing.T) {
	c, err := ParseCriteria("", "", "all", "all", "")
	require.NoError(t, err)
	got := Filter(fixture(), c)
	assert.Equal(t, fixture(), got)
}

func TestFilterInclusiveBoundsAndClass(t *testing.T) {
	c, err := ParseCriteria("2023-05-11", "", "", "math101", "")
	require.NoError(t, err)
	got := Filter(fixture(), c)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"4", "5"}, []string{got[0].ID, got[1].ID})

	c, err = ParseCriteria("", "2023-05-10", "", "", "")
	require.NoError(t, err)
	assert.Len(t, Filter(append(fixture(), rec("6", "x", "garbage", domain.StatusPresent)), c), 2)
}

func TestParseCriteriaErrors(t *testing.T) {
	_, err := ParseCriteria("10/05/2023", "", "", "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = ParseCriteria("", "", "Dormido", "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestClassesAndPreview(t *testing.T) {
	assert.Equal(t, []string{"math101", "physics201"}, Classes(fixture()))

	head, more := Preview(fixture(), 3)
	assert.Len(t, head, 3)
	assert.Equal(t, 2, more)
	head, more = Preview(fixture(), 10)
	assert.Len(t, head, 5)
	assert.Zero(t, more)
}

func TestWriteCSVKeepsInputOrder(t *testing.T) {
	recs := fixture()
	recs[0], recs[4] = recs[4], recs[0]
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, recs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{"Juan Pérez", "math101 name", "2023-05-11", "10:05", "Presente", "Prof. García", "N/A"}, rows[1])
	assert.Equal(t, "2023-05-10", rows[5][2])
}

func TestWriteXLSX(t *testing.T) {
	absent := rec("9", "math101", "2023-05-12", domain.StatusAbsent)
	absent.Reason = "Cita médica"
	absent.ClassName = ""
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []domain.AttendanceRecord{fixture()[0], absent}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "Presente", rows[1][4])
	assert.Equal(t, "math101", rows[2][1])
	assert.Equal(t, "Cita médica", rows[2][6])
}

func TestWritePDF(t *testing.T) {
	var recs []domain.AttendanceRecord
	for i := 0; i < 60; i++ {
		recs = append(recs, fixture()...)
	}
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, recs, time.Date(2023, 5, 12, 9, 0, 0, 0, time.UTC)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, WritePDF(&buf, nil, time.Now()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, "reporte_asistencia_2023-05-12.pdf", f.FileName(time.Date(2023, 5, 12, 0, 0, 0, 0, time.UTC)))
	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
