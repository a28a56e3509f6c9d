package attendance

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkclass/internal/cache"
	"checkclass/internal/domain"
	"checkclass/internal/queue"
	"checkclass/internal/reports"
)

type memStore struct {
	mu        sync.Mutex
	recs      []domain.AttendanceRecord
	insertErr error
}

func (s *memStore) InsertAttendance(_ context.Context, rec domain.AttendanceRecord) (domain.AttendanceRecord, error) {
	if s.insertErr != nil {
		return domain.AttendanceRecord{}, s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = strconv.Itoa(len(s.recs) + 1)
	s.recs = append(s.recs, rec)
	return rec, nil
}

func (s *memStore) UpdateAttendanceMark(_ context.Context, id string, m domain.Mark, at time.Time) (domain.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recs {
		if s.recs[i].ID == id {
			s.recs[i] = s.recs[i].WithMark(m)
			s.recs[i].UpdatedAt = at
			return s.recs[i], nil
		}
	}
	return domain.AttendanceRecord{}, domain.NotFound("attendance record %s not found", id)
}

var t0 = time.Date(2023, 5, 10, 10, 5, 0, 0, time.UTC)

func scan() Scan {
	return Scan{StudentID: "3", StudentName: "Juan Pérez", ClassID: "math101", ClassName: "Matemáticas 101", TeacherLabel: "Prof. García"}
}

func TestRecordAttendanceStoresPresent(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	mirror := cache.NewMirror(cache.NewMemory())
	events := queue.NewInMemory(4)
	r := NewRecorder(st, WithMirror(mirror), WithEvents(events), WithLocation(time.UTC))

	rec, err := r.RecordAttendance(ctx, scan(), t0)
	require.NoError(t, err)
	assert.Equal(t, "1", rec.ID)
	assert.Equal(t, domain.StatusPresent, rec.Status)
	assert.Empty(t, rec.Reason)
	assert.Equal(t, "2023-05-10", rec.Date)
	assert.Equal(t, "10:05", rec.Time)
	assert.Equal(t, "Prof. García", rec.Teacher)

	mirrored, err := mirror.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.AttendanceRecord{rec}, mirrored)

	ch, err := events.Consume(ctx)
	require.NoError(t, err)
	msg := <-ch
	assert.Equal(t, queue.TypeAttendanceRecorded, msg.Type)
}

func TestRecordAttendanceUsesLocation(t *testing.T) {
	lima := time.FixedZone("PET", -5*60*60)
	r := NewRecorder(&memStore{}, WithLocation(lima))
	rec, err := r.RecordAttendance(context.Background(), scan(), time.Date(2023, 5, 11, 2, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2023-05-10", rec.Date)
	assert.Equal(t, "21:30", rec.Time)
}

func TestRecordAttendanceDefaultsTeacherLabel(t *testing.T) {
	s := scan()
	s.TeacherLabel = ""
	rec, err := NewRecorder(&memStore{}).RecordAttendance(context.Background(), s, t0)
	require.NoError(t, err)
	assert.Equal(t, "Profesor no especificado", rec.Teacher)
}

func TestRecordAttendanceStoreFailureLeavesMirror(t *testing.T) {
	ctx := context.Background()
	mirror := cache.NewMirror(cache.NewMemory())
	prior := domain.AttendanceRecord{ID: "old", StudentID: "4", ClassID: "physics201", Status: domain.StatusLate}
	require.NoError(t, mirror.ReplaceRecords(ctx, []domain.AttendanceRecord{prior}))

	r := NewRecorder(&memStore{insertErr: errors.New("connection refused")}, WithMirror(mirror))
	_, err := r.RecordAttendance(ctx, scan(), t0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	mirrored, err := mirror.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.AttendanceRecord{prior}, mirrored)
}

func TestRecordAttendanceRequiresStudentAndClass(t *testing.T) {
	s := scan()
	s.ClassID = " "
	_, err := NewRecorder(&memStore{}).RecordAttendance(context.Background(), s, t0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecordedAttendanceFeedsClassStats(t *testing.T) {
	st := &memStore{}
	_, err := NewRecorder(st).RecordAttendance(context.Background(), scan(), t0)
	require.NoError(t, err)

	g := reports.GroupByClass(st.recs)
	require.Contains(t, g, "math101")
	assert.Equal(t, 1, g["math101"].Total)
	assert.Equal(t, 1, g["math101"].Present)
	assert.Equal(t, 100, g["math101"].Percentage)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	mirror := cache.NewMirror(cache.NewMemory())
	r := NewRecorder(st, WithMirror(mirror))
	rec, err := r.RecordAttendance(ctx, scan(), t0)
	require.NoError(t, err)

	m, err := domain.ParseMark("Ausente", "Cita médica")
	require.NoError(t, err)
	later := t0.Add(time.Hour)
	upd, err := r.UpdateStatus(ctx, rec.ID, m, later)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbsent, upd.Status)
	assert.Equal(t, "Cita médica", upd.Reason)
	assert.Equal(t, rec.Date, upd.Date)
	assert.Equal(t, rec.Time, upd.Time)
	assert.Equal(t, later, upd.UpdatedAt)

	mirrored, err := mirror.Records(ctx)
	require.NoError(t, err)
	require.Len(t, mirrored, 1)
	assert.Equal(t, domain.StatusAbsent, mirrored[0].Status)

	upd, err = r.UpdateStatus(ctx, rec.ID, domain.Late(), later)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLate, upd.Status)
	assert.Empty(t, upd.Reason)
}

func TestUpdateStatusRejections(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(&memStore{})

	_, err := domain.ParseMark("Ausente", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.UpdateStatus(ctx, "1", domain.Mark{}, t0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.UpdateStatus(ctx, "", domain.Present(), t0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = r.UpdateStatus(ctx, "missing", domain.Present(), t0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordMarkKeepsReason(t *testing.T) {
	m, err := domain.Absent("Cita médica")
	require.NoError(t, err)
	r := NewRecorder(&memStore{}, WithLocation(time.UTC))
	rec, err := r.RecordMark(context.Background(), scan(), m, t0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbsent, rec.Status)
	assert.Equal(t, "Cita médica", rec.Reason)

	_, err = r.RecordMark(context.Background(), scan(), domain.Mark{}, t0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConcurrentRecordsAllReachMirror(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	mirror := cache.NewMirror(cache.NewMemory())
	r := NewRecorder(st, WithMirror(mirror), WithLocation(time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.RecordAttendance(ctx, scan(), t0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mirrored, err := mirror.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, mirrored, 300)
	assert.Len(t, st.recs, 300)
}
