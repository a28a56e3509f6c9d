// Package attendance turns accepted scans and teacher corrections into durable attendance
// records.
package attendance

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"checkclass/internal/domain"
	"checkclass/internal/queue"
)

// Store is the durable side of the recorder.
type Store interface {
	InsertAttendance(ctx context.Context, rec domain.AttendanceRecord) (domain.AttendanceRecord, error)
	UpdateAttendanceMark(ctx context.Context, id string, m domain.Mark, at time.Time) (domain.AttendanceRecord, error)
}

// Mirror is a local copy of the records, updated only after the store accepted a write.
type Mirror interface {
	AppendRecord(ctx context.Context, rec domain.AttendanceRecord) error
	UpdateRecord(ctx context.Context, rec domain.AttendanceRecord) error
}

// Recorder writes attendance through the store and reflects it in the mirror.
type Recorder struct {
	store  Store
	mirror Mirror
	events queue.Publisher
	loc    *time.Location
	log    *zap.Logger
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithMirror sets the local mirror.
func WithMirror(m Mirror) Option { return func(r *Recorder) { r.mirror = m } }

// WithEvents publishes recorded and updated events.
func WithEvents(p queue.Publisher) Option { return func(r *Recorder) { r.events = p } }

// WithLocation sets the zone used to derive record date and time. Defaults to time.Local.
func WithLocation(loc *time.Location) Option { return func(r *Recorder) { r.loc = loc } }

// Location is the zone record dates are derived in.
func (r *Recorder) Location() *time.Location { return r.loc }

func WithLogger(l *zap.Logger) Option { return func(r *Recorder) { r.log = l } }

func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store, loc: time.Local, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scan identifies who attended which class, as established by a validated QR scan.
type Scan struct {
	StudentID    string
	StudentName  string
	ClassID      string
	ClassName    string
	TeacherLabel string
}

// RecordAttendance stores a Present record for the scan. When the store rejects the write the
// mirror is left untouched and a persistence error is returned.
func (r *Recorder) RecordAttendance(ctx context.Context, s Scan, now time.Time) (domain.AttendanceRecord, error) {
	return r.RecordMark(ctx, s, domain.Present(), now)
}

// RecordMark stores a record carrying m, dated at now. Teachers use it to enter attendance
// by hand.
func (r *Recorder) RecordMark(ctx context.Context, s Scan, m domain.Mark, now time.Time) (domain.AttendanceRecord, error) {
	if strings.TrimSpace(s.StudentID) == "" || strings.TrimSpace(s.ClassID) == "" {
		return domain.AttendanceRecord{}, domain.Invalid("student and class are required")
	}
	if m.IsZero() {
		return domain.AttendanceRecord{}, domain.Invalid("status is required")
	}
	local := now.In(r.loc)
	rec := domain.AttendanceRecord{
		StudentID:   s.StudentID,
		StudentName: s.StudentName,
		ClassID:     s.ClassID,
		ClassName:   s.ClassName,
		Date:        local.Format(domain.DateLayout),
		Time:        local.Format(domain.TimeLayout),
		Teacher:     s.TeacherLabel,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}.WithMark(m)
	if rec.Teacher == "" {
		rec.Teacher = "Profesor no especificado"
	}

	saved, err := r.store.InsertAttendance(ctx, rec)
	if err != nil {
		r.log.Error("attendance write failed", zap.String("student_id", s.StudentID), zap.String("class_id", s.ClassID), zap.Error(err))
		return domain.AttendanceRecord{}, domain.Persistence("could not register attendance", err)
	}
	if r.mirror != nil {
		if err := r.mirror.AppendRecord(ctx, saved); err != nil {
			r.log.Warn("attendance mirror append failed", zap.String("record_id", saved.ID), zap.Error(err))
		}
	}
	r.publish(ctx, queue.TypeAttendanceRecorded, saved)
	return saved, nil
}

// UpdateStatus applies a teacher correction. Only status and reason change.
func (r *Recorder) UpdateStatus(ctx context.Context, recordID string, m domain.Mark, now time.Time) (domain.AttendanceRecord, error) {
	if strings.TrimSpace(recordID) == "" {
		return domain.AttendanceRecord{}, domain.Invalid("record id is required")
	}
	if m.IsZero() {
		return domain.AttendanceRecord{}, domain.Invalid("status is required")
	}
	rec, err := r.store.UpdateAttendanceMark(ctx, recordID, m, now.UTC())
	if err != nil {
		return domain.AttendanceRecord{}, domain.Persistence("could not update attendance", err)
	}
	if r.mirror != nil {
		if err := r.mirror.UpdateRecord(ctx, rec); err != nil {
			r.log.Warn("attendance mirror update failed", zap.String("record_id", rec.ID), zap.Error(err))
		}
	}
	r.publish(ctx, queue.TypeAttendanceUpdated, rec)
	return rec, nil
}

func (r *Recorder) publish(ctx context.Context, typ string, rec domain.AttendanceRecord) {
	if r.events == nil {
		return
	}
	msg, err := queue.NewMessage(typ, rec)
	if err != nil {
		return
	}
	if err := r.events.Publish(ctx, msg); err != nil {
		r.log.Warn("publish event failed", zap.String("type", typ), zap.Error(err))
	}
}
