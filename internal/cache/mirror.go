package cache

import (
	"context"
	"sync"

	"checkclass/internal/domain"
)

// Mirror keeps offline copies of attendance records and users in a Cache. Writes made through
// one Mirror are serialized.
type Mirror struct {
	mu sync.Mutex
	c  Cache
}

func NewMirror(c Cache) *Mirror {
	return &Mirror{c: c}
}

// Records returns the mirrored attendance collection, empty when nothing was mirrored yet.
func (m *Mirror) Records(ctx context.Context) ([]domain.AttendanceRecord, error) {
	var recs []domain.AttendanceRecord
	if _, err := m.c.Get(ctx, KeyAttendance, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// ReplaceRecords overwrites the mirrored attendance collection.
func (m *Mirror) ReplaceRecords(ctx context.Context, recs []domain.AttendanceRecord) error {
	if recs == nil {
		recs = []domain.AttendanceRecord{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c.Set(ctx, KeyAttendance, recs)
}

// AppendRecord adds rec to the end of the mirrored collection.
func (m *Mirror) AppendRecord(ctx context.Context, rec domain.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, err := m.Records(ctx)
	if err != nil {
		return err
	}
	return m.c.Set(ctx, KeyAttendance, append(recs, rec))
}

// UpdateRecord replaces the mirrored record with the same id. Records that were never mirrored
// are appended.
func (m *Mirror) UpdateRecord(ctx context.Context, rec domain.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs, err := m.Records(ctx)
	if err != nil {
		return err
	}
	for i := range recs {
		if recs[i].ID == rec.ID {
			recs[i] = rec
			return m.c.Set(ctx, KeyAttendance, recs)
		}
	}
	return m.c.Set(ctx, KeyAttendance, append(recs, rec))
}

func (m *Mirror) Users(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if _, err := m.c.Get(ctx, KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m *Mirror) ReplaceUsers(ctx context.Context, users []domain.User) error {
	if users == nil {
		users = []domain.User{}
	}
	return m.c.Set(ctx, KeyUsers, users)
}
