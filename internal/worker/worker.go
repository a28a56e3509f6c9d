// Package worker runs the background side of the system: it drains the event queue into
// handlers and refreshes the offline mirror on a schedule.
package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"checkclass/internal/cache"
	"checkclass/internal/domain"
	"checkclass/internal/queue"
	"checkclass/internal/store"
)

// Handler processes one queue message.
type Handler interface {
	Handle(ctx context.Context, msg queue.Message) error
}

// Consume feeds every message of q to h until ctx is done or the queue closes. Handler errors
// are logged and the message is dropped.
func Consume(ctx context.Context, q queue.Queue, h Handler, log *zap.Logger) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init: %w", err)
	}
	for msg := range messages {
		if err := h.Handle(ctx, msg); err != nil {
			log.Warn("event handling failed", zap.String("type", msg.Type), zap.Error(err))
			continue
		}
		log.Debug("event handled", zap.String("type", msg.Type))
	}
	return ctx.Err()
}

// Source is the durable data the mirror copies.
type Source interface {
	ListAttendance(ctx context.Context, f store.AttendanceFilter) ([]domain.AttendanceRecord, error)
	ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// MirrorRefresher copies attendance and users into a cache mirror.
type MirrorRefresher struct {
	Source Source
	Mirror *cache.Mirror
	Log    *zap.Logger
}

// Refresh replaces both mirrored collections. Nothing is replaced when a read fails.
func (m *MirrorRefresher) Refresh(ctx context.Context) error {
	recs, err := m.Source.ListAttendance(ctx, store.AttendanceFilter{})
	if err != nil {
		return domain.Persistence("could not read attendance", err)
	}
	users, err := m.Source.ListUsers(ctx, "")
	if err != nil {
		return domain.Persistence("could not read users", err)
	}
	if err := m.Mirror.ReplaceRecords(ctx, recs); err != nil {
		return domain.Persistence("could not mirror attendance", err)
	}
	if err := m.Mirror.ReplaceUsers(ctx, users); err != nil {
		return domain.Persistence("could not mirror users", err)
	}
	m.Log.Info("mirror refreshed", zap.Int("records", len(recs)), zap.Int("users", len(users)))
	return nil
}

// Schedule registers Refresh on spec and returns the started cron. Stop it on shutdown.
func (m *MirrorRefresher) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := m.Refresh(ctx); err != nil {
			m.Log.Warn("mirror refresh failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("mirror schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
