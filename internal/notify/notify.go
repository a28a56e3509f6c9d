// Package notify keeps per-user notifications in the cache and derives them from domain events.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkclass/internal/cache"
	"checkclass/internal/domain"
	"checkclass/internal/queue"
)

// MaxPerUser bounds the notifications kept for one user; the oldest are dropped first.
const MaxPerUser = 100

// Notification types.
const (
	TypeSession    = "session"
	TypeAttendance = "attendance"
)

// Inbox stores notifications newest first.
type Inbox struct {
	c   cache.Cache
	mu  sync.Mutex
	now func() time.Time
}

func NewInbox(c cache.Cache) *Inbox {
	return &Inbox{c: c, now: time.Now}
}

func key(userID string) string { return cache.KeyNotifications + ":" + userID }

// List returns the notifications of userID, newest first.
func (b *Inbox) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	var out []domain.Notification
	if _, err := b.c.Get(ctx, key(userID), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Notification{}
	}
	return out, nil
}

// Unread counts the unread notifications of userID.
func (b *Inbox) Unread(ctx context.Context, userID string) (int, error) {
	list, err := b.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, x := range list {
		if !x.Read {
			n++
		}
	}
	return n, nil
}

// Add prepends n to its user's inbox, filling in id and timestamp when missing.
func (b *Inbox) Add(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if n.UserID == "" {
		return domain.Notification{}, domain.Invalid("notification has no recipient")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = b.now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.List(ctx, n.UserID)
	if err != nil {
		return domain.Notification{}, err
	}
	list = append([]domain.Notification{n}, list...)
	if len(list) > MaxPerUser {
		list = list[:MaxPerUser]
	}
	return n, b.c.Set(ctx, key(n.UserID), list)
}

// MarkRead flags one notification as read.
func (b *Inbox) MarkRead(ctx context.Context, userID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.List(ctx, userID)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			list[i].Read = true
			return b.c.Set(ctx, key(userID), list)
		}
	}
	return domain.NotFound("notification %s not found", id)
}

// MarkAllRead flags every notification of userID as read.
func (b *Inbox) MarkAllRead(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	list, err := b.List(ctx, userID)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].Read = true
	}
	return b.c.Set(ctx, key(userID), list)
}

// Handler turns domain events into notifications.
type Handler struct {
	Inbox *Inbox
	Log   *zap.Logger
}

// Handle processes one event. Unknown event types are ignored.
func (h *Handler) Handle(ctx context.Context, msg queue.Message) error {
	var n domain.Notification
	switch msg.Type {
	case queue.TypeQRCreated:
		var tok domain.QRToken
		if err := msg.Decode(&tok); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		n = domain.Notification{
			UserID:  tok.TeacherID,
			Type:    TypeSession,
			Title:   "Sesión de asistencia abierta",
			Message: fmt.Sprintf("QR code for %s is valid until %s", tok.ClassID, tok.ExpiresAt.Format("15:04")),
		}
	case queue.TypeAttendanceRecorded, queue.TypeAttendanceUpdated:
		var rec domain.AttendanceRecord
		if err := msg.Decode(&rec); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Type, err)
		}
		title := "Asistencia registrada"
		if msg.Type == queue.TypeAttendanceUpdated {
			title = "Asistencia actualizada"
		}
		class := rec.ClassName
		if class == "" {
			class = rec.ClassID
		}
		n = domain.Notification{
			UserID:  rec.StudentID,
			Type:    TypeAttendance,
			Title:   title,
			Message: fmt.Sprintf("%s on %s: %s", class, rec.Date, rec.Status),
		}
	default:
		return nil
	}
	if n.UserID == "" {
		return nil
	}
	saved, err := h.Inbox.Add(ctx, n)
	if err != nil {
		return err
	}
	if h.Log != nil {
		h.Log.Debug("notification stored", zap.String("user_id", saved.UserID), zap.String("type", msg.Type))
	}
	return nil
}
