// Package qrsession issues time-bound QR tokens for class sessions and validates scans
// against them.
package qrsession

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"checkclass/internal/domain"
	"checkclass/internal/queue"
)

// DefaultValidity is how long a token is accepted after creation.
const DefaultValidity = 10 * time.Minute

// Store persists tokens. QRToken looks one up by its exact code and fails with ErrNotFound
// when there is none.
type Store interface {
	SaveQRToken(ctx context.Context, t domain.QRToken) error
	QRToken(ctx context.Context, code string) (domain.QRToken, error)
	ListQRTokens(ctx context.Context) ([]domain.QRToken, error)
}

// Options configure a Manager. Zero values get defaults.
type Options struct {
	Validity  time.Duration
	ImageSize int
	Events    queue.Publisher
	Logger    *zap.Logger
}

// Manager creates tokens and validates scans.
type Manager struct {
	store     Store
	validity  time.Duration
	imageSize int
	events    queue.Publisher
	log       *zap.Logger
}

func New(store Store, opts Options) *Manager {
	if opts.Validity <= 0 {
		opts.Validity = DefaultValidity
	}
	if opts.ImageSize <= 0 {
		opts.ImageSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		store:     store,
		validity:  opts.Validity,
		imageSize: opts.ImageSize,
		events:    opts.Events,
		log:       opts.Logger,
	}
}

// Validity returns the configured window.
func (m *Manager) Validity() time.Duration { return m.validity }

// Session is a created token together with its rendered image.
type Session struct {
	Token domain.QRToken
	PNG   []byte
}

// DataURL returns the image as an inline data URL.
func (s Session) DataURL() string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(s.PNG)
}

// Code builds the payload of a token. Two tokens of the same class differ as long as they are
// created at different milliseconds.
func Code(classID string, created time.Time) string {
	return fmt.Sprintf("CLASS_%s_%d", classID, created.UnixMilli())
}

// CreateSession opens an attendance window for classID owned by teacher, persists it and
// renders the scannable image.
func (m *Manager) CreateSession(ctx context.Context, classID string, teacher domain.Principal, now time.Time) (Session, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return Session{}, domain.Invalid("select a class before generating a QR code")
	}
	if teacher.UserID == "" {
		return Session{}, domain.Unauthenticated("no signed-in teacher")
	}

	tok := domain.QRToken{
		Code:        Code(classID, now),
		ClassID:     classID,
		TeacherID:   teacher.UserID,
		TeacherName: teacher.Name,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.validity),
	}
	png, err := Render(tok.Code, m.imageSize)
	if err != nil {
		return Session{}, fmt.Errorf("render qr: %w", err)
	}
	if err := m.store.SaveQRToken(ctx, tok); err != nil {
		return Session{}, domain.Persistence("could not save the QR code", err)
	}
	m.log.Info("qr session created",
		zap.String("code", tok.Code),
		zap.String("class_id", classID),
		zap.Time("expires_at", tok.ExpiresAt))

	if m.events != nil {
		if msg, err := queue.NewMessage(queue.TypeQRCreated, tok); err == nil {
			if err := m.events.Publish(ctx, msg); err != nil {
				m.log.Warn("publish qr.created failed", zap.Error(err))
			}
		}
	}
	return Session{Token: tok, PNG: png}, nil
}

// Acceptance is the outcome of a successful scan validation.
type Acceptance struct {
	ClassID     string
	TeacherName string
	Token       domain.QRToken
}

// ValidateScan checks payload against the known tokens at now. It fails with ErrNotFound when
// no token matches and ErrExpired when the matching token's window has passed. It has no side
// effects: validating the same payload twice yields the same result.
func (m *Manager) ValidateScan(ctx context.Context, payload, scannerUserID string, now time.Time) (Acceptance, error) {
	tok, err := m.lookup(ctx, payload)
	if errors.Is(err, domain.ErrNotFound) {
		m.log.Debug("scan rejected: unknown code", zap.String("scanner", scannerUserID))
		return Acceptance{}, domain.NotFound("the QR code is not valid")
	}
	if err != nil {
		return Acceptance{}, err
	}
	if !tok.ValidAt(now) {
		m.log.Debug("scan rejected: expired", zap.String("code", tok.Code), zap.String("scanner", scannerUserID))
		return Acceptance{}, domain.Expired("the QR code has expired")
	}
	return Acceptance{ClassID: tok.ClassID, TeacherName: tok.TeacherName, Token: tok}, nil
}

// Active returns the tokens still inside their window at now.
func (m *Manager) Active(ctx context.Context, now time.Time) ([]domain.QRToken, error) {
	tokens, err := m.store.ListQRTokens(ctx)
	if err != nil {
		return nil, domain.Persistence("could not load QR codes", err)
	}
	return ActiveAt(tokens, now), nil
}

// ActiveAt filters tokens to those valid at now, keeping their order.
func ActiveAt(tokens []domain.QRToken, now time.Time) []domain.QRToken {
	out := make([]domain.QRToken, 0, len(tokens))
	for _, t := range tokens {
		if t.ValidAt(now) {
			out = append(out, t)
		}
	}
	return out
}

// lookup matches the payload exactly against stored codes. The payload is never parsed.
func (m *Manager) lookup(ctx context.Context, payload string) (domain.QRToken, error) {
	if strings.TrimSpace(payload) == "" {
		return domain.QRToken{}, domain.NotFound("empty QR payload")
	}
	tok, err := m.store.QRToken(ctx, payload)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.QRToken{}, domain.Persistence("could not load QR code", err)
	}
	return tok, err
}

// Tokens lists every known token, newest first.
func (m *Manager) Tokens(ctx context.Context) ([]domain.QRToken, error) {
	tokens, err := m.store.ListQRTokens(ctx)
	if err != nil {
		return nil, domain.Persistence("could not load QR codes", err)
	}
	return tokens, nil
}

// Image renders the PNG of a known token.
func (m *Manager) Image(ctx context.Context, code string) ([]byte, error) {
	tok, err := m.lookup(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("QR code %s not found", code)
	}
	if err != nil {
		return nil, err
	}
	return Render(tok.Code, m.imageSize)
}
