package qrsession

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkclass/internal/domain"
	"checkclass/internal/queue"
)

type memStore struct {
	mu      sync.Mutex
	tokens  []domain.QRToken
	saveErr error
	readErr error
	lists   int
}

func (s *memStore) SaveQRToken(_ context.Context, t domain.QRToken) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, t)
	return nil
}

func (s *memStore) QRToken(_ context.Context, code string) (domain.QRToken, error) {
	if s.readErr != nil {
		return domain.QRToken{}, s.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Code == code {
			return t, nil
		}
	}
	return domain.QRToken{}, domain.NotFound("QR code %s not found", code)
}

func (s *memStore) ListQRTokens(context.Context) ([]domain.QRToken, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	return append([]domain.QRToken(nil), s.tokens...), nil
}

var (
	t0      = time.Date(2023, 5, 10, 10, 0, 0, 0, time.UTC)
	teacher = domain.Principal{UserID: "2", Name: "Prof. García", Role: domain.RoleTeacher}
)

func TestCreateThenValidateAccepts(t *testing.T) {
	ctx := context.Background()
	for _, classID := range []string{"math101", "physics201", "hist-3"} {
		m := New(&memStore{}, Options{})
		sess, err := m.CreateSession(ctx, classID, teacher, t0)
		require.NoError(t, err)

		acc, err := m.ValidateScan(ctx, sess.Token.Code, "3", t0)
		require.NoError(t, err)
		assert.Equal(t, classID, acc.ClassID)
		assert.Equal(t, "Prof. García", acc.TeacherName)

		acc, err = m.ValidateScan(ctx, sess.Token.Code, "3", sess.Token.ExpiresAt)
		require.NoError(t, err, "expiry instant is still inside the window")
		assert.Equal(t, classID, acc.ClassID)
	}
}

func TestCreateSessionBuildsCodeAndExpiry(t *testing.T) {
	store := &memStore{}
	m := New(store, Options{})
	sess, err := m.CreateSession(context.Background(), "math101", teacher, t0)
	require.NoError(t, err)

	assert.Equal(t, "CLASS_math101_1683712800000", sess.Token.Code)
	assert.Equal(t, t0.Add(10*time.Minute), sess.Token.ExpiresAt)
	assert.Equal(t, "2", sess.Token.TeacherID)
	require.Len(t, store.tokens, 1)
	assert.Equal(t, sess.Token, store.tokens[0])

	img, err := png.Decode(bytes.NewReader(sess.PNG))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.True(t, strings.HasPrefix(sess.DataURL(), "data:image/png;base64,"))
}

func TestDistinctInstantsGiveDistinctCodes(t *testing.T) {
	m := New(&memStore{}, Options{})
	a, err := m.CreateSession(context.Background(), "math101", teacher, t0)
	require.NoError(t, err)
	b, err := m.CreateSession(context.Background(), "math101", teacher, t0.Add(time.Millisecond))
	require.NoError(t, err)
	assert.NotEqual(t, a.Token.Code, b.Token.Code)
}

func TestValidateExpiredToken(t *testing.T) {
	ctx := context.Background()
	m := New(&memStore{}, Options{})
	sess, err := m.CreateSession(ctx, "math101", teacher, t0)
	require.NoError(t, err)

	for _, late := range []time.Duration{10*time.Minute + time.Millisecond, time.Hour, 48 * time.Hour} {
		_, err := m.ValidateScan(ctx, sess.Token.Code, "3", t0.Add(late))
		assert.Truef(t, errors.Is(err, domain.ErrExpired), "after %s", late)
	}
}

func TestValidateUnknownPayload(t *testing.T) {
	ctx := context.Background()
	m := New(&memStore{}, Options{})
	_, err := m.CreateSession(ctx, "math101", teacher, t0)
	require.NoError(t, err)

	for _, p := range []string{"", "CLASS_math101_0", "hello", "CLASS_math101_1683712800000 "} {
		_, err := m.ValidateScan(ctx, p, "3", t0)
		assert.Truef(t, errors.Is(err, domain.ErrNotFound), "payload %q", p)
	}
}

func TestNotFoundTakesPriorityOverExpired(t *testing.T) {
	m := New(&memStore{}, Options{})
	_, err := m.ValidateScan(context.Background(), "CLASS_x_1", "3", t0.Add(24*time.Hour))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMath101Scenario(t *testing.T) {
	ctx := context.Background()
	m := New(&memStore{}, Options{Validity: 10 * time.Minute})
	sess, err := m.CreateSession(ctx, "math101", teacher, t0)
	require.NoError(t, err)

	acc, err := m.ValidateScan(ctx, sess.Token.Code, "3", t0.Add(9*time.Minute+59*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "math101", acc.ClassID)

	_, err = m.ValidateScan(ctx, sess.Token.Code, "3", t0.Add(10*time.Minute+time.Second))
	assert.True(t, errors.Is(err, domain.ErrExpired))
}

func TestValidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	m := New(store, Options{})
	sess, err := m.CreateSession(ctx, "math101", teacher, t0)
	require.NoError(t, err)

	first, err := m.ValidateScan(ctx, sess.Token.Code, "3", t0.Add(time.Minute))
	require.NoError(t, err)
	second, err := m.ValidateScan(ctx, sess.Token.Code, "3", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, store.tokens, 1)
}

func TestCreateSessionValidation(t *testing.T) {
	m := New(&memStore{}, Options{})
	_, err := m.CreateSession(context.Background(), "  ", teacher, t0)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = m.CreateSession(context.Background(), "math101", domain.Principal{}, t0)
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
}

func TestStoreFailuresArePersistenceErrors(t *testing.T) {
	ctx := context.Background()
	m := New(&memStore{saveErr: errors.New("connection reset")}, Options{})
	_, err := m.CreateSession(ctx, "math101", teacher, t0)
	assert.True(t, errors.Is(err, domain.ErrPersistence))

	m = New(&memStore{readErr: errors.New("connection reset")}, Options{})
	_, err = m.ValidateScan(ctx, "CLASS_math101_1", "3", t0)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}

func TestValidateScanLooksUpSingleCode(t *testing.T) {
	ctx := context.Background()
	st := &memStore{}
	m := New(st, Options{})
	for i := 0; i < 3; i++ {
		_, err := m.CreateSession(ctx, "math101", teacher, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	sess, err := m.CreateSession(ctx, "phys201", teacher, t0)
	require.NoError(t, err)

	acc, err := m.ValidateScan(ctx, sess.Token.Code, "3", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "phys201", acc.ClassID)
	_, err = m.ValidateScan(ctx, "", "3", t0)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, st.lists)
}

func TestCreateSessionPublishesEvent(t *testing.T) {
	q := queue.NewInMemory(1)
	m := New(&memStore{}, Options{Events: q})
	sess, err := m.CreateSession(context.Background(), "math101", teacher, t0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	msg := <-ch
	assert.Equal(t, queue.TypeQRCreated, msg.Type)
	var tok domain.QRToken
	require.NoError(t, msg.Decode(&tok))
	assert.Equal(t, sess.Token.Code, tok.Code)
}

func TestActiveAt(t *testing.T) {
	tokens := []domain.QRToken{
		{Code: "a", ExpiresAt: t0.Add(time.Minute)},
		{Code: "b", ExpiresAt: t0.Add(-time.Minute)},
		{Code: "c", ExpiresAt: t0},
	}
	active := ActiveAt(tokens, t0)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].Code)
	assert.Equal(t, "c", active[1].Code)
}

func TestImageOfKnownToken(t *testing.T) {
	ctx := context.Background()
	m := New(&memStore{}, Options{ImageSize: 128})
	sess, err := m.CreateSession(ctx, "math101", teacher, t0)
	require.NoError(t, err)

	img, err := m.Image(ctx, sess.Token.Code)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 128, decoded.Bounds().Dx())

	_, err = m.Image(ctx, "CLASS_nope_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := m.Tokens(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDataURLRoundTrip(t *testing.T) {
	m := New(&memStore{}, Options{})
	sess, err := m.CreateSession(context.Background(), "math101", teacher, t0)
	require.NoError(t, err)

	got, err := DecodeDataURL(sess.DataURL())
	require.NoError(t, err)
	assert.Equal(t, sess.PNG, got)

	_, err = DecodeDataURL("https://example.com/qr.png")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTerminalRendering(t *testing.T) {
	out, err := Terminal("CLASS_math101_1683712800000")
	require.NoError(t, err)
	assert.Greater(t, strings.Count(out, "\n"), 10)
}
