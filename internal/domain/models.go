package domain

import (
	"strings"
	"time"
)

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Enrollment   string    `json:"enrollment,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ClassSession is a scheduled class that attendance can be taken for.
type ClassSession struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	TeacherID string    `json:"teacherId"`
	CreatedAt time.Time `json:"createdAt"`
}

// QRToken is one open attendance window for one class.
type QRToken struct {
	Code        string    `json:"code"`
	ClassID     string    `json:"classId"`
	TeacherID   string    `json:"teacherId"`
	TeacherName string    `json:"teacher"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ValidAt reports whether the token may still be accepted at now. The expiry instant itself
// is still inside the window.
func (t QRToken) ValidAt(now time.Time) bool {
	return !now.After(t.ExpiresAt)
}

// Notification is a per-user message with a read flag.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// MatchFold reports whether needle is a case-insensitive substring of s. An empty needle matches.
func MatchFold(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
}
