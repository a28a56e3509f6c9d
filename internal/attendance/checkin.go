package attendance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"checkclass/internal/domain"
	"checkclass/internal/qrsession"
)

// Validator decides whether a scanned payload is acceptable.
type Validator interface {
	ValidateScan(ctx context.Context, payload, scannerUserID string, now time.Time) (qrsession.Acceptance, error)
}

// ClassLookup resolves class names for new records.
type ClassLookup interface {
	Class(ctx context.Context, id string) (domain.ClassSession, error)
}

// ScanLedger remembers which students scanned which token. A claim whose record could not be
// written is released so the student can scan again.
type ScanLedger interface {
	ClaimScan(ctx context.Context, code, studentID string) (first bool, err error)
	ReleaseScan(ctx context.Context, code, studentID string) error
}

// CheckIn validates a scanned payload and records the student's presence.
type CheckIn struct {
	QR       Validator
	Classes  ClassLookup
	Recorder *Recorder
	// Ledger, when set, limits every token to one scan per student.
	Ledger ScanLedger
	Log    *zap.Logger
}

// Result is a successful check-in.
type Result struct {
	Record     domain.AttendanceRecord
	Acceptance qrsession.Acceptance
}

// ScanAndRecord runs the whole scan flow for student at now.
func (c *CheckIn) ScanAndRecord(ctx context.Context, student domain.Principal, payload string, now time.Time) (Result, error) {
	if student.UserID == "" {
		return Result{}, domain.Unauthenticated("no signed-in user")
	}
	if err := domain.Require(student.Role, domain.CapScanQR); err != nil {
		return Result{}, err
	}
	acc, err := c.QR.ValidateScan(ctx, payload, student.UserID, now)
	if err != nil {
		return Result{}, err
	}

	if c.Ledger != nil {
		first, err := c.Ledger.ClaimScan(ctx, acc.Token.Code, student.UserID)
		if err != nil {
			return Result{}, domain.Persistence("could not register attendance", err)
		}
		if !first {
			return Result{}, domain.Invalid("attendance for this QR code was already registered")
		}
	}

	className := acc.ClassID
	if c.Classes != nil {
		cls, err := c.Classes.Class(ctx, acc.ClassID)
		switch {
		case err == nil:
			className = cls.Name
		case errors.Is(err, domain.ErrNotFound):
		default:
			c.logger().Warn("class lookup failed", zap.String("class_id", acc.ClassID), zap.Error(err))
		}
	}

	rec, err := c.Recorder.RecordAttendance(ctx, Scan{
		StudentID:    student.UserID,
		StudentName:  student.Name,
		ClassID:      acc.ClassID,
		ClassName:    className,
		TeacherLabel: acc.TeacherName,
	}, now)
	if err != nil {
		if c.Ledger != nil {
			if rerr := c.Ledger.ReleaseScan(ctx, acc.Token.Code, student.UserID); rerr != nil {
				c.logger().Error("scan claim release failed", zap.String("code", acc.Token.Code),
					zap.String("student_id", student.UserID), zap.Error(rerr))
			}
		}
		return Result{}, err
	}
	return Result{Record: rec, Acceptance: acc}, nil
}

func (c *CheckIn) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
