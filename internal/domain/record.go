package domain

import (
	"strings"
	"time"
)

// Status is the attendance state of a record. The values are the labels stored and exchanged
// on the wire.
type Status string

const (
	StatusPresent   Status = "Presente"
	StatusAbsent    Status = "Ausente"
	StatusLate      Status = "Tardanza"
	StatusJustified Status = "Justificado"
)

// Statuses lists every status in chart order.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusJustified}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ParseStatus accepts the wire label or the English name, in any case.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "presente", "present":
		return StatusPresent, nil
	case "ausente", "absent":
		return StatusAbsent, nil
	case "tardanza", "late":
		return StatusLate, nil
	case "justificado", "justified":
		return StatusJustified, nil
	}
	return "", Invalid("unknown attendance status %q", s)
}

// Mark is a status together with the data only that status may carry: an absence carries
// its reason, the other statuses carry nothing. The zero Mark is invalid.
type Mark struct {
	status Status
	reason string
}

func Present() Mark   { return Mark{status: StatusPresent} }
func Late() Mark      { return Mark{status: StatusLate} }
func Justified() Mark { return Mark{status: StatusJustified} }

// Absent builds an absence mark; the reason is required.
func Absent(reason string) (Mark, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Mark{}, Invalid("a reason is required when marking a student absent")
	}
	return Mark{status: StatusAbsent, reason: reason}, nil
}

// ParseMark builds a mark from raw status and reason input. A reason on any status other than
// Absent is rejected rather than silently dropped.
func ParseMark(status, reason string) (Mark, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return Mark{}, err
	}
	switch st {
	case StatusAbsent:
		return Absent(reason)
	case StatusPresent, StatusLate, StatusJustified:
		if strings.TrimSpace(reason) != "" {
			return Mark{}, Invalid("a reason is only allowed for status %s", StatusAbsent)
		}
		return Mark{status: st}, nil
	}
	return Mark{}, Invalid("unknown attendance status %q", status)
}

func (m Mark) Status() Status { return m.status }
func (m Mark) Reason() string { return m.reason }
func (m Mark) IsZero() bool   { return m.status == "" }

// AttendanceRecord is one student's status for one class on one date.
type AttendanceRecord struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	ClassID     string    `json:"classId"`
	ClassName   string    `json:"className"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	Teacher     string    `json:"teacher"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Mark returns the record's status as a checked mark.
func (r AttendanceRecord) Mark() (Mark, error) {
	return ParseMark(string(r.Status), r.Reason)
}

// WithMark returns a copy of r carrying m.
func (r AttendanceRecord) WithMark(m Mark) AttendanceRecord {
	r.Status = m.status
	r.Reason = m.reason
	return r
}

// Day parses the record date. ok is false when the date is malformed.
func (r AttendanceRecord) Day() (time.Time, bool) {
	d, err := time.Parse(DateLayout, r.Date)
	return d, err == nil
}
