package reports

import (
	"strings"
	"time"

	"checkclass/internal/domain"
)

// Criteria selects records. Nil or empty fields let everything through.
type Criteria struct {
	Start     *time.Time
	End       *time.Time
	Status    *domain.Status
	ClassID   string
	StudentID string
}

// ParseCriteria builds Criteria from query-string style input. A status of "" or "all"
// disables status filtering.
func ParseCriteria(start, end, status, classID, studentID string) (Criteria, error) {
	var c Criteria
	if start = strings.TrimSpace(start); start != "" {
		d, err := time.Parse(domain.DateLayout, start)
		if err != nil {
			return Criteria{}, domain.Invalid("start date must look like 2023-05-10")
		}
		c.Start = &d
	}
	if end = strings.TrimSpace(end); end != "" {
		d, err := time.Parse(domain.DateLayout, end)
		if err != nil {
			return Criteria{}, domain.Invalid("end date must look like 2023-05-10")
		}
		c.End = &d
	}
	if status = strings.TrimSpace(status); status != "" && !strings.EqualFold(status, "all") {
		st, err := domain.ParseStatus(status)
		if err != nil {
			return Criteria{}, err
		}
		c.Status = &st
	}
	if classID != "all" {
		c.ClassID = strings.TrimSpace(classID)
	}
	c.StudentID = strings.TrimSpace(studentID)
	return c, nil
}

// Match reports whether rec satisfies c. Date bounds are inclusive; a record whose date
// cannot be parsed never satisfies a date bound.
func (c Criteria) Match(rec domain.AttendanceRecord) bool {
	if c.Start != nil || c.End != nil {
		d, ok := rec.Day()
		if !ok {
			return false
		}
		if c.Start != nil && d.Before(*c.Start) {
			return false
		}
		if c.End != nil && d.After(*c.End) {
			return false
		}
	}
	if c.Status != nil && rec.Status != *c.Status {
		return false
	}
	if c.ClassID != "" && rec.ClassID != c.ClassID {
		return false
	}
	if c.StudentID != "" && rec.StudentID != c.StudentID {
		return false
	}
	return true
}

// Filter returns the records matching c, in their original order.
func Filter(recs []domain.AttendanceRecord, c Criteria) []domain.AttendanceRecord {
	out := make([]domain.AttendanceRecord, 0, len(recs))
	for _, r := range recs {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Classes lists the distinct class ids of recs in order of first appearance.
func Classes(recs []domain.AttendanceRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range recs {
		if !seen[r.ClassID] {
			seen[r.ClassID] = true
			out = append(out, r.ClassID)
		}
	}
	return out
}

// Preview returns at most n records and how many were left out.
func Preview(recs []domain.AttendanceRecord, n int) ([]domain.AttendanceRecord, int) {
	if n < 0 || len(recs) <= n {
		return recs, 0
	}
	return recs[:n], len(recs) - n
}
