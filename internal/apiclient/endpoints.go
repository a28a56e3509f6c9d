package apiclient

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"checkclass/internal/domain"
	"checkclass/internal/reports"
)

// Login is the result of a successful sign-in.
type Login struct {
	User         domain.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    int64       `json:"expires_at"`
}

// Expires returns the access token expiry.
func (l Login) Expires() time.Time { return time.Unix(l.ExpiresAt, 0) }

func (c *Client) Login(ctx context.Context, email, password string) (Login, error) {
	var out Login
	err := c.do(ctx, http.MethodPost, "/users/login", nil, map[string]string{"email": email, "password": password}, &out)
	return out, err
}

// Registration is the input of Register.
type Registration struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Enrollment string `json:"enrollment,omitempty"`
}

func (c *Client) Register(ctx context.Context, r Registration) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, http.MethodPost, "/users/register", nil, r, &out)
	return out, err
}

// Users lists the users of role, filtered by name and enrollment substrings.
func (c *Client) Users(ctx context.Context, role domain.Role, name, enrollment string) ([]domain.User, error) {
	path := "/users/students"
	if role == domain.RoleTeacher {
		path = "/users/teachers"
	}
	q := url.Values{}
	if name != "" {
		q.Set("name", name)
	}
	if enrollment != "" {
		q.Set("enrollment", enrollment)
	}
	var out []domain.User
	err := c.do(ctx, http.MethodGet, path, q, nil, &out)
	return out, err
}

func (c *Client) UpdateRole(ctx context.Context, userID string, role domain.Role) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID)+"/role", nil, map[string]string{"role": string(role)}, &out)
	return out, err
}

func (c *Client) Classes(ctx context.Context, teacherID string) ([]domain.ClassSession, error) {
	q := url.Values{}
	if teacherID != "" {
		q.Set("teacherId", teacherID)
	}
	var out []domain.ClassSession
	err := c.do(ctx, http.MethodGet, "/classes", q, nil, &out)
	return out, err
}

func (c *Client) CreateClass(ctx context.Context, cls domain.ClassSession) (domain.ClassSession, error) {
	in := map[string]string{"id": cls.ID, "name": cls.Name, "schedule": cls.Schedule, "teacherId": cls.TeacherID}
	var out domain.ClassSession
	err := c.do(ctx, http.MethodPost, "/classes", nil, in, &out)
	return out, err
}

// GeneratedQR is a newly opened attendance window.
type GeneratedQR struct {
	domain.QRToken
	Image    string `json:"image"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func (c *Client) GenerateQR(ctx context.Context, classID string) (GeneratedQR, error) {
	var out GeneratedQR
	err := c.do(ctx, http.MethodPost, "/qr/generate", nil, map[string]string{"classId": classID}, &out)
	return out, err
}

func (c *Client) QRTokens(ctx context.Context, activeOnly bool) ([]domain.QRToken, error) {
	q := url.Values{}
	if activeOnly {
		q.Set("active", "true")
	}
	var out []domain.QRToken
	err := c.do(ctx, http.MethodGet, "/qr/list", q, nil, &out)
	return out, err
}

// QRImage writes the PNG of code to w.
func (c *Client) QRImage(ctx context.Context, code string, w io.Writer) error {
	_, err := c.download(ctx, "/qr/"+url.PathEscape(code)+"/image", nil, w)
	return err
}

// ScanResult is the server's answer to an accepted scan.
type ScanResult struct {
	Record  domain.AttendanceRecord `json:"record"`
	ClassID string                  `json:"classId"`
	Teacher string                  `json:"teacher"`
}

func (c *Client) Scan(ctx context.Context, payload string) (ScanResult, error) {
	var out ScanResult
	err := c.do(ctx, http.MethodPost, "/attendance/scan", nil, map[string]string{"payload": payload}, &out)
	return out, err
}

// Query narrows attendance, stats and report requests. Empty fields do not filter.
type Query struct {
	ClassID   string
	StudentID string
	Start     string
	End       string
	Status    string
}

func (q Query) values() url.Values {
	v := url.Values{}
	for k, s := range map[string]string{"classId": q.ClassID, "studentId": q.StudentID, "start": q.Start, "end": q.End, "status": q.Status} {
		if s != "" {
			v.Set(k, s)
		}
	}
	return v
}

func (c *Client) Attendance(ctx context.Context, q Query) ([]domain.AttendanceRecord, error) {
	var out []domain.AttendanceRecord
	err := c.do(ctx, http.MethodGet, "/attendance", q.values(), nil, &out)
	return out, err
}

// Entry is a hand-entered attendance record.
type Entry struct {
	StudentID string `json:"studentId"`
	ClassID   string `json:"classId"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
}

func (c *Client) RecordAttendance(ctx context.Context, e Entry) (domain.AttendanceRecord, error) {
	var out domain.AttendanceRecord
	err := c.do(ctx, http.MethodPost, "/attendance", nil, e, &out)
	return out, err
}

// UpdateStatus sends a teacher correction. The mark has already been checked locally.
func (c *Client) UpdateStatus(ctx context.Context, recordID string, m domain.Mark) (domain.AttendanceRecord, error) {
	in := map[string]string{"status": string(m.Status())}
	if m.Reason() != "" {
		in["reason"] = m.Reason()
	}
	var out domain.AttendanceRecord
	err := c.do(ctx, http.MethodPatch, "/attendance/"+url.PathEscape(recordID), nil, in, &out)
	return out, err
}

// Stats is the dashboard payload.
type Stats struct {
	Stats   reports.Stats                 `json:"stats"`
	ByClass map[string]reports.ClassStats `json:"byClass"`
	ByMonth []reports.MonthBucket         `json:"byMonth"`
	Classes []string                      `json:"classes"`
}

func (c *Client) Stats(ctx context.Context, q Query) (Stats, error) {
	var out Stats
	err := c.do(ctx, http.MethodGet, "/stats", q.values(), nil, &out)
	return out, err
}

// ExportReport writes a report in format f to w and returns the suggested file name.
func (c *Client) ExportReport(ctx context.Context, f reports.Format, q Query, w io.Writer) (string, error) {
	v := q.values()
	v.Set("format", string(f))
	return c.download(ctx, "/reports/attendance", v, w)
}

// Inbox is the caller's notifications.
type Inbox struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

func (c *Client) Notifications(ctx context.Context) (Inbox, error) {
	var out Inbox
	err := c.do(ctx, http.MethodGet, "/notifications", nil, nil, &out)
	return out, err
}

// MarkRead marks one notification, or all of them when id is empty.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	path := "/notifications/read-all"
	if id != "" {
		path = "/notifications/" + url.PathEscape(id) + "/read"
	}
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

// fileName extracts the filename parameter of a Content-Disposition header.
func fileName(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

// Offline reports whether err came from the transport rather than the server.
func Offline(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
