package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkclass/internal/attendance"
	"checkclass/internal/domain"
	"checkclass/internal/reports"
	"checkclass/internal/store"
)

// records loads the attendance visible to the caller, narrowed by the usual query filters
// (classId, studentId, start, end, status). Students only ever see their own records.
func (s *Server) records(c *gin.Context) ([]domain.AttendanceRecord, error) {
	p := principal(c)
	studentID := c.Query("studentId")
	if !domain.Allowed(p.Role, domain.CapViewAllAttendance) {
		studentID = p.UserID
	}
	crit, err := reports.ParseCriteria(c.Query("start"), c.Query("end"), c.Query("status"), c.Query("classId"), studentID)
	if err != nil {
		return nil, err
	}
	recs, err := s.Records.ListAttendance(c.Request.Context(), store.AttendanceFilter{
		ClassID:   crit.ClassID,
		StudentID: crit.StudentID,
	})
	if err != nil {
		snap, ok := s.snapshot(c, err)
		if !ok {
			return nil, domain.Persistence("could not load attendance", err)
		}
		recs = snap
	}
	return reports.Filter(recs, crit), nil
}

// SourceHeader marks answers served from the worker's snapshot instead of the database.
const SourceHeader = "X-Attendance-Source"

// snapshot answers reads from the worker's copy while the database is unreachable. Writes are
// never served from it.
func (s *Server) snapshot(c *gin.Context, cause error) ([]domain.AttendanceRecord, bool) {
	if s.Snapshot == nil {
		return nil, false
	}
	recs, err := s.Snapshot.Records(c.Request.Context())
	if err != nil || len(recs) == 0 {
		return nil, false
	}
	s.log.Warn("attendance served from snapshot", zap.NamedError("cause", cause), zap.Int("records", len(recs)))
	c.Header(SourceHeader, "snapshot")
	return recs, true
}

func (s *Server) listAttendance(c *gin.Context) {
	recs, err := s.records(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

type createAttendanceRequest struct {
	StudentID   string `json:"studentId" validate:"required"`
	StudentName string `json:"studentName"`
	ClassID     string `json:"classId" validate:"required"`
	ClassName   string `json:"className"`
	Status      string `json:"status" validate:"required"`
	Reason      string `json:"reason"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        string `json:"time" validate:"omitempty,datetime=15:04"`
}

func (s *Server) createAttendance(c *gin.Context) {
	var req createAttendanceRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	m, err := domain.ParseMark(req.Status, req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	at, err := s.entryTime(req.Date, req.Time)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	className := req.ClassName
	if className == "" {
		if cls, err := s.Classes.Class(ctx, req.ClassID); err == nil {
			className = cls.Name
		} else {
			className = req.ClassID
		}
	}
	studentName := req.StudentName
	if studentName == "" {
		if u, err := s.Users.UserByID(ctx, req.StudentID); err == nil {
			studentName = u.Name
		}
	}

	rec, err := s.Recorder.RecordMark(ctx, attendance.Scan{
		StudentID:    req.StudentID,
		StudentName:  studentName,
		ClassID:      req.ClassID,
		ClassName:    className,
		TeacherLabel: principal(c).Name,
	}, m, at)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// entryTime combines an optional date and time of day in the recorder's zone. Missing parts
// come from now.
func (s *Server) entryTime(date, tod string) (time.Time, error) {
	loc := s.Recorder.Location()
	now := s.now().In(loc)
	if date == "" && tod == "" {
		return now, nil
	}
	if date == "" {
		date = now.Format(domain.DateLayout)
	}
	if tod == "" {
		tod = now.Format(domain.TimeLayout)
	}
	at, err := time.ParseInLocation(domain.DateLayout+" "+domain.TimeLayout, date+" "+tod, loc)
	if err != nil {
		return time.Time{}, domain.Invalid("date must look like 2023-05-10 and time like 10:05")
	}
	return at, nil
}

type scanRequest struct {
	Payload string `json:"payload" validate:"required"`
}

type scanResponse struct {
	Record  domain.AttendanceRecord `json:"record"`
	ClassID string                  `json:"classId"`
	Teacher string                  `json:"teacher"`
}

func (s *Server) scan(c *gin.Context) {
	var req scanRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.CheckIn.ScanAndRecord(c.Request.Context(), principal(c), strings.TrimSpace(req.Payload), s.now())
	if s.Metrics != nil {
		s.Metrics.ObserveScan(err)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info("attendance registered",
		zap.String("student_id", res.Record.StudentID),
		zap.String("class_id", res.Record.ClassID),
		zap.String("record_id", res.Record.ID))
	c.JSON(http.StatusCreated, scanResponse{Record: res.Record, ClassID: res.Acceptance.ClassID, Teacher: res.Acceptance.TeacherName})
}

type updateAttendanceRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

func (s *Server) updateAttendance(c *gin.Context) {
	var req updateAttendanceRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	m, err := domain.ParseMark(req.Status, req.Reason)
	if err != nil {
		s.fail(c, err)
		return
	}
	rec, err := s.Recorder.UpdateStatus(c.Request.Context(), c.Param("id"), m, s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
