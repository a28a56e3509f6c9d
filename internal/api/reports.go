package api

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkclass/internal/reports"
)

type statsResponse struct {
	Stats   reports.Stats                 `json:"stats"`
	ByClass map[string]reports.ClassStats `json:"byClass"`
	ByMonth []reports.MonthBucket         `json:"byMonth"`
	Classes []string                      `json:"classes"`
}

func (s *Server) stats(c *gin.Context) {
	recs, err := s.records(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := statsResponse{
		Stats:   reports.ComputeStats(recs),
		ByClass: reports.GroupByClass(recs),
		ByMonth: reports.GroupByMonth(recs),
		Classes: reports.Classes(recs),
	}
	if resp.ByMonth == nil {
		resp.ByMonth = []reports.MonthBucket{}
	}
	if resp.Classes == nil {
		resp.Classes = []string{}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) exportReport(c *gin.Context) {
	format, err := reports.ParseFormat(c.Query("format"))
	if err != nil {
		s.fail(c, err)
		return
	}
	recs, err := s.records(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	now := s.now()
	var buf bytes.Buffer
	if err := reports.Write(&buf, format, recs, now); err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info("report exported", zap.String("format", string(format)), zap.Int("rows", len(recs)))
	c.Header("Content-Disposition", `attachment; filename="`+format.FileName(now)+`"`)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
