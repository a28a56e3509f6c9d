package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"checkclass/internal/domain"
)

func (s *Server) listClasses(c *gin.Context) {
	classes, err := s.Classes.ListClasses(c.Request.Context(), c.Query("teacherId"))
	if err != nil {
		s.fail(c, domain.Persistence("could not load classes", err))
		return
	}
	c.JSON(http.StatusOK, classes)
}

type createClassRequest struct {
	ID        string `json:"id" validate:"required,max=64,excludesall=/?#"`
	Name      string `json:"name" validate:"required,max=120"`
	Schedule  string `json:"schedule" validate:"max=120"`
	TeacherID string `json:"teacherId"`
}

// createClass stores a class under the caller-chosen id. Teachers always own the classes they
// create; admins may assign one.
func (s *Server) createClass(c *gin.Context) {
	var req createClassRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	p := principal(c)
	owner := p.UserID
	if p.Role == domain.RoleAdmin && strings.TrimSpace(req.TeacherID) != "" {
		owner = strings.TrimSpace(req.TeacherID)
	}
	cls, err := s.Classes.CreateClass(c.Request.Context(), domain.ClassSession{
		ID:        req.ID,
		Name:      strings.TrimSpace(req.Name),
		Schedule:  strings.TrimSpace(req.Schedule),
		TeacherID: owner,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.fail(c, domain.Persistence("could not create class", err))
		return
	}
	c.JSON(http.StatusCreated, cls)
}
