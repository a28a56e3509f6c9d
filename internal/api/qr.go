package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkclass/internal/domain"
	"checkclass/internal/qrsession"
)

type generateRequest struct {
	ClassID string `json:"classId" validate:"required"`
}

type generateResponse struct {
	domain.QRToken
	Image    string `json:"image"`
	ImageURL string `json:"imageUrl,omitempty"`
}

func (s *Server) generateQR(c *gin.Context) {
	var req generateRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	p := principal(c)
	cls, err := s.Classes.Class(ctx, req.ClassID)
	if err != nil {
		s.fail(c, domain.Persistence("could not load class", err))
		return
	}
	if cls.TeacherID != p.UserID {
		s.fail(c, domain.Forbidden("class %s belongs to another teacher", cls.ID))
		return
	}
	sess, err := s.QR.CreateSession(ctx, req.ClassID, p, s.now())
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := generateResponse{QRToken: sess.Token, Image: sess.DataURL()}
	if s.Images != nil {
		if up, err := s.Images.UploadQR(ctx, sess.Token.Code, sess.PNG); err != nil {
			s.log.Warn("qr image upload failed", zap.String("code", sess.Token.Code), zap.Error(err))
		} else {
			resp.ImageURL = up.SecureURL
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// listQR lists tokens newest first; active=true keeps only those still accepted.
func (s *Server) listQR(c *gin.Context) {
	ctx := c.Request.Context()
	tokens, err := s.QR.Tokens(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	if active, _ := strconv.ParseBool(c.Query("active")); active {
		tokens = qrsession.ActiveAt(tokens, s.now())
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *Server) qrImage(c *gin.Context) {
	png, err := s.QR.Image(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
