package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"checkclass/internal/auth"
	"checkclass/internal/domain"
)

// Status maps an error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail writes err as {"message": ...} and logs server-side failures.
func (s *Server) fail(c *gin.Context, err error) {
	code := Status(err)
	msg := domain.Message(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Any("request_id", c.Value("request_id")),
			zap.Error(err))
		if code == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, gin.H{"message": msg})
}

// bind decodes the JSON body into dst and runs its validate tags.
func (s *Server) bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return domain.Invalid("malformed request body")
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return domain.Invalid("%s is invalid (%s)", fe.Field(), fe.Tag())
		}
		return domain.Invalid("invalid request")
	}
	return nil
}

func principal(c *gin.Context) domain.Principal {
	p, _ := auth.PrincipalFrom(c)
	return p
}
