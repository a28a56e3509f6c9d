package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkclass/internal/auth"
	"checkclass/internal/domain"
)

type registerRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Enrollment string `json:"enrollment" validate:"max=40"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	u, err := s.Users.CreateUser(c.Request.Context(), domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Role:         domain.RoleStudent,
		Enrollment:   strings.TrimSpace(req.Enrollment),
		PasswordHash: hash,
	})
	if err != nil {
		s.fail(c, domain.Persistence("could not register user", err))
		return
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User         domain.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    int64       `json:"expires_at"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	u, err := s.Users.UserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !auth.CheckPassword(u.PasswordHash, req.Password)) {
		s.fail(c, domain.Unauthenticated("invalid email or password"))
		return
	}
	if err != nil {
		s.fail(c, domain.Persistence("could not sign in", err))
		return
	}

	p := domain.Principal{UserID: u.ID, Name: u.Name, Role: u.Role}
	tokens, err := auth.Issue(p, s.cfg.JWTIssuer, s.cfg.JWTSigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL, s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{
		User:         u,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.AccessExp.Unix(),
	})
}

// listUsers serves one role's directory. name and enrollment query values filter by
// case-insensitive substring.
func (s *Server) listUsers(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.Users.ListUsers(c.Request.Context(), role)
		if err != nil {
			s.fail(c, domain.Persistence("could not load users", err))
			return
		}
		name, enrollment := c.Query("name"), c.Query("enrollment")
		out := make([]domain.User, 0, len(users))
		for _, u := range users {
			if domain.MatchFold(u.Name, name) && domain.MatchFold(u.Enrollment, enrollment) {
				out = append(out, u)
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) updateRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" validate:"required"`
	}
	if err := s.bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		s.fail(c, err)
		return
	}
	u, err := s.Users.UpdateUserRole(c.Request.Context(), c.Param("id"), role)
	if err != nil {
		s.fail(c, domain.Persistence("could not update role", err))
		return
	}
	s.log.Info("role updated", zap.String("user_id", u.ID), zap.String("role", string(role)),
		zap.String("by", principal(c).UserID))
	c.JSON(http.StatusOK, u)
}
