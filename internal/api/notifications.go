package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkclass/internal/auth"
	"checkclass/internal/domain"
)

func (s *Server) listNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := s.Inbox.List(ctx, principal(c).UserID)
	if err != nil {
		s.fail(c, domain.Persistence("could not load notifications", err))
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

func (s *Server) readNotification(c *gin.Context) {
	if err := s.Inbox.MarkRead(c.Request.Context(), principal(c).UserID, c.Param("id")); err != nil {
		s.fail(c, domain.Persistence("could not update notification", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) readAllNotifications(c *gin.Context) {
	if err := s.Inbox.MarkAllRead(c.Request.Context(), principal(c).UserID); err != nil {
		s.fail(c, domain.Persistence("could not update notifications", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// liveFeed upgrades to a websocket. Browsers cannot set headers on websocket requests, so the
// access token travels in the token query value.
func (s *Server) liveFeed(c *gin.Context) {
	if s.Hub == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "live feed disabled"})
		return
	}
	claims, err := auth.Parse(c.Query("token"), s.cfg.JWTSigningKey, s.cfg.JWTIssuer)
	if err != nil {
		s.fail(c, domain.Unauthenticated("invalid token"))
		return
	}
	if err := s.Hub.Serve(c.Writer, c.Request, claims.Principal()); err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
	}
}
