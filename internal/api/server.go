// Package api is the HTTP surface of the session store: users, classes, QR sessions,
// attendance, statistics, reports and notifications.
package api

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"checkclass/internal/attendance"
	"checkclass/internal/auth"
	"checkclass/internal/cloudinary"
	"checkclass/internal/config"
	"checkclass/internal/domain"
	"checkclass/internal/httpmiddleware"
	"checkclass/internal/live"
	"checkclass/internal/metrics"
	"checkclass/internal/notify"
	"checkclass/internal/qrsession"
	"checkclass/internal/store"
)

// Users is the user directory.
type Users interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, id string) (domain.User, error)
	ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error)
	UpdateUserRole(ctx context.Context, id string, role domain.Role) (domain.User, error)
}

type Classes interface {
	CreateClass(ctx context.Context, c domain.ClassSession) (domain.ClassSession, error)
	Class(ctx context.Context, id string) (domain.ClassSession, error)
	ListClasses(ctx context.Context, teacherID string) ([]domain.ClassSession, error)
}

// Records reads attendance.
type Records interface {
	ListAttendance(ctx context.Context, f store.AttendanceFilter) ([]domain.AttendanceRecord, error)
}

// Snapshot is the periodically refreshed copy of attendance kept by the worker.
type Snapshot interface {
	Records(ctx context.Context) ([]domain.AttendanceRecord, error)
}

// ImagePublisher makes QR images reachable by URL.
type ImagePublisher interface {
	UploadQR(ctx context.Context, code string, png []byte) (*cloudinary.UploadResult, error)
}

// Deps are the collaborators of the server. Images, Hub, Metrics and Snapshot are optional.
type Deps struct {
	Users    Users
	Classes  Classes
	Records  Records
	QR       *qrsession.Manager
	Recorder *attendance.Recorder
	CheckIn  *attendance.CheckIn
	Inbox    *notify.Inbox
	Snapshot Snapshot
	Images   ImagePublisher
	Hub      *live.Hub
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

type Server struct {
	Deps
	cfg      config.App
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

func New(cfg config.App, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Deps:     deps,
		cfg:      cfg,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Router builds the gin engine with middleware and every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(s.log, "/healthz", "/metrics"))
	r.Use(cors.New(s.corsConfig()))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(s.cfg.RateLimitPerMin, s.cfg.RateLimitPerMin).Middleware())
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware())
	}

	r.POST("/users/register", s.register)
	r.POST("/users/login", s.login)
	r.GET("/ws", s.liveFeed)

	authed := r.Group("/", auth.Authenticate(s.cfg.JWTSigningKey, s.cfg.JWTIssuer))

	authed.GET("/users/students", auth.RequireCapability(domain.CapListStudents), s.listUsers(domain.RoleStudent))
	authed.GET("/users/teachers", auth.RequireCapability(domain.CapListTeachers), s.listUsers(domain.RoleTeacher))
	authed.PATCH("/users/:id/role", auth.RequireCapability(domain.CapManageRoles), s.updateRole)

	authed.GET("/classes", s.listClasses)
	authed.POST("/classes", auth.RequireCapability(domain.CapCreateClass), s.createClass)

	authed.GET("/attendance", s.listAttendance)
	authed.POST("/attendance", auth.RequireCapability(domain.CapRecordAttendance), s.createAttendance)
	authed.POST("/attendance/scan", s.scan)
	authed.PATCH("/attendance/:id", auth.RequireCapability(domain.CapEditAttendance), s.updateAttendance)

	authed.POST("/qr/generate", auth.RequireCapability(domain.CapCreateQR), s.generateQR)
	authed.GET("/qr/list", s.listQR)
	authed.GET("/qr/:code/image", auth.RequireCapability(domain.CapCreateQR), s.qrImage)

	authed.GET("/stats", s.stats)
	authed.GET("/reports/attendance", auth.RequireCapability(domain.CapExportReports), s.exportReport)

	authed.GET("/notifications", s.listNotifications)
	authed.POST("/notifications/read-all", s.readAllNotifications)
	authed.POST("/notifications/:id/read", s.readNotification)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", httpmiddleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range s.cfg.CORSOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	if len(s.cfg.CORSOrigins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = s.cfg.CORSOrigins
	return cfg
}
