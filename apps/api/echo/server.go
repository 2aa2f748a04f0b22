package echoapi

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/announcement"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/document"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
)

type (
	Options struct {
		Addr            string
		DisableReqLogs  bool
		Logger          core.Logger
		DB              *sql.DB // nil when the backing store is in-memory
		UserSvc         user.ServiceInterface
		StudentSvc      student.ServiceInterface
		AnnouncementSvc announcement.ServiceInterface
		DocumentSvc     document.ServiceInterface
		AuditSvc        audit.ServiceInterface
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan<- os.Signal
	}
)

var _ Server = (*server)(nil)

// NewServer builds the portal API server. shutdown receives a SIGTERM when an
// unrecoverable error is caught so main can drain connections and exit.
func NewServer(opts *Options, shutdown chan<- os.Signal) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)
	s.app.GET("/health", s.health)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.AuditSvc)
	registerStudentAPI(v1, jwt, s.opts.StudentSvc, s.opts.DocumentSvc, s.opts.AuditSvc)
	registerAnnouncementAPI(v1, jwt, s.opts.AnnouncementSvc, s.opts.AuditSvc)
	registerAuditAPI(v1, jwt, s.opts.AuditSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Addr)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}

// health reports API and database liveness for the ops dashboard.
func (s *server) health(ctx echo.Context) error {
	status := echo.Map{"api": "ok"}
	code := http.StatusOK

	if s.opts.DB != nil {
		var ok bool
		if err := s.opts.DB.QueryRowContext(ctx.Request().Context(), "SELECT true").Scan(&ok); err != nil {
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}
	return ctx.JSON(code, status)
}
