package tests

import (
	"os"
	"testing"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/announcement"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/document"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
	emailsvc "github.com/trezcool/chuo/services/email"
	logsvc "github.com/trezcool/chuo/services/logger"
	inmemdb "github.com/trezcool/chuo/storage/database/inmem"
)

var (
	app echoapi.Server

	usrRepo user.Repository
	stuRepo student.Repository
	annRepo announcement.Repository
	docRepo document.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	// keep error responses in their production shape
	core.Conf.Debug = false
	core.Conf.TestMode = true

	os.Exit(m.Run())
}

// resetServer rebuilds the whole stack on a fresh in-memory store.
func resetServer() {
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	stuRepo = inmemdb.NewStudentRepository(db)
	annRepo = inmemdb.NewAnnouncementRepository(db)
	docRepo = inmemdb.NewDocumentRepository(db)

	logger := logsvc.NewStdLogger(nil)
	mailSvc := emailsvc.NewConsoleServiceMock()

	usrSvc := user.NewService(usrRepo, mailSvc)
	stuSvc := student.NewService(nil /* no transaction support */, stuRepo, inmemdb.NewCounterRepository(db))
	annSvc := announcement.NewService(annRepo)
	docSvc := document.NewService(docRepo)
	auditSvc := audit.NewService(inmemdb.NewAuditRepository(db), logger)

	shutdown := make(chan os.Signal, 1)
	app = echoapi.NewServer(
		&echoapi.Options{
			DisableReqLogs:  true,
			Logger:          logger,
			UserSvc:         usrSvc,
			StudentSvc:      stuSvc,
			AnnouncementSvc: annSvc,
			DocumentSvc:     docSvc,
			AuditSvc:        auditSvc,
		},
		shutdown,
	)
}
