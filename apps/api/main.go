package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/announcement"
	"github.com/trezcool/chuo/core/audit"
	"github.com/trezcool/chuo/core/document"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/services/email"
	"github.com/trezcool/chuo/services/logger"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, core.Conf.AppName+" - ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	if err := run(std, logger); err != nil {
		logger.Fatal("API server failed", err)
	}
}

func run(std *log.Logger, logger core.Logger) error {
	// set up DB
	db, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	stuSvc := student.NewService(core.NewDB(db), sqlxrepos.NewStudentRepository(db), sqlxrepos.NewCounterRepository(db))
	annSvc := announcement.NewService(sqlxrepos.NewAnnouncementRepository(db))
	docSvc := document.NewService(sqlxrepos.NewDocumentRepository(db))
	auditSvc := audit.NewService(sqlxrepos.NewAuditRepository(db), logger)

	// start API server; shutdown on SIGINT/SIGTERM or unrecoverable server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:            core.Conf.Server.Address(),
			Logger:          logger,
			DB:              db,
			UserSvc:         usrSvc,
			StudentSvc:      stuSvc,
			AnnouncementSvc: annSvc,
			DocumentSvc:     docSvc,
			AuditSvc:        auditSvc,
		},
		shutdown,
	)

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- app.Start() }()

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		std.Printf("caught %v: starting shutdown", sig)

		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Stop(ctx); err != nil {
			std.Printf("graceful shutdown failed: %v", err)
			return errors.Wrap(err, "stopping server")
		}
	}
	return nil
}
