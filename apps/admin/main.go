package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
	emailsvc "github.com/formationpro/fichepresence/services/email"
	logsvc "github.com/formationpro/fichepresence/services/logger"
	notifysvc "github.com/formationpro/fichepresence/services/notify"
	pdfsvc "github.com/formationpro/fichepresence/services/pdf"
	remotesvc "github.com/formationpro/fichepresence/services/remote"
	"github.com/formationpro/fichepresence/storage/database"
	inmemdb "github.com/formationpro/fichepresence/storage/database/inmem"
)

func main() {
	conf := core.NewConfig()

	// logs go to stderr: stdout may hold a PDF or a YAML form
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	renderer, err := pdfsvc.NewRenderer(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up renderer: %v", err), err)
	}
	remote := remotesvc.NewClient(conf, logger)
	translator := core.NewTranslator()

	var db *sqlx.DB
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	// start CLI
	cli := commandLine{
		conf:       conf,
		logger:     logger,
		notifier:   notifysvc.NewLogNotifier(logger),
		sheetSvc:   attendance.NewService(conf, logger, remote, renderer, inmemdb.NewDraftRepository(), mailSvc),
		registry:   attendance.NewRegistry(remote, logger),
		validate:   core.NewValidate(translator),
		translator: translator,
		dbFunc: func(ctx context.Context) (*sql.DB, error) {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
			sqlxDB, err := database.Open(ctx, conf)
			if err != nil {
				return nil, err
			}
			db = sqlxDB
			return db.DB, nil
		},
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			printError(err)
		}
		if db != nil {
			_ = db.Close()
		}
		os.Exit(1)
	}
}

func printError(err error) {
	var vErr *core.ValidationError
	if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
		fmt.Fprintln(os.Stderr, "\ninvalid sheet:")
		for _, fld := range vErr.Fields {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", fld.Field, fld.Error)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
}
