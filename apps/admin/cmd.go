package main

import (
	"context"
	"database/sql"
	"io"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	notifier   core.Notifier
	sheetSvc   *attendance.Service
	registry   *attendance.Registry
	validate   *validator.Validate
	translator ut.Translator
	dbFunc     func(ctx context.Context) (*sql.DB, error) // opened on demand
	out        io.Writer
}

// run executes the command line; args[0] is the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Formation Pro attendance sheets administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.output())
	root.SetErr(cli.output())

	root.AddCommand(
		cli.migrateCmd(),
		cli.hydrateCmd(),
		cli.generateCmd(),
		cli.listCmd(),
		cli.deleteCmd(),
	)
	return root
}

func (cli *commandLine) output() io.Writer {
	if cli.out == nil {
		return os.Stdout
	}
	return cli.out
}
