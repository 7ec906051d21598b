package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/formationpro/fichepresence/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, down, status, create...) on the drafts database",
		// goose arguments are passed through as is
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(cmd, args)
		},
	}
}

func (cli *commandLine) migrate(cmd *cobra.Command, args []string) error {
	db, err := cli.dbFunc(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(db, args[0], arguments...)
}
