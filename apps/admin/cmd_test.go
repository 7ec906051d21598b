package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
	emailsvc "github.com/formationpro/fichepresence/services/email"
	logsvc "github.com/formationpro/fichepresence/services/logger"
	notifysvc "github.com/formationpro/fichepresence/services/notify"
	pdfsvc "github.com/formationpro/fichepresence/services/pdf"
	remotesvc "github.com/formationpro/fichepresence/services/remote"
	inmemdb "github.com/formationpro/fichepresence/storage/database/inmem"
	testutil "github.com/formationpro/fichepresence/tests"
)

var today = time.Date(2026, time.October, 17, 10, 30, 0, 0, time.UTC)

type testCLI struct {
	*commandLine
	api      *testutil.FakeAPI
	notifier *notifysvc.Recorder
	out      *bytes.Buffer
}

func setup(t *testing.T) testCLI {
	origNow := attendance.NowFunc
	attendance.NowFunc = func() time.Time { return today }
	t.Cleanup(func() { attendance.NowFunc = origNow })

	api := testutil.NewFakeAPI(t)
	conf := core.NewTestConfig(api.URL)

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "ADMIN : ", 0), conf)
	logger.Enable(false)

	renderer, err := pdfsvc.NewRenderer(conf)
	require.NoError(t, err)
	remote := remotesvc.NewClient(conf, logger)
	translator := core.NewTranslator()
	notifier := notifysvc.NewRecorder()
	out := new(bytes.Buffer)

	// start CLI
	return testCLI{
		commandLine: &commandLine{
			conf:       conf,
			logger:     logger,
			notifier:   notifier,
			sheetSvc:   attendance.NewService(conf, logger, remote, renderer, inmemdb.NewDraftRepository(), emailsvc.NewConsoleServiceMock(conf)),
			registry:   attendance.NewRegistry(remote, logger),
			validate:   core.NewValidate(translator),
			translator: translator,
			dbFunc:     func(context.Context) (*sql.DB, error) { return nil, nil },
			out:        out,
		},
		api:      api,
		notifier: notifier,
		out:      out,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli testCLI, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want an error")
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	cli := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	origGooseRunFunc := gooseRunFunc
	defer func() { gooseRunFunc = origGooseRunFunc }()

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "add_drafts_author", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})
}

func Test_commandLine_hydrate(t *testing.T) {
	cli := setup(t)
	cli.api.AddSession("42", testutil.SampleSession())

	runCLITests(t, cli, []cliTest{
		{name: "no session", args: []string{"hydrate"}, wantErr: errHelp},
		{name: "unknown session", args: []string{"hydrate", "--session", "7"}, wantErrStr: `session "7" could not be fetched`},
	})

	cli.out.Reset()
	require.NoError(t, cli.run([]string{"admin", "hydrate", "-s", "42"}))

	var sheet attendance.Sheet
	require.NoError(t, yaml.Unmarshal(cli.out.Bytes(), &sheet))
	assert.Equal(t, testutil.SampleSheet(), sheet)
	assert.Contains(t, cli.out.String(), "instructor: Jean Martin\n")
}

func writeSheet(t *testing.T, sheet attendance.Sheet) string {
	data, err := yaml.Marshal(sheet)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sheet.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func Test_commandLine_generate(t *testing.T) {
	cli := setup(t)
	cli.api.AddSession("42", testutil.SampleSession())
	file := writeSheet(t, testutil.SampleSheet())

	t.Run("to a directory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, cli.run([]string{"admin", "generate", "-f", file, "-o", dir, "--session", "42"}))

		content, err := os.ReadFile(filepath.Join(dir, "Feuille de présence - Jean Martin - 17_10_2026.pdf"))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(content, []byte("%PDF-")))

		uploads := cli.api.Uploads()
		require.Len(t, uploads, 1)
		assert.Equal(t, "42", uploads[0].SessionID)
		assert.Equal(t, content, uploads[0].Content)

		last, ok := cli.notifier.Last()
		require.True(t, ok)
		assert.Equal(t, core.NotifySuccess, last.Level)
	})

	t.Run("to stdout", func(t *testing.T) {
		cli.out.Reset()
		require.NoError(t, cli.run([]string{"admin", "generate", "-f", file}))
		assert.True(t, strings.HasPrefix(cli.out.String(), "%PDF-"))
	})

	t.Run("upload failure still writes the file", func(t *testing.T) {
		cli.api.Fail(true, false, false)
		defer cli.api.Fail(false, false, false)

		output := filepath.Join(t.TempDir(), "fiche.pdf")
		require.NoError(t, cli.run([]string{"admin", "generate", "-f", file, "-o", output}))
		_, err := os.Stat(output)
		assert.NoError(t, err)

		last, _ := cli.notifier.Last()
		assert.Equal(t, core.NotifyError, last.Level)
	})

	t.Run("never to a terminal", func(t *testing.T) {
		origIsTerminalFunc := isTerminalFunc
		defer func() { isTerminalFunc = origIsTerminalFunc }()
		isTerminalFunc = func(int) bool { return true }

		f, err := os.Create(filepath.Join(t.TempDir(), "tty"))
		require.NoError(t, err)
		defer f.Close()

		uploads := len(cli.api.Uploads())
		cli.commandLine.out = f
		defer func() { cli.commandLine.out = cli.out }()

		err = cli.run([]string{"admin", "generate", "-f", file})
		assert.EqualError(t, err, "refusing to write a PDF to a terminal, use -o")
		assert.Len(t, cli.api.Uploads(), uploads)
	})
}

func Test_commandLine_generate_invalid(t *testing.T) {
	cli := setup(t)

	sheet := testutil.SampleSheet()
	sheet.Meta.Title = " "
	sheet.Slots[0].Start = "9h"

	runCLITests(t, cli, []cliTest{
		{name: "no file", args: []string{"generate"}, wantErr: errHelp},
	})
	assert.Error(t, cli.run([]string{"admin", "generate", "-f", filepath.Join(t.TempDir(), "nope.yaml")}))

	err := cli.run([]string{"admin", "generate", "-f", writeSheet(t, sheet)})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []core.FieldError{
		{Field: "meta.title", Error: "ce champ est obligatoire"},
		{Field: "slots[0].start", Error: "start doit être une heure au format HH:MM"},
	}, vErr.Fields)
	assert.Empty(t, cli.api.Uploads())
}

func Test_commandLine_list(t *testing.T) {
	cli := setup(t)
	cli.api.AddRecords(testutil.SampleRecords(12)...)

	runCLITests(t, cli, []cliTest{
		{name: "page out of range", args: []string{"list", "--page", "3"}, wantErrStr: "page 3 out of range (1-2)"},
		{name: "unexpected arg", args: []string{"list", "lol"}, wantErrStr: `unknown command "lol" for "admin list"`},
	})

	cli.out.Reset()
	require.NoError(t, cli.run([]string{"admin", "list"}))
	lines := strings.Split(strings.TrimSpace(cli.out.String()), "\n")
	require.Len(t, lines, 12) // header, 10 items, footer
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "1 "))
	assert.Contains(t, lines[1], "03/06/2024")
	assert.Contains(t, lines[1], cli.api.URL+"/uploads/Feuille%20de%20pr%C3%A9sence%20-%201.pdf")
	assert.Equal(t, "Page 1/2 (12 fiches)", lines[11])

	cli.out.Reset()
	require.NoError(t, cli.run([]string{"admin", "list", "-p", "2"}))
	assert.True(t, strings.HasSuffix(cli.out.String(), "Page 2/2 (12 fiches)\n"))

	cli.out.Reset()
	require.NoError(t, cli.run([]string{"admin", "list", "--search", "session 1"}))
	assert.True(t, strings.HasSuffix(cli.out.String(), "Page 1/1 (4 fiches)\n")) // 1, 10, 11, 12

	cli.api.Fail(false, true, false)
	assert.Error(t, cli.run([]string{"admin", "list"}))
}

func Test_commandLine_delete(t *testing.T) {
	cli := setup(t)
	cli.api.AddRecords(testutil.SampleRecords(3)...)

	runCLITests(t, cli, []cliTest{
		{name: "no ids", args: []string{"delete"}, wantErrStr: "requires at least 1 arg(s), only received 0"},
		{name: "invalid id", args: []string{"delete", "1", "x"}, wantErrStr: `invalid sheet id "x"`},
	})
	assert.Empty(t, cli.api.Deleted())

	require.NoError(t, cli.run([]string{"admin", "delete", "1", "3"}))
	assert.ElementsMatch(t, []int{1, 3}, cli.api.Deleted())
	assert.Len(t, cli.notifier.Notifications(), 2)

	assert.Error(t, cli.run([]string{"admin", "delete", "1"}), "already deleted")
	last, _ := cli.notifier.Last()
	assert.Equal(t, core.NotifyError, last.Level)
}
