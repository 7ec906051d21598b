package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
)

func (cli *commandLine) hydrateCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "hydrate --session ID",
		Short: "Print the attendance sheet of a session as YAML, ready to be edited and generated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionID == "" {
				_ = cmd.Usage()
				return errHelp
			}
			sheet, ok := cli.sheetSvc.HydrateSheet(cmd.Context(), sessionID)
			if !ok {
				return errors.Errorf("session %q could not be fetched", sessionID)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(sheet); err != nil {
				return errors.Wrap(err, "encoding sheet")
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "The session ID")
	return cmd
}

func (cli *commandLine) generateCmd() *cobra.Command {
	var file, output, sessionID string
	cmd := &cobra.Command{
		Use:   "generate -f sheet.yaml [-o file.pdf|dir] [--session ID]",
		Short: "Generate the PDF attendance sheet of a YAML form, and store it on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				_ = cmd.Usage()
				return errHelp
			}
			sheet, err := cli.readSheet(file)
			if err != nil {
				return err
			}
			if f, ok := cmd.OutOrStdout().(*os.File); ok && output == "" && isTerminalFunc(int(f.Fd())) {
				return errors.New("refusing to write a PDF to a terminal, use -o")
			}

			deliver := func(art attendance.Artifact) error {
				if output == "" {
					_, err := cmd.OutOrStdout().Write(art.Content)
					return err
				}
				path := output
				if fi, err := os.Stat(path); err == nil && fi.IsDir() {
					path = filepath.Join(path, art.FileName)
				}
				if err := os.WriteFile(path, art.Content, 0o644); err != nil {
					return err
				}
				cli.logger.Info(fmt.Sprintf("sheet written to %s", path))
				return nil
			}
			_, err = cli.sheetSvc.Generate(cmd.Context(), sessionID, sheet, cli.notifier, deliver)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "The YAML form to generate (see hydrate)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the PDF: a file, or a directory (default: stdout)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "The session the sheet is stored under")
	return cmd
}

// readSheet decodes and validates a YAML form.
func (cli *commandLine) readSheet(file string) (attendance.Sheet, error) {
	var sheet attendance.Sheet
	data, err := os.ReadFile(file)
	if err != nil {
		return sheet, errors.Wrap(err, "reading sheet")
	}
	if err = yaml.Unmarshal(data, &sheet); err != nil {
		return sheet, errors.Wrap(err, "decoding sheet")
	}

	sheet = sheet.Clean()
	if err = sheet.Validate(cli.validate); err != nil {
		var vErrs validator.ValidationErrors
		if !errors.As(err, &vErrs) {
			return sheet, err
		}
		fldErrs := core.TranslateValidationErrors(vErrs, cli.translator)
		flds := make([]core.FieldError, 0, len(fldErrs))
		for fld, msg := range fldErrs {
			flds = append(flds, core.FieldError{Field: fld, Error: msg})
		}
		sort.Slice(flds, func(i, j int) bool { return flds[i].Field < flds[j].Field })
		return sheet, core.NewValidationError(nil, flds...)
	}
	return sheet, nil
}

func (cli *commandLine) listCmd() *cobra.Command {
	var search string
	var page int
	cmd := &cobra.Command{
		Use:   "list [--search TERM] [--page N]",
		Short: "List the attendance sheets stored on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.registry.Refresh(cmd.Context()); err != nil {
				return err
			}
			cli.registry.Search(search)
			if !cli.registry.GoTo(page) {
				return errors.Errorf("page %d out of range (1-%d)", page, cli.registry.Current().TotalPages)
			}
			return cli.printPage(cmd.OutOrStdout(), cli.registry.Current())
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter on the file name or the session title")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "The page to show")
	return cmd
}

func (cli *commandLine) printPage(out io.Writer, page attendance.Page) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDATE\tFICHIER\tSESSION\tURL")
	for _, doc := range page.Items {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			doc.ID, doc.DisplayDate, doc.Title, doc.Description, doc.URL(cli.conf.API.BaseURL))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "Page %d/%d (%d fiches)\n", page.Page, page.TotalPages, page.Total)
	return err
}

func (cli *commandLine) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete stored attendance sheets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int, 0, len(args))
			for _, arg := range args {
				id, err := strconv.Atoi(arg)
				if err != nil {
					return errors.Errorf("invalid sheet id %q", arg)
				}
				ids = append(ids, id)
			}
			return cli.registry.DeleteMany(cmd.Context(), ids, cli.notifier)
		},
	}
}
