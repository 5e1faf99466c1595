package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/models"
	"github.com/tmc-tutoring/match-api/internal/service"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
)

var readPasswordFunc = term.ReadPassword // mockable

type generator interface {
	Generate(ctx context.Context) (*dto.GenerationSummary, error)
}

type matchLister interface {
	List(ctx context.Context, query dto.MatchQuery) ([]dto.MatchView, *models.Pagination, error)
}

type matchExporter interface {
	ExportMatches(ctx context.Context, format string) (*service.ExportFile, error)
}

type adminOperator interface {
	ResetDatabase(ctx context.Context, req dto.ResetRequest) (*dto.ResetResponse, error)
	ResetPassword(ctx context.Context, password string) error
}

type poolImporter interface {
	ImportPool(ctx context.Context, pool dto.ParticipantPool) (*dto.ImportResult, error)
}

type commandLine struct {
	generator    generator
	matches      matchLister
	exports      matchExporter
	admin        adminOperator
	participants poolImporter
	migrate      func(ctx context.Context) error
}

type opener func(ctx context.Context, verbose bool) (*commandLine, func() error, error)

func newRootCmd(open opener) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "matchctl",
		Short:         "Operate the tutor match service",
		Long:          `matchctl runs match generation, lists and exports matches, imports participant pools and manages the administrator account directly against the service database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at info level")

	run := func(fn func(cmd *cobra.Command, cli *commandLine, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cli, closeFn, err := open(cmd.Context(), verbose)
			if err != nil {
				return err
			}
			defer closeFn() //nolint:errcheck
			return fn(cmd, cli, args)
		}
	}

	root.AddCommand(
		newGenerateCmd(run),
		newMatchesCmd(run),
		newResetCmd(run),
		newImportCmd(run),
		newPasswdCmd(run),
		newMigrateCmd(run),
	)
	return root
}

type runner func(fn func(cmd *cobra.Command, cli *commandLine, args []string) error) func(*cobra.Command, []string) error

func newGenerateCmd(run runner) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run match generation",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, cli *commandLine, _ []string) error {
			summary, err := cli.generator.Generate(cmd.Context())
			if summary != nil {
				if asJSON {
					if encErr := writeJSON(cmd.OutOrStdout(), summary); encErr != nil {
						return encErr
					}
				} else {
					printSummary(cmd.OutOrStdout(), summary)
				}
			}
			return err
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func newMatchesCmd(run runner) *cobra.Command {
	var (
		query  dto.MatchQuery
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List persisted matches, or export them with --export",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, cli *commandLine, _ []string) error {
			if format != "" {
				return exportMatches(cmd, cli, format, out)
			}
			views, pagination, err := cli.matches.List(cmd.Context(), query)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TUTOR\tSTUDENT\tINSTRUMENT\tDAY\tTIME\tSCORE")
			for _, view := range views {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s-%s\t%d\n", view.TutorName, view.StudentName, view.Instrument, view.Day, view.Start, view.End, view.Score)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d matches\n", pagination.Page, len(views), pagination.TotalCount)
			return nil
		}),
	}
	cmd.Flags().StringVar(&query.TutorID, "tutor", "", "only matches of this tutor id")
	cmd.Flags().IntVar(&query.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&query.PageSize, "page-size", 50, "matches per page")
	cmd.Flags().StringVar(&format, "export", "", "export every match as csv or pdf")
	cmd.Flags().StringVarP(&out, "output", "o", "", "export file path (defaults to the generated file name)")
	return cmd
}

func exportMatches(cmd *cobra.Command, cli *commandLine, format, out string) error {
	file, err := cli.exports.ExportMatches(cmd.Context(), format)
	if err != nil {
		return err
	}
	if out == "-" {
		_, err = cmd.OutOrStdout().Write(file.Data)
		return err
	}
	if out == "" {
		out = file.Filename
	}
	if err := os.WriteFile(out, file.Data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d matches to %s\n", file.Rows, out)
	return nil
}

func newResetCmd(run runner) *cobra.Command {
	var confirmation string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every match, student and tutor",
		Long:  `Deletes every match, student and tutor. The reset only happens when the confirmation is exactly "Yes"; without --confirm the answer is read from stdin.`,
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, cli *commandLine, _ []string) error {
			if !cmd.Flags().Changed("confirm") {
				fmt.Fprint(cmd.OutOrStdout(), `Type "Yes" to delete all matches, students and tutors: `)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				confirmation = strings.TrimRight(line, "\r\n")
			}
			res, err := cli.admin.ResetDatabase(cmd.Context(), dto.ResetRequest{ResetConfirmation: confirmation})
			if err != nil {
				return err
			}
			if !res.Reset {
				fmt.Fprintln(cmd.OutOrStdout(), "reset cancelled")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d matches, %d students, %d tutors\n", res.MatchesDeleted, res.StudentsDeleted, res.TutorsDeleted)
			return nil
		}),
	}
	cmd.Flags().StringVar(&confirmation, "confirm", "", `confirmation answer; only "Yes" resets`)
	return cmd
}

func newImportCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "import <pool.yaml>",
		Short: "Import tutors and parents from a YAML pool file",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, cli *commandLine, args []string) error {
			pool, err := readPool(args[0])
			if err != nil {
				return err
			}
			result, err := cli.participants.ImportPool(cmd.Context(), *pool)
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d tutors, %d students\n", result.TutorsCreated, result.StudentsCreated)
				for _, rejected := range result.Rejected {
					fmt.Fprintf(cmd.OutOrStdout(), "rejected %s\n", rejected)
				}
			}
			return err
		}),
	}
}

func readPool(path string) (*dto.ParticipantPool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	var pool dto.ParticipantPool
	if err := decoder.Decode(&pool); err != nil {
		if errors.Is(err, io.EOF) {
			return &pool, nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &pool, nil
}

func newPasswdCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Set the administrator password and end all sessions",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, cli *commandLine, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprint(out, "New password: ")
			pwd, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			fmt.Fprint(out, "Repeat password: ")
			confirm, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			if string(pwd) != string(confirm) {
				return errors.New("passwords do not match")
			}
			if err := cli.admin.ResetPassword(cmd.Context(), string(pwd)); err != nil {
				return err
			}
			fmt.Fprintln(out, "password updated")
			return nil
		}),
	}
}

func newMigrateCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, cli *commandLine, _ []string) error {
			if err := cli.migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		}),
	}
}

func printSummary(w io.Writer, summary *dto.GenerationSummary) {
	fmt.Fprintf(w, "run %s: %s\n", summary.RunID, summary.State)
	fmt.Fprintf(w, "  matched   %d (created %d, existing %d)\n", summary.MatchedCount, summary.CreatedCount, summary.ExistingCount)
	fmt.Fprintf(w, "  unmatched %d students, %d tutors\n", len(summary.UnmatchedStudents), len(summary.UnmatchedTutors))
	for _, excluded := range summary.ExcludedParticipants {
		fmt.Fprintf(w, "  excluded  %s %s: %s\n", excluded.Role, excluded.ID, excluded.Reason)
	}
	for _, failed := range summary.FailedPairs {
		fmt.Fprintf(w, "  failed    %s/%s: %s\n", failed.TutorID, failed.StudentID, failed.Reason)
	}
}

func writeJSON(w io.Writer, value interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// exitMessage renders service errors without their wrapped cause.
func exitMessage(err error) string {
	if appErr := appErrors.FromError(err); appErr != nil && appErr.Code != appErrors.ErrInternal.Code {
		return appErr.Message
	}
	return err.Error()
}
