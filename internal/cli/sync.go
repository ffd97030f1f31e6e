package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alanyang/projects-sync/internal/config"
	domainrun "github.com/alanyang/projects-sync/internal/domain/run"
	syncsvc "github.com/alanyang/projects-sync/internal/service/projectsync"
	"github.com/alanyang/projects-sync/internal/wire"
)

func newSyncCommand(v *viper.Viper, opts []wire.Option) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the repository projects once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, cmd.ErrOrStderr(), config.Config.ValidateSync)
			if err != nil {
				return err
			}

			app, err := wire.Build(cmd.Context(), cfg, opts...)
			if err != nil {
				return err
			}
			defer app.Close()

			if len(cfg.Projects) == 0 && !dryRun {
				slog.WarnContext(cmd.Context(), "no projects given, every project attached to the repository will be deleted",
					"owner", cfg.Owner, "repository", cfg.Repository)
			}

			run, err := app.SyncSvc.Run(cmd.Context(), syncsvc.Request{
				Owner:      cfg.Owner,
				Repository: cfg.Repository,
				Titles:     cfg.Projects,
				DryRun:     dryRun,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				return printPlan(out, run)
			}
			titles := strings.Join(run.FinalTitles, " ")
			if _, err := fmt.Fprintln(out, titles); err != nil {
				return err
			}
			return appendOutput(cfg.OutputPath, "projects", titles)
		},
	}

	flags := cmd.Flags()
	flags.String(config.KeyProjects, "", "whitespace-separated project titles (env INPUT_PROJECTS)")
	flags.String(config.KeyOutput, "", "file the projects output is appended to (env GITHUB_OUTPUT)")
	flags.BoolVar(&dryRun, "dry-run", false, "print the changes without applying them")
	bindFlags(v, flags, config.KeyProjects, config.KeyOutput)
	return cmd
}

func printPlan(w io.Writer, run domainrun.Run) error {
	var b strings.Builder
	for _, p := range run.Created {
		fmt.Fprintf(&b, "create %q\n", p.Title)
	}
	for _, p := range run.Deleted {
		fmt.Fprintf(&b, "delete %q (%s)\n", p.Title, p.ID)
	}
	if b.Len() == 0 {
		b.WriteString("no changes\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// appendOutput writes name=value to a GitHub Actions output file. An empty
// path is a no-op outside of Actions.
func appendOutput(path, name, value string) error {
	if path == "" {
		return nil
	}
	if strings.ContainsAny(value, "\r\n") {
		return errors.New("output value must be a single line")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%s=%s\n", name, value); err != nil {
		f.Close()
		return fmt.Errorf("writing output file: %w", err)
	}
	return f.Close()
}
