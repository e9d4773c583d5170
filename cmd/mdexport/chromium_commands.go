package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mdexport/internal/acquire"
	"mdexport/internal/chromium"
	"mdexport/internal/history"
	"mdexport/internal/preflight"
)

func newChromiumCommand(ctx *commandContext) *cobra.Command {
	chromiumCmd := &cobra.Command{
		Use:   "chromium",
		Short: "Manage the headless browser used for PDF export",
	}

	chromiumCmd.AddCommand(newChromiumStatusCommand(ctx))
	chromiumCmd.AddCommand(newChromiumInstallCommand(ctx))
	chromiumCmd.AddCommand(newChromiumRemoveCommand(ctx))
	chromiumCmd.AddCommand(newChromiumPathCommand(ctx))
	chromiumCmd.AddCommand(newChromiumHistoryCommand(ctx))
	chromiumCmd.AddCommand(newChromiumCheckCommand(ctx))
	chromiumCmd.AddCommand(newChromiumAcquireCommand())

	return chromiumCmd
}

func newChromiumStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which browser would be used and whether the bundled build is installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg := ctx.config
			sup := ctx.supervisor(cmd, nil)
			loc := sup.Location()

			resolved := "none (run `mdexport chromium install`)"
			if res, err := sup.Resolve(cfg.Chromium.ExecutablePath); err == nil {
				resolved = fmt.Sprintf("%s (%s)", res.Path, res.Source)
			}
			fields := [][2]string{
				{"Revision", fmt.Sprint(loc.Revision())},
				{"Bundled", yesNo(sup.CheckAvailability())},
				{"Binary", loc.BinaryPath()},
				{"Install dir", loc.InstallDir()},
				{"Install dir writable", yesNo(preflight.CheckDirectoryAccess("install", loc.InstallDir()).Passed)},
				{"Auto acquire", yesNo(cfg.Chromium.AutoAcquire)},
				{"Hosts", strings.Join(cfg.Chromium.Hosts, ", ")},
				{"Executable", resolved},
				{"Platform", platformSummary(cmd.Context())},
			}
			if store, err := ctx.historyStore(); err == nil {
				if sessions, err := store.Recent(cmd.Context(), 1); err == nil && len(sessions) > 0 {
					last := sessions[0]
					fields = append(fields, [2]string{"Last download", fmt.Sprintf("%s %s", outcomeLabel(last.Outcome), humanize.Time(last.FinishedAt))})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields(fields))
			return nil
		},
	}
}

func newChromiumInstallCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download the bundled Chromium build",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			out := cmd.OutOrStdout()
			sink := newProgressSink(cmd.ErrOrStderr(), ctx.loggerFor(cmd.ErrOrStderr()))
			sup := ctx.supervisor(cmd, sink)

			if sup.CheckAvailability() {
				if !force {
					fmt.Fprintf(out, "Chromium r%d already installed at %s\n", sup.Location().Revision(), sup.Location().BinaryPath())
					return nil
				}
				if err := sup.RemoveChromium(cmd.Context()); err != nil {
					return err
				}
			}
			if err := download(cmd.Context(), sup, sink); err != nil {
				return err
			}
			fmt.Fprintf(out, "Installed Chromium r%d at %s\n", sup.Location().Revision(), sup.Location().BinaryPath())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reinstall even if the bundled build is present")
	return cmd
}

func newChromiumRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Delete the bundled Chromium build",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			sup := ctx.supervisor(cmd, nil)
			if err := sup.RemoveChromium(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed Chromium r%d from %s\n", sup.Location().Revision(), sup.Location().InstallDir())
			return nil
		},
	}
}

func newChromiumPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the browser executable, downloading it when auto_acquire is on",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			cfg := ctx.config
			sink := newProgressSink(cmd.ErrOrStderr(), ctx.loggerFor(cmd.ErrOrStderr()))
			sup := ctx.supervisor(cmd, sink)

			res, err := sup.Resolve(cfg.Chromium.ExecutablePath)
			if errors.Is(err, chromium.ErrNotFound) && cfg.Chromium.AutoAcquire {
				if err := download(cmd.Context(), sup, sink); err != nil {
					return err
				}
				res, err = sup.Resolve(cfg.Chromium.ExecutablePath)
			}
			if err != nil {
				if errors.Is(err, chromium.ErrNotFound) {
					return fmt.Errorf("%w: set chromium.executable_path or run `mdexport chromium install`", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Path)
			return nil
		},
	}
}

func newChromiumHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var pruneOlder time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent download sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			store, err := ctx.historyStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if pruneOlder > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-pruneOlder))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d sessions\n", removed)
			}
			sessions, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No download sessions recorded")
				return nil
			}
			fmt.Fprintln(out, renderSessions(sessions))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of sessions to show (0 for all)")
	cmd.Flags().DurationVar(&pruneOlder, "prune", 0, "Delete sessions that finished longer ago than this duration")
	return cmd
}

func newChromiumCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories and download hosts before installing",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := preflight.RunAll(cmd.Context(), ctx.config, nil, acquire.LauncherHostURL)
			rows := make([][]string, 0, len(results))
			failed := 0
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
					failed++
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			if !preflight.AnyHostReachable(results) {
				return errors.New("no download host serves the configured revision")
			}
			if failed > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d checks failed\n", failed, len(results))
			}
			return nil
		},
	}
}

func newChromiumAcquireCommand() *cobra.Command {
	var planPath string

	cmd := &cobra.Command{
		Use:         "acquire",
		Short:       "Download and unpack a browser from an install plan",
		Hidden:      true,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := acquire.New(acquire.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))
			err := a.Run(cmd.Context(), planPath)
			if err != nil && errors.Is(err, context.Canceled) {
				return &exitError{code: chromium.ExitCodeTerminated, err: err}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&planPath, "plan", "", "Install plan to execute")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

// download runs one acquisition and finishes the progress display.
func download(ctx context.Context, sup *chromium.Supervisor, sink progressSink) error {
	err := sup.DownloadChromium(ctx)
	sink.Done()
	if errors.Is(err, chromium.ErrDownloadCanceled) {
		return fmt.Errorf("%w: %w", err, context.Canceled)
	}
	return err
}

func renderSessions(sessions []history.Session) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		size := "-"
		if s.TotalBytes > 0 {
			size = fmt.Sprintf("%s / %s", humanize.Bytes(uint64(s.DownloadedBytes)), humanize.Bytes(uint64(s.TotalBytes)))
		}
		rows = append(rows, []string{
			shortID(s.ID),
			fmt.Sprint(s.Revision),
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			outcomeLabel(s.Outcome),
			size,
			s.Duration().Round(time.Second).String(),
			s.Detail,
		})
	}
	return renderTable(
		[]string{"ID", "Revision", "Started", "Outcome", "Downloaded", "Duration", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func outcomeLabel(outcome history.Outcome) string {
	return cases.Title(language.English).String(string(outcome))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
