package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"studio/internal/app"
	"studio/internal/batch"
	"studio/internal/canvas"
	"studio/internal/domain"
	"studio/internal/i18n"
	"studio/internal/infra"
	"studio/internal/presets"
)

var (
	jobPath   string
	assumeYes bool
	outPath   string
)

var planCmd = &cobra.Command{
	Use:   "plan -f job.yaml",
	Short: "Expand a job file and list its tasks without generating",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		services, err := buildLocal(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		plan, err := planFile(services)
		if err != nil {
			return err
		}
		for _, t := range plan.Tasks {
			fmt.Printf("%3d  %-24s %s\n", t.Index+1, color.CyanString(t.LayerName), truncate(t.Prompt, 72))
		}
		fmt.Printf("\n%d tasks, %s %s\n", len(plan.Tasks), plan.Job.ImageSize, plan.Job.AspectRatio)
		if plan.NeedsConfirmation {
			printStatus("⚠", i18n.T(cfg.DefaultLocale, "batch.confirm", len(plan.Tasks)), color.FgYellow)
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run -f job.yaml",
	Short: "Generate a job locally and write the images to a zip archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		services, err := buildLocal(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		plan, err := planFile(services)
		if err != nil {
			return err
		}
		locale := cfg.DefaultLocale
		if plan.NeedsConfirmation && !assumeYes {
			if !confirm(i18n.T(locale, "batch.confirm", len(plan.Tasks))) {
				return nil
			}
		}
		plan.Job.Confirmed = true

		token := &domain.CancelToken{}
		interrupts := make(chan os.Signal, 1)
		signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(interrupts)
		go func() {
			if _, ok := <-interrupts; ok {
				printStatus("■", "stopping after the running chunk", color.FgYellow)
				token.Cancel()
			}
		}()

		report, err := services.Runner.Run(cmd.Context(), plan, token, func(p domain.BatchProgress) {
			fmt.Printf("\r[%d/%d] failed %d", p.Completed, p.Total, p.Failed)
		})
		fmt.Println()
		if err != nil {
			return err
		}
		for _, o := range report.Outcomes {
			if o.OK() {
				printStatus("✓", fmt.Sprintf("%s (%s)", o.LayerName, o.Asset.Tier), color.FgGreen)
			} else {
				printStatus("✗", fmt.Sprintf("%s: %s", o.LayerName, o.Reason()), color.FgRed)
			}
		}
		if report.Cancelled {
			fmt.Println(i18n.T(locale, "batch.cancelled", report.Progress.Completed, report.Progress.Total))
		} else {
			fmt.Println(i18n.T(locale, "batch.done", report.Progress.Succeeded(), report.Progress.Failed))
		}

		if report.Succeeded() > 0 {
			archive, n, err := canvas.Export(cmd.Context(), services.Canvas, services.Files, nil)
			if err != nil {
				return err
			}
			out := outPath
			if out == "" {
				out = plan.Job.ID + ".zip"
			}
			if err := os.WriteFile(out, archive, 0o644); err != nil {
				return err
			}
			printStatus("✓", fmt.Sprintf("wrote %d images to %s", n, out), color.FgGreen)
		}
		if report.Status() == domain.JobStatusFailed {
			return fmt.Errorf("job %s failed", plan.Job.ID)
		}
		return nil
	},
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue -f job.yaml",
	Short: "Validate a job file and queue it for the worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, cleanup, err := buildWithDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		plan, err := planFile(services)
		if err != nil {
			return err
		}
		if plan.NeedsConfirmation && !assumeYes {
			if !confirm(i18n.T(services.Config.DefaultLocale, "batch.confirm", len(plan.Tasks))) {
				return nil
			}
		}
		plan.Job.Confirmed = true
		id, err := services.Jobs.Enqueue(cmd.Context(), plan.Job)
		if err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("queued %s (%d tasks)", id, len(plan.Tasks)), color.FgGreen)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the job queue and credential tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, cleanup, err := buildWithDatabase(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		if err := services.Jobs.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
		printStatus("✓", "schema up to date", color.FgGreen)
		return nil
	},
}

var presetsCmd = &cobra.Command{
	Use:   "presets [scenes|poses|details|planting|extraction|models|lighting|platforms]",
	Short: "List the preset ids jobs can reference",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := presets.Default()
		if err != nil {
			return err
		}
		sections := presetSections(catalog)
		if len(args) == 0 {
			names := make([]string, 0, len(sections))
			for name := range sections {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%-12s %d\n", name, len(sections[name]))
			}
			return nil
		}
		items, ok := sections[strings.ToLower(args[0])]
		if !ok {
			return fmt.Errorf("unknown preset kind %q", args[0])
		}
		for _, p := range items {
			category := ""
			if p.Category != "" {
				category = color.New(color.Faint).Sprintf(" [%s]", p.Category)
			}
			fmt.Printf("%-24s %s%s\n", color.CyanString(p.ID), p.Label, category)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{planCmd, runCmd, enqueueCmd} {
		c.Flags().StringVarP(&jobPath, "file", "f", "", "job file (YAML)")
		_ = c.MarkFlagRequired("file")
	}
	for _, c := range []*cobra.Command{runCmd, enqueueCmd} {
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the large-batch confirmation")
	}
	runCmd.Flags().StringVarP(&outPath, "out", "o", "", "archive path (default <job-id>.zip)")
}

func cliLogger() infra.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()
}

func buildLocal(ctx context.Context, cfg *infra.Config) (*app.Services, error) {
	logger := cliLogger()
	return app.Build(ctx, cfg, &logger, nil)
}

func buildWithDatabase(ctx context.Context) (*app.Services, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger := cliLogger()
	services, err := app.Build(ctx, cfg, &logger, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return services, pool.Close, nil
}

func planFile(services *app.Services) (batch.Plan, error) {
	job, err := readJobFile(jobPath)
	if err != nil {
		return batch.Plan{}, err
	}
	return services.Runner.Plan(job)
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "是":
		return true
	}
	return false
}

func presetSections(c *presets.Catalog) map[string][]presets.Preset {
	flatten := func(cats []presets.Category) []presets.Preset {
		var out []presets.Preset
		for _, cat := range cats {
			for _, p := range cat.Items {
				p.Category = cat.ID
				out = append(out, p)
			}
		}
		return out
	}
	return map[string][]presets.Preset{
		"scenes":     flatten(c.Scenes),
		"poses":      flatten(c.Poses),
		"details":    c.Details,
		"planting":   c.Planting,
		"extraction": c.Extraction,
		"models":     append(append([]presets.Preset{}, c.Models...), c.FixedModels...),
		"lighting":   c.Lighting,
		"platforms":  c.Platforms,
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
