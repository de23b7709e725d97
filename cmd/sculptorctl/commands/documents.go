package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/benvon/sculptor/internal/export"
	"github.com/benvon/sculptor/internal/services/career"
	"github.com/spf13/cobra"
)

func newSculptCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "sculpt [session]",
		Short: "Generate the final document from the conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				sess, err := resolveSession(a.ws, sessionArg(args))
				if err != nil {
					return err
				}
				provider, err := a.provider()
				if err != nil {
					return err
				}
				engine := career.NewSculptEngine(provider, career.DefaultCatalog(), a.cfg.AIModel, a.logger)
				doc, err := engine.Sculpt(cmd.Context(), a.ws.Sessions, a.ws.Profile.Get(), sess.ID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), doc)
				return nil
			})
		},
	}
}

func newExportCmd(opts *Options) *cobra.Command {
	var (
		format string
		dir    string
	)
	cmd := &cobra.Command{
		Use:   "export [session]",
		Short: "Write the session document as PDF or DOCX",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app) error {
				sess, err := resolveSession(a.ws, sessionArg(args))
				if err != nil {
					return err
				}
				doc, ok := export.DocumentFromSession(sess, a.ws.Profile.Get().Name)
				if !ok {
					return fmt.Errorf("session %q has no document yet; run sculpt first", sess.Title)
				}

				path := filepath.Join(dir, export.Filename(sess.Title, sess.Type, f))
				file, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				if err := export.Render(file, f, doc); err != nil {
					_ = file.Close()
					_ = os.Remove(path)
					return fmt.Errorf("failed to render %s: %w", f, err)
				}
				if err := file.Close(); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatPDF), "Output format: pdf or docx")
	cmd.Flags().StringVarP(&dir, "output-dir", "o", ".", "Directory to write the file to")
	return cmd
}

func newRoadmapCmd(opts *Options) *cobra.Command {
	var (
		goal string
		days int
	)
	cmd := &cobra.Command{
		Use:   "roadmap [session]",
		Short: "Plan day-by-day tasks for a career-copilot session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				sess, err := resolveSession(a.ws, sessionArg(args))
				if err != nil {
					return err
				}
				provider, err := a.provider()
				if err != nil {
					return err
				}
				engine := career.NewRoadmapEngine(provider, a.cfg.AIModel, a.logger)
				plan, err := engine.Plan(cmd.Context(), a.ws.Sessions, a.ws.Profile.Get(), sess.ID, goal, days)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Goal: %s\n\n", plan.MainGoal)
				for _, task := range plan.Tasks {
					_, _ = fmt.Fprintf(out, "Day %2d  %s\n", task.Day, task.Task)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "Career goal (defaults to the session's current goal)")
	cmd.Flags().IntVarP(&days, "days", "d", career.DefaultPlanDays, "Number of days to plan")
	return cmd
}
