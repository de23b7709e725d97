package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/benvon/sculptor/internal/models"
	"github.com/spf13/cobra"
)

func newProfileCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the user profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				printProfile(cmd.OutOrStdout(), a.ws.Profile.Get())
				return nil
			})
		},
	}
	cmd.AddCommand(newProfileSetCmd(opts))
	return cmd
}

func printProfile(out io.Writer, p models.UserProfile) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	rows := []struct{ label, value string }{
		{"Name", p.Name},
		{"Title", p.Title},
		{"Email", p.Email},
		{"Phone", p.Phone},
		{"Location", p.Location},
		{"LinkedIn", p.LinkedIn},
		{"Portfolio", p.Portfolio},
		{"Daily hours", fmt.Sprint(p.DailyAvailability)},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", r.label, r.value)
	}
	_ = tw.Flush()
}

// profileFlags maps flag names to patch fields so only flags the user set are applied
var profileFlags = []struct {
	name  string
	usage string
	field func(*models.ProfilePatch) **string
}{
	{"name", "Full name", func(p *models.ProfilePatch) **string { return &p.Name }},
	{"title", "Professional title", func(p *models.ProfilePatch) **string { return &p.Title }},
	{"email", "Contact email", func(p *models.ProfilePatch) **string { return &p.Email }},
	{"phone", "Phone number", func(p *models.ProfilePatch) **string { return &p.Phone }},
	{"location", "City or region", func(p *models.ProfilePatch) **string { return &p.Location }},
	{"linkedin", "LinkedIn URL", func(p *models.ProfilePatch) **string { return &p.LinkedIn }},
	{"portfolio", "Portfolio URL", func(p *models.ProfilePatch) **string { return &p.Portfolio }},
	{"base-resume", "Base resume text", func(p *models.ProfilePatch) **string { return &p.BaseResumeText }},
}

func newProfileSetCmd(opts *Options) *cobra.Command {
	values := make(map[string]*string, len(profileFlags))
	var hours int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.ProfilePatch
			changed := false
			for _, f := range profileFlags {
				if cmd.Flags().Changed(f.name) {
					v := *values[f.name]
					*f.field(&patch) = &v
					changed = true
				}
			}
			if cmd.Flags().Changed("daily-hours") {
				patch.DailyAvailability = &hours
				changed = true
			}
			if !changed {
				return fmt.Errorf("no profile fields given")
			}

			return withApp(cmd, opts, func(a *app) error {
				p, err := a.ws.Profile.Update(patch)
				if err != nil {
					return err
				}
				printProfile(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
	for _, f := range profileFlags {
		values[f.name] = cmd.Flags().String(f.name, "", f.usage)
	}
	cmd.Flags().IntVar(&hours, "daily-hours", 0, "Hours available per day for roadmap tasks")
	return cmd
}
