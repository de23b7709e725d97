package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/session"
	"github.com/spf13/cobra"
)

func newSessionsCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage chat sessions",
	}
	cmd.AddCommand(
		newSessionsListCmd(opts),
		newSessionsNewCmd(opts),
		newSessionsShowCmd(opts),
		newSessionsUseCmd(opts),
		newSessionsRenameCmd(opts),
		newSessionsDeleteCmd(opts),
	)
	return cmd
}

func newSessionsListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				printSessions(cmd.OutOrStdout(), a.ws.Sessions.List(), a.ws.Sessions.ActiveID().String())
				return nil
			})
		},
	}
}

func printSessions(out io.Writer, sessions []*models.ChatSession, activeID string) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(out, "No sessions")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "\tID\tTYPE\tTITLE\tMESSAGES\tUPDATED")
	for _, s := range sessions {
		marker := ""
		if s.ID.String() == activeID {
			marker = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			marker, s.ID.String()[:8], s.Type, s.Title, len(s.Messages), s.LastUpdated.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func newSessionsNewCmd(opts *Options) *cobra.Command {
	var (
		sessionType string
		ic          models.InitialContext
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := models.SessionType(sessionType)
			if !t.Valid() {
				return fmt.Errorf("unknown session type %q (want one of %s)", sessionType, sessionTypeList())
			}
			return withApp(cmd, opts, func(a *app) error {
				id, err := a.ws.Sessions.Create(t, &ic)
				if err != nil {
					return err
				}
				sess, _ := a.ws.Sessions.Get(id)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (%s)\n", sess.Type, sess.Title, sess.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&sessionType, "type", "t", string(models.SessionTypeResume), "Session type: "+sessionTypeList())
	cmd.Flags().StringVar(&ic.JobTitle, "job-title", "", "Target job title")
	cmd.Flags().StringVar(&ic.Company, "company", "", "Target company")
	cmd.Flags().StringVar(&ic.JobDescription, "job-description", "", "Job description text")
	cmd.Flags().StringVar(&ic.ResumeText, "resume", "", "Existing resume text")
	return cmd
}

func sessionTypeList() string {
	names := make([]string, len(models.SessionTypes))
	for i, t := range models.SessionTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func newSessionsShowCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "show [session]",
		Short: "Print a session transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				sess, err := resolveSession(a.ws, sessionArg(args))
				if err != nil {
					return err
				}
				printTranscript(cmd.OutOrStdout(), sess)
				return nil
			})
		},
	}
}

func printTranscript(out io.Writer, sess *models.ChatSession) {
	_, _ = fmt.Fprintf(out, "%s (%s)\n\n", sess.Title, sess.Type)
	for _, m := range sess.Messages {
		_, _ = fmt.Fprintf(out, "[%s] %s\n\n", m.Role, m.Content)
	}
	if sess.FinalResume != nil {
		_, _ = fmt.Fprintf(out, "--- document ---\n%s\n", *sess.FinalResume)
	}
}

func newSessionsUseCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "use <session>",
		Short: "Make a session active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				sess, err := resolveSession(a.ws, args[0])
				if err != nil {
					return err
				}
				a.ws.Sessions.SetActive(sess.ID)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active session: %s\n", sess.Title)
				return nil
			})
		},
	}
}

func newSessionsRenameCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session> <title>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(args[1])
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}
			return withApp(cmd, opts, func(a *app) error {
				sess, err := resolveSession(a.ws, args[0])
				if err != nil {
					return err
				}
				a.ws.Sessions.Update(sess.ID, session.Patch{Title: &title})
				return nil
			})
		},
	}
}

func newSessionsDeleteCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				sess, err := resolveSession(a.ws, args[0])
				if err != nil {
					return err
				}
				a.ws.Sessions.Delete(sess.ID)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", sess.Title)
				return nil
			})
		},
	}
}
