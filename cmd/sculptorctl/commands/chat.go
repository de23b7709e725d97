package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/benvon/sculptor/internal/services/career"
	"github.com/benvon/sculptor/internal/workspace"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newChatCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [session]",
		Short: "Chat with the assistant in a session",
		Long: `Start an interactive chat in the given session, or the active one.
Replies stream as they arrive. Type /sculpt to generate the document,
/show to print the transcript and /quit (or EOF) to leave.`,
		Args: cobra.MaximumNArgs(1),
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
				catalog := career.DefaultCatalog()
				r := &repl{
					ws:     a.ws,
					chat:   career.NewChatEngine(provider, catalog, a.cfg.AIModel, a.logger),
					sculpt: career.NewSculptEngine(provider, catalog, a.cfg.AIModel, a.logger),
					id:     sess.ID,
					out:    cmd.OutOrStdout(),
				}
				_, _ = fmt.Fprintf(r.out, "%s (%s)\n", sess.Title, sess.Type)
				return r.run(cmd.Context(), cmd.InOrStdin())
			})
		},
	}
}

// repl runs chat turns for one session from line based input
type repl struct {
	ws     *workspace.Workspace
	chat   *career.ChatEngine
	sculpt *career.SculptEngine
	id     uuid.UUID
	out    io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		_, _ = fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/show":
			if sess, ok := r.ws.Sessions.Get(r.id); ok {
				printTranscript(r.out, sess)
			}
			continue
		case "/sculpt":
			doc, err := r.sculpt.Sculpt(ctx, r.ws.Sessions, r.ws.Profile.Get(), r.id)
			if err != nil {
				_, _ = fmt.Fprintf(r.out, "error: %v\n", err)
				continue
			}
			_, _ = fmt.Fprintf(r.out, "%s\n", doc)
			continue
		}

		if err := r.turn(ctx, line); err != nil {
			if errors.Is(err, career.ErrSessionNotFound) || ctx.Err() != nil {
				return err
			}
			_, _ = fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

func (r *repl) turn(ctx context.Context, text string) error {
	_, err := r.chat.Send(ctx, r.ws.Sessions, r.ws.Profile.Get(), r.id, career.TurnInput{
		Text: text,
		OnFragment: func(fragment string) {
			_, _ = fmt.Fprint(r.out, fragment)
		},
	})
	if errors.Is(err, career.ErrTurnFailed) {
		// The transcript already holds the apology; show it like any reply
		_, _ = fmt.Fprintf(r.out, "\n%s\n", career.ErrorReply)
		return nil
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.out)
	return nil
}
