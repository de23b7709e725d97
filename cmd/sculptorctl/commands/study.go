package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/benvon/sculptor/internal/models"
	"github.com/benvon/sculptor/internal/services/career"
	"github.com/spf13/cobra"
)

func newQuizCmd(opts *Options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "quiz <topic>",
		Short: "Generate multiple-choice practice questions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				provider, err := a.provider()
				if err != nil {
					return err
				}
				items, err := career.NewStudyEngine(provider, a.cfg.AIModel, a.logger).
					Quiz(cmd.Context(), strings.Join(args, " "), count)
				if err != nil {
					return err
				}
				printQuiz(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of questions")
	return cmd
}

func printQuiz(out io.Writer, items []models.QuizItem) {
	for i, item := range items {
		_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, item.Question)
		for j, option := range item.Options {
			marker := " "
			if j == item.CorrectIndex {
				marker = "*"
			}
			_, _ = fmt.Fprintf(out, "   %s %c) %s\n", marker, 'a'+j, option)
		}
		_, _ = fmt.Fprintln(out)
	}
}

func newFlashcardsCmd(opts *Options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "flashcards <topic>",
		Short: "Generate front/back study cards",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				provider, err := a.provider()
				if err != nil {
					return err
				}
				cards, err := career.NewStudyEngine(provider, a.cfg.AIModel, a.logger).
					Flashcards(cmd.Context(), strings.Join(args, " "), count)
				if err != nil {
					return err
				}
				printFlashcards(cmd.OutOrStdout(), cards)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of cards")
	return cmd
}

func printFlashcards(out io.Writer, cards []models.Flashcard) {
	for i, card := range cards {
		_, _ = fmt.Fprintf(out, "%d. %s\n   -> %s\n", i+1, card.Front, card.Back)
	}
}
