package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"bioask/pkg/answer"
	"bioask/pkg/chat"
	"bioask/pkg/session"
	"bioask/pkg/ui/render"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultAnswerWidth = 80

type askOptions struct {
	noStream bool
	jsonOut  bool
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			settings, _ := a.settings(cmd.Context())
			return runAsk(cmd.Context(), a.service, settings, strings.Join(args, " "), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noStream, "no-stream", false, "print the answer once it is complete")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the structured answer as JSON")
	return cmd
}

func runAsk(ctx context.Context, svc *chat.Service, settings session.Settings, question string, out io.Writer, opts askOptions) error {
	sess := session.New(settings)

	if !opts.noStream && !opts.jsonOut {
		turn, err := svc.Ask(ctx, sess, question, func(delta string) {
			fmt.Fprint(out, delta)
		})
		if err != nil {
			if turn != nil && turn.Text() != "" {
				fmt.Fprintln(out)
			}
			return fmt.Errorf("communicating with the LLM: %w", err)
		}
		result, _ := turn.Finish()
		fmt.Fprintln(out)
		writeMetadata(out, result)
		return nil
	}

	completion, err := svc.Complete(ctx, sess, question)
	if err != nil {
		return fmt.Errorf("communicating with the LLM: %w", err)
	}
	result := completion.Answer

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	body := result.Answer
	if isTerminal(out) {
		body = render.NewMarkdownRenderer("").Render(body, terminalWidth(out))
	}
	fmt.Fprintln(out, body)
	writeMetadata(out, result)
	return nil
}

func writeMetadata(w io.Writer, result answer.StructuredAnswer) {
	fmt.Fprintf(w, "\nConfidence Score: %s\n", result.Confidence)
	if len(result.Topics) > 0 {
		fmt.Fprintf(w, "Related Topics to Explore: %s\n", strings.Join(result.Topics, ", "))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultAnswerWidth
}
