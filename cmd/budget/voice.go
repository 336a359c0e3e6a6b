package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-budget-must-balance/internal/cli"
	"github.com/Veraticus/the-budget-must-balance/internal/extraction"
	"github.com/Veraticus/the-budget-must-balance/internal/recording"
)

func voiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voice <audio-file>",
		Short: "Record incomes and expenses from a voice memo",
		Long: `Transcribe an audio file and add every income and expense mentioned in it.

When no API key is configured, or the remote service fails, the transcript is
processed by the offline extractor instead. Press Ctrl-C while processing to
cancel; nothing is recorded from a canceled extraction.`,
		Example: `  budget voice ~/memos/paycheck.m4a`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recorder := recording.NewFileRecorder(args[0])

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Canceling extraction...")
			ctx := handler.HandleInterrupts(cmd.Context(), func() {
				recorder.Cancel()
				a.session.Cancel()
			})

			audio, err := recording.Capture(ctx, recorder)
			if err != nil {
				return fmt.Errorf("failed to read recording: %w", err)
			}

			// Interrupts discard the result; the request itself runs to completion.
			ch, err := a.session.Start(context.WithoutCancel(ctx), audio)
			if err != nil {
				return err
			}
			return awaitAndRender(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), a, ch)
		},
	}
}

func sayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say [text]",
		Short: "Record incomes and expenses from a sentence",
		Long: `Extract incomes and expenses from typed text, as if it had been spoken.

With no argument, reads one utterance per line from standard input until EOF.`,
		Example: `  budget say "I make 5000 a month and rent is 1500"
  echo "netflix is 15 a month" | budget say`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Canceling extraction...")
			ctx := handler.HandleInterrupts(cmd.Context(), func() {
				a.session.Cancel()
			})

			if len(args) > 0 {
				return sayOnce(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), a, strings.Join(args, " "))
			}
			return sayInteractive(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), a)
		},
	}
}

func sayOnce(ctx context.Context, w, progress io.Writer, a *app, text string) error {
	ch, err := a.session.StartText(context.WithoutCancel(ctx), text)
	if err != nil {
		return err
	}
	return awaitAndRender(ctx, w, progress, a, ch)
}

func sayInteractive(ctx context.Context, in io.Reader, w, progress io.Writer, a *app) error {
	reader := cli.NewNonBlockingReader(in)
	if isTerminal(in) {
		fmt.Fprintln(w, cli.FormatInfo(cli.MicIcon+" Tell me about an income or expense (Ctrl-D to finish)"))
	}

	for {
		line, err := reader.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w, cli.RenderSummary(a.ledger.Summary()))
			return nil
		}
		if errors.Is(err, cli.ErrInputCancelled) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := sayOnce(ctx, w, progress, a, line); err != nil {
			return err
		}
	}
}

// awaitAndRender shows progress on the progress writer and the outcome on w.
// A canceled extraction is reported but is not an error.
func awaitAndRender(ctx context.Context, w, progress io.Writer, a *app, ch <-chan extraction.Outcome) error {
	out, err := cli.AwaitOutcome(ctx, progress, a.session, ch)
	fmt.Fprintln(w, cli.RenderOutcome(out))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
