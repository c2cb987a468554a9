package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/dispatcher"
	"github.com/Alpha200/ha-ai-tasker/internal/service/ui"
)

// printSender stands in for the chat transport.
type printSender struct {
	out io.Writer
}

func (p printSender) Send(_ context.Context, text string) error {
	_, err := fmt.Fprintf(p.out, "%s %s\n", ui.TitleStyle.Render("→"), text)
	return err
}

var processCmd = &cobra.Command{
	Use:          "process <payload>",
	Short:        "Run one trigger locally and print the outcome",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		ev, err := dispatcher.ParseTrigger(strings.Join(args, " "), time.Now())
		if err != nil {
			return err
		}

		app := newApp(ctx)
		defer app.close(ctx)
		app.dispatcher.SetSender(printSender{out: cmd.OutOrStdout()})

		out := app.dispatcher.Dispatch(ctx, ev)
		printOutcome(cmd.OutOrStdout(), out)
		if out.Outcome == core.OutcomeError {
			return fmt.Errorf("run failed: %s", out.Detail)
		}
		return nil
	},
}

func printOutcome(w io.Writer, out core.RunOutcome) {
	style, ok := ui.OutcomeStyles[string(out.Outcome)]
	if !ok {
		style = ui.DescStyle
	}
	fmt.Fprintf(w, "%s %s\n", style.Render(string(out.Outcome)), ui.DescStyle.Render(out.Detail))
}

func init() {
	rootCmd.AddCommand(processCmd)
}
