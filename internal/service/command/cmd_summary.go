package command

import (
	"context"
)

type SummaryCommand struct {
	summarizer Summarizer
}

func NewSummaryCommand(summarizer Summarizer) *SummaryCommand {
	return &SummaryCommand{summarizer: summarizer}
}

func (c *SummaryCommand) Name() string {
	return "summary"
}

func (c *SummaryCommand) Description() string {
	return "Show what is coming up (/summary de for German)"
}

func (c *SummaryCommand) Execute(ctx context.Context, _ string, args []string) (string, error) {
	lang := ""
	if len(args) > 0 {
		lang = args[0]
	}
	return c.summarizer.SummaryMarkdown(ctx, lang)
}
