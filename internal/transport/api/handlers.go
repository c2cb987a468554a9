package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/dispatcher"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const (
	noResponse  = "No response generated"
	errorPrefix = "Error processing with AI: "
)

type ProcessResponse struct {
	AIResponse string `json:"ai_response"`
}

type HealthResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// handleProcess runs one dispatcher pass for the raw body. It always answers
// 200 and reports failures inside ai_response.
func (s *Server) handleProcess(c *fiber.Ctx) error {
	ctx := s.baseCtx
	logger := log.FromCtx(ctx)

	body := string(c.Body())
	ev, err := dispatcher.ParseTrigger(body, s.now())
	if err != nil {
		logger.Warn().Err(err).Msg("rejected trigger")
		return c.JSON(ProcessResponse{AIResponse: errorPrefix + err.Error()})
	}

	out := s.dispatcher.Dispatch(ctx, ev)
	return c.JSON(ProcessResponse{AIResponse: processText(out)})
}

func processText(out core.RunOutcome) string {
	switch out.Outcome {
	case core.OutcomeError:
		return errorPrefix + out.Detail
	case core.OutcomeNoAction:
		return noResponse
	}
	if len(out.Messages) > 0 {
		return strings.Join(out.Messages, "\n\n")
	}
	if out.Detail != "" {
		return out.Detail
	}
	return noResponse
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Message: s.config.ServiceName + " is running"})
}

// handleSummary returns the digest in the language given by ?lang=.
func (s *Server) handleSummary(c *fiber.Ctx) error {
	summary, err := s.dispatcher.Summarize(s.baseCtx, c.Query("lang", dispatcher.LangEnglish))
	if err != nil {
		log.FromCtx(s.baseCtx).Error().Err(err).Msg("failed to build summary")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "Error generating summary: " + err.Error()})
	}
	return c.JSON(summary)
}
