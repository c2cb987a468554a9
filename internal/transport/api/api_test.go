package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/dispatcher"
)

type fakeDispatcher struct {
	mu         sync.Mutex
	events     []core.TriggerEvent
	outcome    core.RunOutcome
	summary    dispatcher.Summary
	summaryErr error
	lang       string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, ev core.TriggerEvent) core.RunOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.outcome
}

func (f *fakeDispatcher) Summarize(_ context.Context, lang string) (dispatcher.Summary, error) {
	f.lang = lang
	return f.summary, f.summaryErr
}

func decode[T any](resp *http.Response) T {
	var out T
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, &out)).To(Succeed())
	return out
}

var _ = Describe("Server", func() {
	var (
		server *Server
		fake   *fakeDispatcher
		now    time.Time
	)

	BeforeEach(func() {
		fake = &fakeDispatcher{}
		now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		server = NewServer(Config{ListenAddr: ":0", ServiceName: "HA AI Tasker"}, fake)
		server.now = func() time.Time { return now }
	})

	process := func(body string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, "/process", strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	Describe("GET /health", func() {
		It("reports the service name", func() {
			req, _ := http.NewRequest(http.MethodGet, "/health", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[HealthResponse](resp).Message).To(Equal("HA AI Tasker is running"))
		})
	})

	Describe("POST /process", func() {
		It("dispatches a timer trigger and returns the sent message", func() {
			fake.outcome = core.RunOutcome{Outcome: core.OutcomeSuccess, Messages: []string{"Take out the bins"}}

			resp := process("hourly check")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[ProcessResponse](resp).AIResponse).To(Equal("Take out the bins"))

			Expect(fake.events).To(HaveLen(1))
			Expect(fake.events[0].Kind).To(Equal(core.TriggerTimer))
			Expect(fake.events[0].ReceivedAt).To(Equal(now))
		})

		It("recognizes geofence payloads", func() {
			fake.outcome = core.RunOutcome{Outcome: core.OutcomeNoAction}

			resp := process("User entered zone.supermarket")
			Expect(decode[ProcessResponse](resp).AIResponse).To(Equal("No response generated"))
			Expect(fake.events[0].Kind).To(Equal(core.TriggerGeofence))
			Expect(fake.events[0].Place).To(Equal("supermarket"))
		})

		It("embeds run errors in a 200 response", func() {
			fake.outcome = core.RunOutcome{Outcome: core.OutcomeError, Detail: "memory store unavailable"}

			resp := process("hourly check")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[ProcessResponse](resp).AIResponse).To(Equal("Error processing with AI: memory store unavailable"))
		})

		It("rejects empty payloads without dispatching", func() {
			resp := process("   ")
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[ProcessResponse](resp).AIResponse).To(HavePrefix("Error processing with AI: "))
			Expect(fake.events).To(BeEmpty())
		})

		It("rejects unknown JSON trigger kinds", func() {
			resp := process(`{"kind":"earthquake"}`)
			Expect(decode[ProcessResponse](resp).AIResponse).To(ContainSubstring("unknown trigger kind"))
			Expect(fake.events).To(BeEmpty())
		})
	})

	Describe("GET /summary", func() {
		It("passes the language through", func() {
			fake.summary = dispatcher.Summary{Content: "Nothing planned", Markdown: "Nothing planned", Timestamp: now, Language: "de"}

			req, _ := http.NewRequest(http.MethodGet, "/summary?lang=de", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			got := decode[dispatcher.Summary](resp)
			Expect(got.Language).To(Equal("de"))
			Expect(got.Content).To(Equal("Nothing planned"))
			Expect(fake.lang).To(Equal("de"))
		})

		It("defaults to English", func() {
			req, _ := http.NewRequest(http.MethodGet, "/summary", nil)
			_, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.lang).To(Equal("en"))
		})

		It("describes failures in the body", func() {
			fake.summaryErr = errors.New("store down")

			req, _ := http.NewRequest(http.MethodGet, "/summary", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
			Expect(decode[ErrorResponse](resp).Error).To(ContainSubstring("store down"))
		})
	})
})
