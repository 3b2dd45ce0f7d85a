package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/parleylabs/parley/pkg/chat"
	"github.com/parleylabs/parley/pkg/config"
)

// upstream is a scripted inference backend. Each handler decides the response
// for its path; the recorder keeps every decoded request body in order.
type upstream struct {
	mu       sync.Mutex
	chatReqs []chatRequest
	genReqs  []generateRequest
	srv      *httptest.Server
}

func newUpstream(chatHandler, genHandler func(n int, w http.ResponseWriter)) *upstream {
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		u.mu.Lock()
		var req chatRequest
		Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
		u.chatReqs = append(u.chatReqs, req)
		n := len(u.chatReqs)
		u.mu.Unlock()
		chatHandler(n, w)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		u.mu.Lock()
		var req generateRequest
		Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
		u.genReqs = append(u.genReqs, req)
		n := len(u.genReqs)
		u.mu.Unlock()
		genHandler(n, w)
	})
	u.srv = httptest.NewServer(mux)
	return u
}

func (u *upstream) chatCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.chatReqs)
}

func replyWith(content string) func(int, http.ResponseWriter) {
	return func(_ int, w http.ResponseWriter) {
		Expect(json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": content},
		})).To(Succeed())
	}
}

func alwaysStatus(code int) func(int, http.ResponseWriter) {
	return func(_ int, w http.ResponseWriter) { w.WriteHeader(code) }
}

var _ = Describe("Client", func() {
	var (
		client *Client
		cfg    *config.Runtime
		sleeps []time.Duration
	)

	newCfg := func(endpoint string) *config.Runtime {
		c := config.NewDefaultRuntime()
		c.Endpoint = endpoint + "/api/chat"
		c.AltEndpoint = ""
		c.MaxAttempts = 3
		return &c
	}

	BeforeEach(func() {
		sleeps = nil
		client = NewClient("You are a seasoned advisor.", zap.NewNop())
		client.sleep = func(ctx context.Context, d time.Duration) bool {
			sleeps = append(sleeps, d)
			return true
		}
		client.pick = func(n int) int { return 0 }
	})

	It("returns the primary reply on a healthy first attempt", func() {
		up := newUpstream(replyWith("Focus on margin."), alwaysStatus(500))
		defer up.srv.Close()
		cfg = newCfg(up.srv.URL)

		reply := client.Complete(context.Background(), cfg, nil, "What first?")
		Expect(reply.Source).To(Equal(SourcePrimary))
		Expect(reply.Text).To(Equal("Focus on margin."))
		Expect(sleeps).To(BeEmpty())
	})

	It("sends persona, history, and the new message in order", func() {
		up := newUpstream(replyWith("ok"), alwaysStatus(500))
		defer up.srv.Close()
		cfg = newCfg(up.srv.URL)
		cfg.Model = "llama3:8b"
		cfg.Temperature = 0.7

		history := []chat.Turn{
			chat.NewTurn(chat.RoleUser, "earlier question"),
			chat.NewTurn(chat.RoleAssistant, "earlier answer"),
		}
		client.Complete(context.Background(), cfg, history, "new question")

		Expect(up.chatReqs).To(HaveLen(1))
		req := up.chatReqs[0]
		Expect(req.Model).To(Equal("llama3:8b"))
		Expect(req.Stream).To(BeFalse())
		Expect(req.Options.Temperature).To(BeNumerically("~", 0.7))
		Expect(req.Messages).To(HaveLen(4))
		Expect(req.Messages[0].Role).To(Equal(chat.RoleSystem))
		Expect(req.Messages[0].Content).To(ContainSubstring("advisor"))
		Expect(req.Messages[1].Content).To(Equal("earlier question"))
		Expect(req.Messages[2].Content).To(Equal("earlier answer"))
		Expect(req.Messages[3].Role).To(Equal(chat.RoleUser))
		Expect(req.Messages[3].Content).To(Equal("new question"))
	})

	It("retries transient failures with exponential backoff", func() {
		up := newUpstream(func(n int, w http.ResponseWriter) {
			if n < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			replyWith("third time lucky")(n, w)
		}, alwaysStatus(500))
		defer up.srv.Close()
		cfg = newCfg(up.srv.URL)

		reply := client.Complete(context.Background(), cfg, nil, "q")
		Expect(reply.Source).To(Equal(SourcePrimary))
		Expect(reply.Text).To(Equal("third time lucky"))
		Expect(sleeps).To(Equal([]time.Duration{1 * time.Second, 2 * time.Second}))
	})

	It("switches to the alternate endpoint on a first-attempt 403 without sleeping", func() {
		denied := newUpstream(alwaysStatus(http.StatusForbidden), alwaysStatus(500))
		defer denied.srv.Close()
		alt := newUpstream(replyWith("from the alternate"), alwaysStatus(500))
		defer alt.srv.Close()

		cfg = newCfg(denied.srv.URL)
		cfg.AltEndpoint = alt.srv.URL + "/api/chat"

		reply := client.Complete(context.Background(), cfg, nil, "q")
		Expect(reply.Source).To(Equal(SourcePrimary))
		Expect(reply.Text).To(Equal("from the alternate"))
		Expect(sleeps).To(BeEmpty())
		Expect(denied.chatCalls()).To(Equal(1))
		Expect(alt.chatCalls()).To(Equal(1))
	})

	It("treats a 403 with no alternate configured as retryable", func() {
		up := newUpstream(alwaysStatus(http.StatusForbidden), alwaysStatus(500))
		defer up.srv.Close()
		cfg = newCfg(up.srv.URL)

		reply := client.Complete(context.Background(), cfg, nil, "q")
		Expect(reply.Source).To(Equal(SourceCanned))
		Expect(up.chatCalls()).To(Equal(3))
	})

	It("returns the apology for a 2xx response with no reply field", func() {
		up := newUpstream(func(_ int, w http.ResponseWriter) {
			w.Write([]byte(`{"done": true}`))
		}, alwaysStatus(500))
		defer up.srv.Close()
		cfg = newCfg(up.srv.URL)

		reply := client.Complete(context.Background(), cfg, nil, "q")
		Expect(reply.Source).To(Equal(SourceApology))
		Expect(reply.Text).To(Equal(apology))
		Expect(sleeps).To(BeEmpty())
		Expect(up.chatCalls()).To(Equal(1))
	})

	It("treats a blank reply as a shape failure", func() {
		up := newUpstream(replyWith("   "), alwaysStatus(500))
		defer up.srv.Close()
		cfg = newCfg(up.srv.URL)

		reply := client.Complete(context.Background(), cfg, nil, "q")
		Expect(reply.Source).To(Equal(SourceApology))
	})

	It("falls back to the completion endpoint when the chat tier exhausts", func() {
		up := newUpstream(alwaysStatus(500), func(_ int, w http.ResponseWriter) {
			Expect(json.NewEncoder(w).Encode(map[string]string{
				"response": "completion reply",
			})).To(Succeed())
		})
		defer up.srv.Close()
		cfg = newCfg(up.srv.URL)
		cfg.UserLabel = "Executive"
		cfg.AssistantLabel = "Advisor"

		history := []chat.Turn{
			chat.NewTurn(chat.RoleUser, "old q"),
			chat.NewTurn(chat.RoleAssistant, "old a"),
		}
		reply := client.Complete(context.Background(), cfg, history, "new q")
		Expect(reply.Source).To(Equal(SourceFallback))
		Expect(reply.Text).To(Equal("completion reply"))

		Expect(up.genReqs).To(HaveLen(1))
		prompt := up.genReqs[0].Prompt
		Expect(prompt).To(ContainSubstring("advisor"))
		Expect(prompt).To(ContainSubstring("Executive: old q"))
		Expect(prompt).To(ContainSubstring("Advisor: old a"))
		Expect(prompt).To(HaveSuffix("Executive: new q\nAdvisor: "))
	})

	It("degrades to a canned reply when both tiers exhaust", func() {
		up := newUpstream(alwaysStatus(500), alwaysStatus(503))
		defer up.srv.Close()
		cfg = newCfg(up.srv.URL)

		reply := client.Complete(context.Background(), cfg, nil, "q")
		Expect(reply.Source).To(Equal(SourceCanned))
		Expect(reply.Text).To(Equal(cannedReplies[0]))
		Expect(reply.Text).ToNot(BeEmpty())
		// Two backoff sleeps per tier.
		Expect(sleeps).To(HaveLen(4))
	})

	It("reaches the canned pool when the service is unreachable entirely", func() {
		cfg = newCfg("http://127.0.0.1:1")

		reply := client.Complete(context.Background(), cfg, nil, "q")
		Expect(reply.Source).To(Equal(SourceCanned))
		Expect(reply.Text).ToNot(BeEmpty())
	})
})

var _ = Describe("generateURL", func() {
	It("substitutes the chat path segment", func() {
		Expect(generateURL("http://localhost:11434/api/chat")).
			To(Equal("http://localhost:11434/api/generate"))
	})

	It("passes unrecognized endpoints through unchanged", func() {
		Expect(generateURL("http://localhost:11434/v1/respond")).
			To(Equal("http://localhost:11434/v1/respond"))
	})
})

var _ = Describe("backoffDelay", func() {
	It("doubles per attempt", func() {
		Expect(backoffDelay(0)).To(Equal(1 * time.Second))
		Expect(backoffDelay(1)).To(Equal(2 * time.Second))
		Expect(backoffDelay(2)).To(Equal(4 * time.Second))
	})
})
