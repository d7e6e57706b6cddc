package synthesis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("ChatClient", func() {
	var (
		server   *ghttp.Server
		client   *ChatClient
		captured []byte
		body     string
		err      error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		client, newErr = NewChatClient(ChatConfig{
			BaseURL: server.URL() + "/v1/",
			APIKey:  "test-key",
			Model:   "test-model",
			Timeout: time.Second,
		}, nil)
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		body, err = client.Complete(context.Background(), "Chapter 1\nLine A")
	})

	When("the endpoint returns a completion", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer test-key"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var readErr error
					captured, readErr = io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"choices": []map[string]any{
						{"message": map[string]any{"role": "assistant", "content": "  Hello synthesis \n"}},
					},
				}),
			))
		})

		It("returns the completion exactly as sent", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal("  Hello synthesis \n"))
		})

		It("sends the instruction, the text and the token bound", func() {
			Expect(server.ReceivedRequests()).To(HaveLen(1))

			var req chatRequest
			Expect(json.Unmarshal(captured, &req)).To(Succeed())
			Expect(req.Model).To(Equal("test-model"))
			Expect(req.MaxTokens).To(Equal(1000))
			Expect(req.Temperature).To(Equal(0.7))
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Role).To(Equal("system"))
			Expect(req.Messages[0].Content).To(ContainSubstring("key points"))
			Expect(req.Messages[1]).To(Equal(chatMessage{
				Role:    "user",
				Content: "Write a structured synthesis of this course:\n\nChapter 1\nLine A",
			}))
		})
	})

	When("the endpoint returns a non-success status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, `{"error":"bad key"}`))
		})

		It("returns ErrRemoteFailure", func() {
			Expect(err).To(MatchError(ErrRemoteFailure))
			Expect(err.Error()).To(ContainSubstring("401"))
		})
	})

	When("the body is malformed", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"choices": [`))
		})

		It("returns ErrRemoteFailure", func() {
			Expect(err).To(MatchError(ErrRemoteFailure))
		})
	})

	When("there are no choices", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"choices": []any{}}))
		})

		It("returns ErrRemoteFailure", func() {
			Expect(err).To(MatchError(ErrRemoteFailure))
		})
	})

	When("the choice has no message", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"choices": []map[string]any{{"index": 0}},
			}))
		})

		It("returns ErrRemoteFailure", func() {
			Expect(err).To(MatchError(ErrRemoteFailure))
		})
	})

	When("the completion is blank", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": " \n "}}},
			}))
		})

		It("returns ErrRemoteFailure", func() {
			Expect(err).To(MatchError(ErrRemoteFailure))
		})
	})

	When("the server is unreachable", func() {
		BeforeEach(func() {
			server.Close()
		})

		It("returns ErrRemoteFailure", func() {
			Expect(err).To(MatchError(ErrRemoteFailure))
		})
	})
})

var _ = Describe("NewChatClient", func() {
	It("requires an API key", func() {
		_, err := NewChatClient(ChatConfig{}, nil)
		Expect(err).To(HaveOccurred())
	})
})
