package scanning

import (
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receipt-splitter/internal/parsing"
)

var _ = Describe("Ollama", func() {
	var (
		server   *ghttp.Server
		detector *Ollama
		request  ollamaChatRequest
		words    []parsing.Word
		err      error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		detector, err = NewOllama(server.URL()+"/", "qwen2-vl")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		words, err = detector.DetectWords([]byte("png bytes"), "image/png")
	})

	When("the model returns words", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())
					Expect(json.Unmarshal(body, &request)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{
						Role:    "assistant",
						Content: `[{"text": "Soup", "box_2d": [100, 100, 120, 300]}]`,
					},
					Done: true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should attach the image to the user message", func() {
			Expect(request.Model).To(Equal("qwen2-vl"))
			Expect(request.Messages).To(HaveLen(2))
			Expect(request.Messages[1].Images).To(ConsistOf("cG5nIGJ5dGVz"))
		})

		It("should return the parsed words", func() {
			Expect(words).To(HaveLen(1))
			Expect(words[0].Text).To(Equal("Soup"))
		})
	})

	When("the server responds with an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
		})
	})
})
