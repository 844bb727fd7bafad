package scanning

import (
	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abenov/tenge-scan/internal/fault"
)

var _ = Describe("Gemini", func() {
	Describe("NewGemini", func() {
		It("rejects a missing api key as an engine configuration failure", func() {
			_, err := NewGemini("", "gemini-2.5-flash")
			kind, ok := fault.KindOf(err)
			Expect(ok).To(BeTrue())
			Expect(kind).To(Equal(fault.EngineConfig))
		})
	})

	Describe("collectText", func() {
		It("joins the text parts of the first candidate", func() {
			resp := &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{
						Parts: []genai.Part{genai.Text("ИТОГО: "), genai.Text("4500.00\n")},
					},
				}},
			}
			Expect(collectText(resp)).To(Equal("ИТОГО: 4500.00"))
		})

		It("returns empty text for a response with no candidates", func() {
			Expect(collectText(&genai.GenerateContentResponse{})).To(BeEmpty())
		})

		It("returns empty text for a safety-blocked candidate without content", func() {
			resp := &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
			}
			Expect(collectText(resp)).To(BeEmpty())
		})
	})
})
