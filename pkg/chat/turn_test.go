package chat

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RenderTranscript", func() {
	It("labels each turn and keeps order", func() {
		history := []Turn{
			NewTurn(RoleUser, "how do we grow?"),
			NewTurn(RoleAssistant, "pick one channel."),
		}
		out := RenderTranscript(history, "Executive", "Advisor")
		Expect(out).To(Equal("Executive: how do we grow?\nAdvisor: pick one channel.\n"))
	})

	It("renders an empty history as an empty string", func() {
		Expect(RenderTranscript(nil, "U", "A")).To(Equal(""))
	})

	It("falls back to the assistant label for unknown roles", func() {
		out := RenderTranscript([]Turn{NewTurn("tool", "lookup done")}, "U", "A")
		Expect(out).To(Equal("A: lookup done\n"))
	})
})
