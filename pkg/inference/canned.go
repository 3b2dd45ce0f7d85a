package inference

// apology is the soft-failure reply for a remote response the relay cannot
// interpret.
const apology = "I'm sorry, I couldn't put together a proper answer just now."

// exhaustedApology closes a turn when every attempt of both tiers failed and
// the canned pool is disabled.
const exhaustedApology = "I'm sorry, I'm having trouble reaching my reasoning service. Could we try again in a moment?"

// cannedReplies is the last-resort pool. Entries must stand on their own with
// no knowledge of the conversation, since the remote service is unreachable
// when they are used.
var cannedReplies = []string{
	"Let me offer a structured starting point while my data sources recover: list the decision's top three measurable outcomes, then rank them by reversibility. The least reversible one deserves your attention first.",
	"A useful default under uncertainty: protect the core business, run one small disruptive bet, and revisit both in thirty days with concrete numbers.",
	"When information is incomplete, anchor on what is measurable today. Pick the option you can instrument, set a threshold for changing course, and commit to it.",
	"My suggestion for now: frame the choice as incremental versus long-term. If the incremental path keeps the long-term one open, take it and re-evaluate next quarter.",
}
