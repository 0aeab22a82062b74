package prompt

// BaseSystemInstruction anchors every system prompt. It is prepended
// verbatim before any scenario-specific instructions.
const BaseSystemInstruction = `You are an expert storyteller. Your primary goal is to seamlessly continue the narrative from the exact point where the previous turn left off. If a sentence ends with an open quotation mark (e.g., 'He said, "') or appears incomplete, you MUST continue that sentence directly, filling in the dialogue or completing the thought as if you are picking up mid-stream. Do not repeat the preceding text. Directly address and incorporate the player's latest action. Maintain strict consistency with the established tone, context, characters, and all prior events in the story.`

const (
	// DefaultHistoryLimit is the number of most recent turns included
	// in the conversation window.
	DefaultHistoryLimit = 20

	// TriggerWindowTurns is the number of most recent turn texts
	// scanned for card trigger words, in addition to the pending
	// player input.
	TriggerWindowTurns = 5
)

const (
	cardBlockHeader = "Relevant Story Cards (inject these into the narrative):"
	cardEntryFormat = "\n\n[%s: %s]\n%s"
)
