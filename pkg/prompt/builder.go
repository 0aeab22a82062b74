package prompt

import (
	"fmt"
	"strings"

	"github.com/imaginai/adventure-engine/pkg/adventure"
	"github.com/imaginai/adventure-engine/pkg/chat"
	"github.com/imaginai/adventure-engine/pkg/trigger"
)

// Builder constructs chat messages for LLM interaction using a fluent
// interface. It separates prompt assembly from turn lifecycle management.
type Builder struct {
	adv          *adventure.Adventure
	turns        []adventure.Turn
	userText     string
	historyLimit int
	messages     []chat.Message
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: DefaultHistoryLimit,
		messages:     make([]chat.Message, 0),
	}
}

// WithAdventure sets the adventure whose snapshot drives the system prompt.
func (b *Builder) WithAdventure(adv *adventure.Adventure) *Builder {
	b.adv = adv
	return b
}

// WithTurns sets the full turn history in storage order.
func (b *Builder) WithTurns(turns []adventure.Turn) *Builder {
	b.turns = turns
	return b
}

// WithUserText sets the pending player input. Leave empty for a
// continue-style generation that extends the existing history.
func (b *Builder) WithUserText(text string) *Builder {
	b.userText = text
	return b
}

// WithHistoryLimit sets the turn history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build constructs and returns the final message array for LLM consumption.
// Output is deterministic for identical inputs.
func (b *Builder) Build() ([]chat.Message, error) {
	if b.adv == nil {
		return nil, fmt.Errorf("adventure is required")
	}

	// Reset messages
	b.messages = make([]chat.Message, 0)

	// 1. System prompt with any triggered story cards
	b.addSystemPrompt()

	// 2. Windowed turn history
	b.addHistory()

	// 3. Pending player input
	b.addUserText()

	return b.messages, nil
}

// addSystemPrompt builds the system message from the base instruction and
// the adventure's scenario snapshot.
func (b *Builder) addSystemPrompt() {
	var sb strings.Builder

	sb.WriteString(BaseSystemInstruction)

	snap := b.adv.Snapshot
	if snap.Instructions != "" {
		sb.WriteString("\n\n" + snap.Instructions)
	}
	if snap.PlotEssentials != "" {
		sb.WriteString("\n\nPlot Essentials:\n" + snap.PlotEssentials)
	}
	if snap.AuthorsNotes != "" {
		sb.WriteString("\n\nAuthor's Notes:\n" + snap.AuthorsNotes)
	}

	if matched := trigger.Match(b.triggerWindow(), snap.Cards); len(matched) > 0 {
		sb.WriteString("\n\n" + cardBlockHeader)
		for _, card := range matched {
			sb.WriteString(fmt.Sprintf(cardEntryFormat, card.Type, card.Title, card.FullContent))
		}
	}

	b.messages = append(b.messages, chat.Message{
		Role:    chat.RoleSystem,
		Content: sb.String(),
	})
}

// triggerWindow concatenates the most recent turn texts with the pending
// player input to form the text scanned for card trigger words.
func (b *Builder) triggerWindow() string {
	start := len(b.turns) - TriggerWindowTurns
	if start < 0 {
		start = 0
	}

	parts := make([]string, 0, TriggerWindowTurns+1)
	for _, t := range b.turns[start:] {
		parts = append(parts, t.Text)
	}
	if b.userText != "" {
		parts = append(parts, b.userText)
	}
	return strings.Join(parts, " ")
}

// addHistory adds the windowed turn history to the message array.
// Model turns map to the assistant role.
func (b *Builder) addHistory() {
	start := len(b.turns) - b.historyLimit
	if start < 0 {
		start = 0
	}

	for _, t := range b.turns[start:] {
		role := chat.RoleUser
		if t.Role == adventure.RoleModel {
			role = chat.RoleAssistant
		}
		b.messages = append(b.messages, chat.Message{
			Role:    role,
			Content: t.Text,
		})
	}
}

// addUserText appends the pending player input, if any.
func (b *Builder) addUserText() {
	if b.userText == "" {
		return
	}

	b.messages = append(b.messages, chat.Message{
		Role:    chat.RoleUser,
		Content: b.userText,
	})
}

// BuildMessages is a convenience function for the common case.
func BuildMessages(adv *adventure.Adventure, turns []adventure.Turn, userText string, historyLimit int) ([]chat.Message, error) {
	return New().
		WithAdventure(adv).
		WithTurns(turns).
		WithUserText(userText).
		WithHistoryLimit(historyLimit).
		Build()
}
