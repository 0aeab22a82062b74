package chat

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single message sent to or received from the completion
// provider. The role/content shape follows the chat-completions wire
// format shared by the supported providers.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
