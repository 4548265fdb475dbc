package types

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered list of role tagged turns.
type Conversation []Message

// LastContent returns the content of the final turn, or "" for an empty conversation.
func (c Conversation) LastContent() string {
	if len(c) == 0 {
		return ""
	}
	return c[len(c)-1].Content
}

// LastUserContent returns the content of the final user turn.
func (c Conversation) LastUserContent() string {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleUser {
			return c[i].Content
		}
	}
	return ""
}

// WithAssistant returns a copy of the conversation extended with one assistant turn.
func (c Conversation) WithAssistant(content string) Conversation {
	out := make(Conversation, len(c), len(c)+1)
	copy(out, c)
	return append(out, Message{Role: RoleAssistant, Content: content})
}

type GeneratedOutput struct {
	GeneratedText Conversation `json:"generated_text"`
}
