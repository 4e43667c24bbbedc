package core

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation entry sent to the backend.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the append-only conversation of one task. It is owned by a
// single task loop and is not safe for concurrent mutation.
type History struct {
	messages []Message
}

// NewHistory seeds a history with the initial user message.
func NewHistory(seed string) *History {
	return &History{messages: []Message{{Role: RoleUser, Content: seed}}}
}

// Append adds a message at the end of the history.
func (h *History) Append(role Role, content string) {
	h.messages = append(h.messages, Message{Role: role, Content: content})
}

// Len returns the number of messages.
func (h *History) Len() int { return len(h.messages) }

// Messages returns a defensive copy of the conversation.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// With returns a copy of the conversation extended by one user message.
// Empty content adds nothing. The receiver is left untouched.
func (h *History) With(userContent string) []Message {
	out := make([]Message, len(h.messages), len(h.messages)+1)
	copy(out, h.messages)
	if userContent == "" {
		return out
	}
	return append(out, Message{Role: RoleUser, Content: userContent})
}

// Last returns the most recent message, if any.
func (h *History) Last() (Message, bool) {
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}
