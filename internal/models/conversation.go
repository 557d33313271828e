package models

import "time"

// Message roles accepted by AppendMessage. The system role is composed by
// the model gateway and never persisted.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidRole reports whether role may be persisted on a Message node.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// Conversation is a chat thread owned by an organization.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
