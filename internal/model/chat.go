package model

import "time"

// Chat message roles as stored in chat_messages.role.  They mirror the
// roles of the underlying chat-completions API.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of a user's chatbot conversation, mirroring
// the `chat_messages` table.  Assistant turns additionally record the
// intent the model classified so the history endpoint can expose it.
type ChatMessage struct {
	ID        uint64    // chat_messages.id
	UserID    uint64    // chat_messages.user_id
	Role      string    // chat_messages.role ("user" or "assistant")
	Content   string    // chat_messages.content
	Intent    string    // chat_messages.intent (assistant turns, may be empty)
	CreatedAt time.Time // chat_messages.created_at
}
