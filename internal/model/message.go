package model

import "time"

// Message is one turn of a conversation. Rows are immutable once written;
// CreatedAt is assigned server-side and defines conversation order within a
// session.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"column:message;type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"column:timestamp;index" json:"timestamp"`
}

// TableName keeps the table named after what it holds: the chat history.
func (Message) TableName() string { return "history" }

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
