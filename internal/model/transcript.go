package model

import "time"

// TranscriptMessage is the durable copy of a session transcript entry,
// written asynchronously by the archive worker. Live sessions remain the
// source of truth for an in-flight conversation.
type TranscriptMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
