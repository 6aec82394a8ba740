package model

import "time"

// Session is one isolated conversation thread. The id is an opaque UUID
// handed out on creation; Language is the preferred response language for
// every answer generated in this session.
type Session struct {
	SessionID    string    `gorm:"primaryKey;size:64" json:"session_id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Language     string    `gorm:"size:64;not null;default:English" json:"language"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `gorm:"autoUpdateTime;index" json:"last_accessed"`
}
