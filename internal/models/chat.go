package models

import "gorm.io/datatypes"

// ReplySnapshot is a frozen copy of the message a chat message answers.
type ReplySnapshot struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Image     bool   `json:"image"`
}

// IsZero reports whether the snapshot carries no reply.
func (r ReplySnapshot) IsZero() bool {
	return r == ReplySnapshot{}
}

// ChatMessage is a single post in the global chat room.
type ChatMessage struct {
	ID        string                            `gorm:"primaryKey;size:26" json:"id"`
	Name      string                            `gorm:"size:64;not null" json:"name"`
	Message   string                            `gorm:"type:text" json:"message"`
	Image     string                            `gorm:"type:text" json:"image,omitempty"`
	ImageType string                            `gorm:"size:64" json:"imageType,omitempty"`
	ReplyTo   datatypes.JSONType[ReplySnapshot] `json:"replyTo"`
	Timestamp int64                             `gorm:"index;not null" json:"timestamp"`
}
