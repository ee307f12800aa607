package dto

import "github.com/noah-isme/lostfound-api/internal/models"

// ChatReply references the message being answered, as the client saw it.
type ChatReply struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Image     bool   `json:"image"`
}

// ChatPostRequest represents the payload sent by clients to post into the room.
type ChatPostRequest struct {
	Name      string     `json:"name" validate:"required,max=30"`
	Message   string     `json:"message" validate:"max=500"`
	Image     string     `json:"image,omitempty"`
	ImageType string     `json:"imageType,omitempty"`
	ReplyTo   *ChatReply `json:"replyTo,omitempty"`
}

// ChatMessageResponse is the serialized representation of a chat message.
type ChatMessageResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Message   string     `json:"message"`
	Image     string     `json:"image,omitempty"`
	ImageType string     `json:"imageType,omitempty"`
	ReplyTo   *ChatReply `json:"replyTo,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// HasImage reports whether the message carries an image.
func (m ChatMessageResponse) HasImage() bool {
	return m.Image != ""
}

// NewChatMessageResponse converts a model into a DTO.
func NewChatMessageResponse(message models.ChatMessage) ChatMessageResponse {
	response := ChatMessageResponse{
		ID:        message.ID,
		Name:      message.Name,
		Message:   message.Message,
		Image:     message.Image,
		ImageType: message.ImageType,
		Timestamp: message.Timestamp,
	}
	if snapshot := message.ReplyTo.Data(); !snapshot.IsZero() {
		response.ReplyTo = &ChatReply{
			Name:      snapshot.Name,
			Message:   snapshot.Message,
			Timestamp: snapshot.Timestamp,
			Image:     snapshot.Image,
		}
	}
	return response
}

// NewChatMessageResponseSlice converts a slice of models into DTOs.
func NewChatMessageResponseSlice(messages []models.ChatMessage) []ChatMessageResponse {
	out := make([]ChatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewChatMessageResponse(message))
	}
	return out
}
