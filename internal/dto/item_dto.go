package dto

import "github.com/noah-isme/lostfound-api/internal/models"

// ItemCreateRequest is the payload to post a lost or found item. Photo carries the
// image as a data URL.
type ItemCreateRequest struct {
	Name        string `json:"name" validate:"required"`
	Number      string `json:"number" validate:"required"`
	Description string `json:"description" validate:"required"`
	Photo       string `json:"photo" validate:"required"`
}

// ItemResponse is the serialized representation of an item.
type ItemResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Number      string `json:"number"`
	Description string `json:"description"`
	Photo       string `json:"photo"`
	Timestamp   int64  `json:"timestamp"`
	Likes       int64  `json:"likes"`
}

// NewItemResponse converts a model into a DTO.
func NewItemResponse(item models.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Number:      item.Number,
		Description: item.Description,
		Photo:       item.Photo,
		Timestamp:   item.Timestamp,
		Likes:       item.Likes,
	}
}

// NewItemResponseSlice converts a slice of models into DTOs.
func NewItemResponseSlice(items []models.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewItemResponse(item))
	}
	return out
}

// CommentCreateRequest adds a comment to an item.
type CommentCreateRequest struct {
	Name string `json:"name" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// CommentResponse describes a serialized comment.
type CommentResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// NewCommentResponseSlice converts comments to DTOs.
func NewCommentResponseSlice(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, CommentResponse{
			ID:        comment.ID,
			Name:      comment.Name,
			Text:      comment.Text,
			Timestamp: comment.Timestamp,
		})
	}
	return out
}
