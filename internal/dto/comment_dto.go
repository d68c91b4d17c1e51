package dto

import (
	"time"

	"github.com/klasse-app/klasse-api/internal/models"
)

// CommentCreateRequest appends a comment to a submission thread.
type CommentCreateRequest struct {
	SubmissionID uint   `json:"submission_id" validate:"required,gt=0"`
	Content      string `json:"content" validate:"required,min=1"`
}

// CommentResponse is returned to API clients when viewing comment threads.
type CommentResponse struct {
	ID           uint      `json:"id"`
	SubmissionID uint      `json:"submission_id"`
	AuthorID     uint      `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewCommentResponse converts a Comment model into a DTO.
func NewCommentResponse(model models.Comment) CommentResponse {
	response := CommentResponse{
		ID:           model.ID,
		SubmissionID: model.SubmissionID,
		AuthorID:     model.AuthorID,
		Content:      model.Content,
		CreatedAt:    model.CreatedAt,
	}

	if model.Author.ID != 0 {
		response.AuthorName = model.Author.DisplayName()
	}

	return response
}

// NewCommentResponseSlice converts comment models into DTOs.
func NewCommentResponseSlice(comments []models.Comment) []CommentResponse {
	responses := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		responses = append(responses, NewCommentResponse(comment))
	}

	return responses
}
