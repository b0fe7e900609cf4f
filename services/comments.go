package services

import (
	"context"
	"strings"

	"blog/models"
	"blog/store"
)

type CommentInput struct {
	Text string `form:"text" json:"text" validate:"required"`
}

type CommentService struct {
	store *store.Store
}

func NewCommentService(st *store.Store) *CommentService {
	return &CommentService{store: st}
}

// CreateComment добавляет комментарий viewer к посту username/postID.
// Пустой текст - ValidationError, ничего не сохраняется.
func (cs *CommentService) CreateComment(ctx context.Context, viewer *models.User, username string, postID int64, in CommentInput) (*models.Comment, error) {
	if viewer == nil {
		return nil, ErrAuthRequired
	}
	post, err := cs.store.PostByAuthorAndID(ctx, username, postID)
	if err != nil {
		return nil, err
	}

	in.Text = strings.TrimSpace(in.Text)
	verr := &ValidationError{}
	if err := validateStruct(in, verr); err != nil {
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: viewer.ID,
		Text:     in.Text,
	}
	if err := cs.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = viewer
	return comment, nil
}
