package store

import (
	"context"
	"fmt"

	"blog/models"

	"gorm.io/gorm/clause"
)

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := s.write(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// CommentsByPost - комментарии в порядке добавления
func (s *Store) CommentsByPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.read(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("id").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("comments of post %d: %w", postID, err)
	}
	return comments, nil
}
