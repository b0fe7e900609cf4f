package store

import (
	"context"
	"fmt"

	"blog/models"

	"gorm.io/gorm/clause"
)

// CreateFollow создает подписку. false - такая пара уже была (ON CONFLICT DO NOTHING).
func (s *Store) CreateFollow(ctx context.Context, userID, authorID int64) (bool, error) {
	follow := models.Follow{UserID: userID, AuthorID: authorID}
	res := s.write(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "author_id"}},
			DoNothing: true,
		}).
		Create(&follow)
	if res.Error != nil {
		return false, fmt.Errorf("create follow %d->%d: %w", userID, authorID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteFollow удаляет подписку. false - удалять было нечего.
func (s *Store) DeleteFollow(ctx context.Context, userID, authorID int64) (bool, error) {
	res := s.write(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, fmt.Errorf("delete follow %d->%d: %w", userID, authorID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) IsFollowing(ctx context.Context, userID, authorID int64) (bool, error) {
	var count int64
	err := s.read(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	return count > 0, err
}

// FollowerCount - сколько пользователей подписано на authorID
func (s *Store) FollowerCount(ctx context.Context, authorID int64) (int64, error) {
	var count int64
	err := s.read(ctx).Model(&models.Follow{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

// FollowingCount - на скольких авторов подписан userID
func (s *Store) FollowingCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.read(ctx).Model(&models.Follow{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// FollowerIDs - id подписчиков автора, для рассылки о новых постах
func (s *Store) FollowerIDs(ctx context.Context, authorID int64) ([]int64, error) {
	var ids []int64
	err := s.read(ctx).Model(&models.Follow{}).
		Where("author_id = ?", authorID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
