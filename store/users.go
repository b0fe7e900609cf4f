package store

import (
	"context"
	"fmt"

	"blog/models"

	"gorm.io/gorm"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.write(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.read(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.read(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.read(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// DeleteUser удаляет пользователя вместе с токенами, подписками, постами и комментариями
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.write(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return deleteWithRules(tx, "users", []int64{id})
	})
}

func (s *Store) CreateToken(ctx context.Context, userID int64, token string) error {
	err := s.write(ctx).Create(&models.UserToken{UserID: userID, Token: token}).Error
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// UserByToken находит владельца токена
func (s *Store) UserByToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := s.read(ctx).
		Joins("JOIN user_tokens ON user_tokens.user_id = users.id").
		Where("user_tokens.token = ?", token).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// DeleteTokens удаляет все токены пользователя (логаут)
func (s *Store) DeleteTokens(ctx context.Context, userID int64) error {
	return s.write(ctx).Where("user_id = ?", userID).Delete(&models.UserToken{}).Error
}

// Users - пользователи по возрастанию id, limit 0 - все
func (s *Store) Users(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	q := s.read(ctx).Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&users).Error
	return users, err
}
