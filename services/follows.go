package services

import (
	"context"

	"blog/logger"
	"blog/models"
	"blog/store"

	"go.uber.org/zap"
)

type FollowService struct {
	store *store.Store
}

func NewFollowService(st *store.Store) *FollowService {
	return &FollowService{store: st}
}

// Follow подписывает viewer на username.
// На себя подписаться нельзя; повторная подписка не создает вторую связь.
func (fs *FollowService) Follow(ctx context.Context, viewer *models.User, username string) (Outcome, error) {
	if viewer == nil {
		return Outcome{}, ErrAuthRequired
	}
	author, err := fs.store.UserByUsername(ctx, username)
	if err != nil {
		return Outcome{}, err
	}
	if author.ID == viewer.ID {
		return Skipped(ReasonSelfFollow), nil
	}
	created, err := fs.store.CreateFollow(ctx, viewer.ID, author.ID)
	if err != nil {
		return Outcome{}, err
	}
	if !created {
		return Skipped(ReasonAlreadyFollowing), nil
	}
	logger.L.Debug("Follow created", zap.Int64("user_id", viewer.ID), zap.Int64("author_id", author.ID))
	return Applied(), nil
}

// Unfollow удаляет подписку, если она есть
func (fs *FollowService) Unfollow(ctx context.Context, viewer *models.User, username string) (Outcome, error) {
	if viewer == nil {
		return Outcome{}, ErrAuthRequired
	}
	author, err := fs.store.UserByUsername(ctx, username)
	if err != nil {
		return Outcome{}, err
	}
	removed, err := fs.store.DeleteFollow(ctx, viewer.ID, author.ID)
	if err != nil {
		return Outcome{}, err
	}
	if !removed {
		return Skipped(ReasonNotFollowing), nil
	}
	return Applied(), nil
}
