package services

import (
	"context"
	"errors"
	"strings"

	"blog/logger"
	"blog/media"
	"blog/models"
	"blog/store"

	"go.uber.org/zap"
)

// PostInput - форма поста. GroupID <= 0 означает "без группы".
type PostInput struct {
	Text    string        `form:"text" json:"text" validate:"required"`
	GroupID *int64        `form:"group" json:"group" validate:"-"`
	Image   *media.Upload `form:"-" json:"-" validate:"-"`
}

type PostService struct {
	store    *store.Store
	storage  media.Storage
	notifier *FeedNotifier
}

func NewPostService(st *store.Store, storage media.Storage, notifier *FeedNotifier) *PostService {
	return &PostService{store: st, storage: storage, notifier: notifier}
}

// clean нормализует форму и проверяет ее. Возвращает проверенную картинку, если она есть.
func (ps *PostService) clean(ctx context.Context, in *PostInput) (*media.Image, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.GroupID != nil && *in.GroupID <= 0 {
		in.GroupID = nil
	}

	verr := &ValidationError{}
	if err := validateStruct(*in, verr); err != nil {
		return nil, err
	}
	if in.GroupID != nil {
		_, err := ps.store.GroupByID(ctx, *in.GroupID)
		if errors.Is(err, store.ErrNotFound) {
			verr.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		} else if err != nil {
			return nil, err
		}
	}
	var img *media.Image
	if in.Image != nil {
		var err error
		img, err = media.Validate(*in.Image)
		if errors.Is(err, media.ErrNotImage) {
			verr.Add("image", err.Error())
		} else if err != nil {
			return nil, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return img, nil
}

func (ps *PostService) saveImage(ctx context.Context, img *media.Image) (string, error) {
	if img == nil {
		return "", nil
	}
	if ps.storage == nil {
		return "", errors.New("media storage is not configured")
	}
	if err := img.SaveTo(ctx, ps.storage); err != nil {
		return "", err
	}
	return img.Key, nil
}

func (ps *PostService) dropImage(ctx context.Context, key string) {
	if key == "" || ps.storage == nil {
		return
	}
	if err := ps.storage.Delete(ctx, key); err != nil {
		logger.L.Warn("Failed to delete post image", zap.String("key", key), zap.Error(err))
	}
}

// CreatePost создает пост от имени viewer. Кэш главной не сбрасывается.
func (ps *PostService) CreatePost(ctx context.Context, viewer *models.User, in PostInput) (*models.Post, error) {
	if viewer == nil {
		return nil, ErrAuthRequired
	}
	img, err := ps.clean(ctx, &in)
	if err != nil {
		return nil, err
	}
	key, err := ps.saveImage(ctx, img)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Text:     in.Text,
		AuthorID: viewer.ID,
		GroupID:  in.GroupID,
		Image:    key,
	}
	if err := ps.store.CreatePost(ctx, post); err != nil {
		ps.dropImage(ctx, key)
		return nil, err
	}
	post.Author = viewer

	ps.notifier.Enqueue(*post)
	logger.L.Info("Post created", zap.Int64("post_id", post.ID), zap.Int64("author_id", viewer.ID))
	return post, nil
}

// EditablePost находит пост для редактирования: ErrAuthRequired для анонима,
// NotFound при несовпадении автора, Skipped(not_owner) если viewer не автор.
func (ps *PostService) EditablePost(ctx context.Context, viewer *models.User, username string, postID int64) (*models.Post, Outcome, error) {
	if viewer == nil {
		return nil, Outcome{}, ErrAuthRequired
	}
	post, err := ps.store.PostByAuthorAndID(ctx, username, postID)
	if err != nil {
		return nil, Outcome{}, err
	}
	if post.AuthorID != viewer.ID {
		return post, Skipped(ReasonNotOwner), nil
	}
	return post, Applied(), nil
}

// EditPost меняет пост, если viewer - его автор; иначе Skipped(not_owner) без изменений.
// Без новой картинки остается прежняя.
func (ps *PostService) EditPost(ctx context.Context, viewer *models.User, username string, postID int64, in PostInput) (*models.Post, Outcome, error) {
	post, outcome, err := ps.EditablePost(ctx, viewer, username, postID)
	if err != nil || !outcome.IsApplied() {
		return post, outcome, err
	}

	img, err := ps.clean(ctx, &in)
	if err != nil {
		return post, Outcome{}, err
	}
	key, err := ps.saveImage(ctx, img)
	if err != nil {
		return post, Outcome{}, err
	}

	post.Text = in.Text
	post.GroupID = in.GroupID
	post.Group = nil
	if key != "" {
		post.Image = key
	}
	if err := ps.store.UpdatePost(ctx, post); err != nil {
		ps.dropImage(ctx, key)
		return post, Outcome{}, err
	}
	return post, Applied(), nil
}

// DeletePost удаляет пост автора вместе с комментариями и картинкой
func (ps *PostService) DeletePost(ctx context.Context, viewer *models.User, username string, postID int64) (Outcome, error) {
	if viewer == nil {
		return Outcome{}, ErrAuthRequired
	}
	post, err := ps.store.PostByAuthorAndID(ctx, username, postID)
	if err != nil {
		return Outcome{}, err
	}
	if post.AuthorID != viewer.ID {
		return Skipped(ReasonNotOwner), nil
	}
	if err := ps.store.DeletePost(ctx, post.ID); err != nil {
		return Outcome{}, err
	}
	ps.dropImage(ctx, post.Image)
	return Applied(), nil
}
