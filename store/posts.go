package store

import (
	"context"
	"fmt"

	"blog/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter - условия выборки постов; нулевые поля не применяются
type PostFilter struct {
	AuthorID int64
	GroupID  int64
	// FollowerID: посты авторов, на которых подписан этот пользователь
	FollowerID int64
	ExcludeID  int64
}

func (s *Store) postQuery(ctx context.Context, f PostFilter) *gorm.DB {
	q := s.read(ctx).Model(&models.Post{})
	if f.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.GroupID != 0 {
		q = q.Where("posts.group_id = ?", f.GroupID)
	}
	if f.FollowerID != 0 {
		followed := s.orm.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", f.FollowerID)
		q = q.Where("posts.author_id IN (?)", followed)
	}
	if f.ExcludeID != 0 {
		q = q.Where("posts.id <> ?", f.ExcludeID)
	}
	return q
}

// ListPosts возвращает посты от новых к старым вместе с автором и группой
func (s *Store) ListPosts(ctx context.Context, f PostFilter, offset, limit int) ([]models.Post, error) {
	posts := []models.Post{}
	q := s.postQuery(ctx, f).
		Preload("Author").
		Preload("Group").
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context, f PostFilter) (int64, error) {
	var count int64
	if err := s.postQuery(ctx, f).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if err := s.write(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// UpdatePost сохраняет текст, группу и картинку; id и дата не меняются
func (s *Store) UpdatePost(ctx context.Context, post *models.Post) error {
	err := s.write(ctx).
		Model(&models.Post{ID: post.ID}).
		Select("text", "group_id", "image").
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
	if err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	return nil
}

func (s *Store) PostByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	err := s.read(ctx).Preload("Author").Preload("Group").First(&post, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// PostByAuthorAndID находит пост только если его автор - username
func (s *Store) PostByAuthorAndID(ctx context.Context, username string, id int64) (*models.Post, error) {
	var post models.Post
	err := s.read(ctx).
		Preload("Author").
		Preload("Group").
		Joins("JOIN users ON users.id = posts.author_id").
		Where("posts.id = ? AND users.username = ?", id, username).
		First(&post).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// DeletePost удаляет пост и его комментарии
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return s.write(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return deleteWithRules(tx, "posts", []int64{id})
	})
}
