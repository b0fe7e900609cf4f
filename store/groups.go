package store

import (
	"context"
	"fmt"

	"blog/models"

	"gorm.io/gorm"
)

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if err := s.write(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (s *Store) GroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	if err := s.read(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, notFound(err)
	}
	return &group, nil
}

func (s *Store) GroupByID(ctx context.Context, id int64) (*models.Group, error) {
	var group models.Group
	if err := s.read(ctx).First(&group, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &group, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups := []models.Group{}
	err := s.read(ctx).Order("title").Order("id").Find(&groups).Error
	return groups, err
}

// DeleteGroup удаляет группу, посты остаются без группы
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	return s.write(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Group{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return deleteWithRules(tx, "groups", []int64{id})
	})
}
