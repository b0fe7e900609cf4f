package services

import (
	"context"
	"errors"
	"strings"

	"blog/models"
	"blog/store"
)

type GroupInput struct {
	Title       string `form:"title" json:"title" validate:"required,max=200"`
	Slug        string `form:"slug" json:"slug" validate:"required,max=100,slug"`
	Description string `form:"description" json:"description"`
}

type GroupService struct {
	store *store.Store
}

func NewGroupService(st *store.Store) *GroupService {
	return &GroupService{store: st}
}

func (gs *GroupService) CreateGroup(ctx context.Context, viewer *models.User, in GroupInput) (*models.Group, error) {
	if viewer == nil {
		return nil, ErrAuthRequired
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Description = strings.TrimSpace(in.Description)

	verr := &ValidationError{}
	if err := validateStruct(in, verr); err != nil {
		return nil, err
	}
	if _, bad := verr.Fields["slug"]; !bad {
		_, err := gs.store.GroupBySlug(ctx, in.Slug)
		if err == nil {
			verr.Add("slug", "Group with this Slug already exists.")
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	group := &models.Group{Title: in.Title, Slug: in.Slug, Description: in.Description}
	if err := gs.store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup удаляет группу; ее посты остаются без группы
func (gs *GroupService) DeleteGroup(ctx context.Context, viewer *models.User, slug string) error {
	if viewer == nil {
		return ErrAuthRequired
	}
	group, err := gs.store.GroupBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return gs.store.DeleteGroup(ctx, group.ID)
}
