// Package store - слой хранения сущностей блога поверх gorm.
// Чтения идут через dbresolver.Read, записи через dbresolver.Write.
package store

import (
	"context"
	"errors"

	"blog/db"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	orm *gorm.DB
}

func New(orm *gorm.DB) *Store {
	return &Store{orm: orm}
}

func (s *Store) read(ctx context.Context) *gorm.DB {
	return db.Read(ctx, s.orm)
}

func (s *Store) write(ctx context.Context) *gorm.DB {
	return db.Write(ctx, s.orm)
}

// notFound переводит gorm.ErrRecordNotFound в ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
