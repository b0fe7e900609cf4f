package db

import (
	"fmt"

	"blog/models"

	"gorm.io/gorm"
)

// feedIndexes - составные индексы под выборки лент (автор/группа + сортировка по дате)
var feedIndexes = []struct {
	name    string
	table   string
	columns string
}{
	{"idx_posts_author_created_at", "posts", "author_id, created_at"},
	{"idx_posts_group_created_at", "posts", "group_id, created_at"},
	{"idx_comments_post_created_at", "comments", "post_id, created_at"},
}

// Migrate создает таблицы и индексы. Идемпотентна.
func Migrate(orm *gorm.DB) error {
	if err := orm.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return CreateFeedIndexes(orm)
}

// CreateFeedIndexes создает индексы, которые не выражаются тегами одной колонки
func CreateFeedIndexes(orm *gorm.DB) error {
	for _, idx := range feedIndexes {
		createIndexSQL := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON %s (%s)`,
			idx.name, idx.table, idx.columns,
		)
		if err := orm.Exec(createIndexSQL).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}
