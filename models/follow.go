package models

import "time"

// Follow - подписка UserID (подписчик) на AuthorID.
// Пара уникальна, повторная вставка схлопывается на уровне индекса.
type Follow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:follow_pair_idx;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	AuthorID  int64     `gorm:"not null;uniqueIndex:follow_pair_idx;index" json:"author_id"`
	Author    *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}

// All - порядок важен для AutoMigrate: сначала родительские таблицы
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserToken{},
		&Group{},
		&Post{},
		&Comment{},
		&Follow{},
	}
}
