package models

import "time"

// Post - пост пользователя, опционально в группе и с картинкой
type Post struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	AuthorID  int64     `gorm:"not null;index" json:"author_id"`
	Author    *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"author,omitempty"`
	GroupID   *int64    `gorm:"index" json:"group_id"`
	Group     *Group    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"group,omitempty"`
	Image     string    `gorm:"size:255" json:"image,omitempty"`
	ImageURL  string    `gorm:"-" json:"image_url,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Post) TableName() string {
	return "posts"
}

// Comment - комментарий к посту
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64     `gorm:"not null;index" json:"post_id"`
	Post      *Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	AuthorID  int64     `gorm:"not null;index" json:"author_id"`
	Author    *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"author,omitempty"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}
