package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category groups forum posts. Categories that still hold posts are
// deactivated instead of deleted.
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Slug        string    `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Description *string   `gorm:"type:text" json:"description"`
	Icon        *string   `gorm:"size:50" json:"icon"`
	Color       *string   `gorm:"size:20" json:"color"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

// Post is a forum discussion. VoteScore mirrors the sum of its votes.
type Post struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID     uuid.UUID                   `gorm:"type:uuid;not null;index" json:"author_id"`
	Author       User                        `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	CategoryID   *uuid.UUID                  `gorm:"type:uuid;index" json:"category_id"`
	Category     *Category                   `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
	Title        string                      `gorm:"size:200;not null" json:"title"`
	Slug         string                      `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Content      string                      `gorm:"type:text;not null" json:"content"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	ViewCount    int                         `gorm:"not null;default:0" json:"view_count"`
	CommentCount int                         `gorm:"not null;default:0" json:"comment_count"`
	VoteScore    int                         `gorm:"not null;default:0" json:"vote_score"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	return
}

// Comment is a reply on a post. Replies point at a top-level comment through
// ParentID.
type Comment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"post_id"`
	Post      Post       `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	Author    User       `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	Replies   []Comment  `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	Accepted  bool       `gorm:"not null;default:false" json:"accepted"`
	LikeCount int        `gorm:"not null;default:0" json:"like_count"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

type CommentLike struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_comment_likes_unique,unique,priority:1" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CommentID uuid.UUID `gorm:"type:uuid;not null;index:idx_comment_likes_unique,unique,priority:2;index" json:"comment_id"`
	Comment   Comment   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (l *CommentLike) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewV7()
	}
	return
}
