package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseLevel string

const (
	CourseBeginner     CourseLevel = "BEGINNER"
	CourseIntermediate CourseLevel = "INTERMEDIATE"
	CourseAdvanced     CourseLevel = "ADVANCED"
)

type Course struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string                      `gorm:"size:200;not null" json:"title"`
	Slug        string                      `gorm:"size:200;not null;uniqueIndex" json:"slug"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Thumbnail   *string                     `gorm:"type:text" json:"thumbnail"`
	Level       CourseLevel                 `gorm:"size:20;not null;index" json:"level"`
	Duration    int                         `gorm:"not null;default:0" json:"duration"`
	Category    *string                     `gorm:"size:100;index" json:"category"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Published   bool                        `gorm:"not null;default:false;index" json:"published"`
	Featured    bool                        `gorm:"not null;default:false" json:"featured"`
	Chapters    []Chapter                   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	if c.Tags == nil {
		c.Tags = datatypes.JSONSlice[string]{}
	}
	return
}

// Chapter is one ordered unit of a course. Duration is in minutes.
type Chapter struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;index:idx_chapters_course_slug,unique,priority:1" json:"course_id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Slug      string    `gorm:"size:200;not null;index:idx_chapters_course_slug,unique,priority:2" json:"slug"`
	Content   *string   `gorm:"type:text" json:"content"`
	VideoURL  *string   `gorm:"type:text" json:"video_url"`
	Order     int       `gorm:"column:sort_order;not null" json:"order"`
	Duration  int       `gorm:"not null;default:0" json:"duration"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Chapter) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

// Enrollment tracks one user in one course. Progress is a whole percentage of
// completed chapters.
type Enrollment struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_enrollments_unique,unique,priority:1" json:"user_id"`
	User        User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CourseID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_enrollments_unique,unique,priority:2;index" json:"course_id"`
	Course      Course     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID, err = uuid.NewV7()
	}
	return
}

// ChapterProgress is a learner's position in one chapter. LastPosition is in
// seconds of video.
type ChapterProgress struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_chapter_progress_unique,unique,priority:1" json:"user_id"`
	ChapterID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_chapter_progress_unique,unique,priority:2;index" json:"chapter_id"`
	Chapter      Chapter    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Completed    bool       `gorm:"not null;default:false" json:"completed"`
	LastPosition int        `gorm:"not null;default:0" json:"last_position"`
	CompletedAt  *time.Time `json:"completed_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ChapterProgress) TableName() string {
	return "chapter_progress"
}

func (p *ChapterProgress) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}
