package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseFilter narrows a course listing. Nil pointers mean "any".
type CourseFilter struct {
	Level     entity.CourseLevel
	Category  string
	Tags      []string
	Search    string
	Featured  *bool
	Published *bool
	Offset    int
	Limit     int
}

type CourseRepository interface {
	WithTx(tx *gorm.DB) CourseRepository
	Create(ctx context.Context, course *entity.Course) error
	// FindByID loads the course with its chapters in order.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Course, error)
	SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	List(ctx context.Context, filter CourseFilter) ([]entity.Course, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// Delete removes the course with its chapters, enrollments and progress.
	Delete(ctx context.Context, id uuid.UUID) error
	ChapterCounts(ctx context.Context, courseIDs []uuid.UUID) (map[uuid.UUID]int64, error)

	CreateChapter(ctx context.Context, chapter *entity.Chapter) error
	FindChapter(ctx context.Context, id uuid.UUID) (*entity.Chapter, error)
	ChapterSlugTaken(ctx context.Context, courseID uuid.UUID, slug string) (bool, error)
	NextChapterOrder(ctx context.Context, courseID uuid.UUID) (int, error)
	UpdateChapterFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// DeleteChapter removes the chapter and every learner's progress on it.
	DeleteChapter(ctx context.Context, id uuid.UUID) error
}

type courseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) WithTx(tx *gorm.DB) CourseRepository {
	return &courseRepository{db: tx}
}

func (r *courseRepository) Create(ctx context.Context, course *entity.Course) error {
	err := r.db.WithContext(ctx).Omit("Chapters").Create(course).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("course slug %q already exists: %w", course.Slug, apperror.ErrConflict)
	}
	return err
}

func (r *courseRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Course, error) {
	var course entity.Course
	err := r.db.WithContext(ctx).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order asc").Order("created_at asc")
		}).
		First(&course, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("course not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &course, nil
}

func (r *courseRepository) SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&entity.Course{}).Where("slug = ?", slug)
	if except != uuid.Nil {
		query = query.Where("id <> ?", except)
	}

	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *courseRepository) tagCondition(tag string) (string, any) {
	if r.db.Dialector.Name() == "postgres" {
		return "courses.tags::jsonb @> ?", fmt.Sprintf("[%q]", tag)
	}
	return "EXISTS (SELECT 1 FROM json_each(courses.tags) WHERE json_each.value = ?)", tag
}

func (r *courseRepository) List(ctx context.Context, filter CourseFilter) ([]entity.Course, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&entity.Course{})

		if filter.Level != "" {
			query = query.Where("level = ?", filter.Level)
		}
		if filter.Category != "" {
			query = query.Where("category = ?", filter.Category)
		}
		if filter.Featured != nil {
			query = query.Where("featured = ?", *filter.Featured)
		}
		if filter.Published != nil {
			query = query.Where("published = ?", *filter.Published)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			query = query.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
		}
		if len(filter.Tags) > 0 {
			anyTag := r.db.Session(&gorm.Session{NewDB: true})
			for i, tag := range filter.Tags {
				cond, arg := r.tagCondition(tag)
				if i == 0 {
					anyTag = anyTag.Where(cond, arg)
				} else {
					anyTag = anyTag.Or(cond, arg)
				}
			}
			query = query.Where(anyTag)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []entity.Course
	err := scoped().
		Order("featured desc").
		Order("created_at desc").
		Order("id desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&courses).Error
	return courses, total, err
}

func (r *courseRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entity.Course{}).Where("id = ?", id).Updates(fields)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("course slug already exists: %w", apperror.ErrConflict)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("course not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *courseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chapterIDs := tx.Model(&entity.Chapter{}).Select("id").Where("course_id = ?", id)
		if err := tx.Where("chapter_id IN (?)", chapterIDs).Delete(&entity.ChapterProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&entity.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&entity.Chapter{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&entity.Course{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("course not found: %w", apperror.ErrNotFound)
		}
		return nil
	})
}

func (r *courseRepository) ChapterCounts(ctx context.Context, courseIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(courseIDs))
	if len(courseIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		CourseID uuid.UUID
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&entity.Chapter{}).
		Select("course_id, COUNT(*) AS total").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.CourseID] = row.Total
	}
	return counts, nil
}

func (r *courseRepository) CreateChapter(ctx context.Context, chapter *entity.Chapter) error {
	err := r.db.WithContext(ctx).Create(chapter).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("chapter slug %q already exists in this course: %w", chapter.Slug, apperror.ErrConflict)
	}
	return err
}

func (r *courseRepository) FindChapter(ctx context.Context, id uuid.UUID) (*entity.Chapter, error) {
	var chapter entity.Chapter
	if err := r.db.WithContext(ctx).First(&chapter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("chapter not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &chapter, nil
}

func (r *courseRepository) ChapterSlugTaken(ctx context.Context, courseID uuid.UUID, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Chapter{}).
		Where("course_id = ? AND slug = ?", courseID, slug).
		Count(&count).Error
	return count > 0, err
}

func (r *courseRepository) NextChapterOrder(ctx context.Context, courseID uuid.UUID) (int, error) {
	var highest *int
	err := r.db.WithContext(ctx).Model(&entity.Chapter{}).
		Select("MAX(sort_order)").
		Where("course_id = ?", courseID).
		Scan(&highest).Error
	if err != nil || highest == nil {
		return 0, err
	}
	return *highest + 1, nil
}

func (r *courseRepository) UpdateChapterFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&entity.Chapter{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("chapter not found: %w", apperror.ErrNotFound)
	}
	return nil
}

func (r *courseRepository) DeleteChapter(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chapter_id = ?", id).Delete(&entity.ChapterProgress{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&entity.Chapter{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("chapter not found: %w", apperror.ErrNotFound)
		}
		return nil
	})
}
