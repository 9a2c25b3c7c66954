package service

import (
	"context"
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/category/dto"
	"anoa.com/studentcommunity/internal/modules/category/repository"
	"anoa.com/studentcommunity/internal/testutil"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (CategoryService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewCategoryService(repository.NewCategoryRepository(db), database.NewTransactor(db)), db
}

func TestCreateCategoryDerivesSlugAndRejectsDuplicates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "Career Advice"})
	require.NoError(t, err)
	assert.Equal(t, "career-advice", created.Slug)
	assert.True(t, created.IsActive)
	assert.Zero(t, created.PostCount)

	_, err = svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "career advice", Slug: "other"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "Jobs", Slug: "career-advice"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "Jobs", Slug: "Not A Slug"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	bySlug, err := svc.GetCategoryBySlug(ctx, "career-advice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)

	_, err = svc.GetCategoryBySlug(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateCategoryChecksOtherRows(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	general, err := svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "General"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "Events"})
	require.NoError(t, err)

	sameName := "General"
	updated, err := svc.UpdateCategory(ctx, general.ID, dto.UpdateCategoryInput{Name: &sameName})
	require.NoError(t, err, "keeping its own name is not a conflict")
	assert.Equal(t, "General", updated.Name)

	taken := "events"
	_, err = svc.UpdateCategory(ctx, general.ID, dto.UpdateCategoryInput{Slug: &taken})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	color := "#ff0000"
	updated, err = svc.UpdateCategory(ctx, general.ID, dto.UpdateCategoryInput{Color: &color})
	require.NoError(t, err)
	require.NotNil(t, updated.Color)
	assert.Equal(t, color, *updated.Color)

	_, err = svc.UpdateCategory(ctx, uuid.New(), dto.UpdateCategoryInput{Color: &color})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteCategoryDeactivatesWhenPostsRemain(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Author", entity.RankJunior)

	used, err := svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "Used"})
	require.NoError(t, err)
	empty, err := svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: "Empty"})
	require.NoError(t, err)

	post := &entity.Post{AuthorID: author.ID, CategoryID: &used.ID, Title: "Hello", Slug: "hello", Content: "hi"}
	require.NoError(t, db.Omit("Author", "Category").Create(post).Error)

	res, err := svc.DeleteCategory(ctx, used.ID)
	require.NoError(t, err)
	assert.True(t, res.Deactivated)
	assert.False(t, res.Deleted)

	res, err = svc.DeleteCategory(ctx, empty.ID)
	require.NoError(t, err)
	assert.True(t, res.Deleted)

	active, err := svc.ListCategories(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.ListCategories(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, used.ID, all[0].ID)
	assert.False(t, all[0].IsActive)
	assert.Equal(t, int64(1), all[0].PostCount)
}

func TestReorderCategories(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		c, err := svc.CreateCategory(ctx, dto.CreateCategoryInput{Name: name})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	reordered, err := svc.ReorderCategories(ctx, []uuid.UUID{ids[2], ids[0], ids[1]})
	require.NoError(t, err)
	require.Len(t, reordered, 3)
	assert.Equal(t, []string{"Gamma", "Alpha", "Beta"}, []string{reordered[0].Name, reordered[1].Name, reordered[2].Name})
	assert.Equal(t, 0, reordered[0].Order)
	assert.Equal(t, 2, reordered[2].Order)

	_, err = svc.ReorderCategories(ctx, []uuid.UUID{ids[0], ids[0]})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = svc.ReorderCategories(ctx, []uuid.UUID{ids[1], uuid.New()})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	after, err := svc.ListCategories(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "Gamma", after[0].Name, "a failed reorder is rolled back")
}
