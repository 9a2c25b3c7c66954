package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/internal/modules/admin/dto"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	"anoa.com/studentcommunity/internal/testutil"
	"anoa.com/studentcommunity/pkg/apperror"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryStorage struct {
	uploaded []string
	deleted  []string
}

func (m *memoryStorage) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + fileName
	m.uploaded = append(m.uploaded, url)
	return url, nil
}

func (m *memoryStorage) DeleteImage(_ context.Context, fileURL string) error {
	m.deleted = append(m.deleted, fileURL)
	return nil
}

func strPtr(s string) *string { return &s }

func TestCreateUserHashesPasswordAndRejectsDuplicateEmail(t *testing.T) {
	db := testutil.NewDB(t)
	store := &memoryStorage{}
	svc := NewAdminService(userRepo.NewUserRepository(db), store)
	ctx := context.Background()

	res, err := svc.CreateUser(ctx, dto.CreateUserInput{
		Name:     "Dewi",
		Email:    "Dewi@Example.test",
		Password: "supersecret",
		Role:     entity.RoleStudent,
		Rank:     string(entity.RankSenior),
	}, &commonDto.AvatarFile{Reader: strings.NewReader("png"), FileName: "dewi.png"})
	require.NoError(t, err)

	assert.Equal(t, "dewi@example.test", res.User.Email)
	assert.Equal(t, entity.RankSenior, res.User.Rank)
	assert.Equal(t, entity.RoleStudent, res.User.Role.Name)
	require.NotNil(t, res.User.Avatar)
	assert.Len(t, store.uploaded, 1)

	var stored entity.User
	require.NoError(t, db.First(&stored, "id = ?", res.User.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("supersecret")))

	_, err = svc.CreateUser(ctx, dto.CreateUserInput{
		Name:     "Dewi Two",
		Email:    "dewi@example.test",
		Password: "supersecret",
		Role:     entity.RoleStudent,
	}, nil)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestUpdateUserOverridesRankAndRole(t *testing.T) {
	db := testutil.NewDB(t)
	store := &memoryStorage{}
	svc := NewAdminService(userRepo.NewUserRepository(db), store)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "Budi", entity.RankJunior, testutil.WithXp(40))
	other := testutil.CreateUser(t, db, "Citra", entity.RankJunior)

	res, err := svc.UpdateUser(ctx, user.ID, dto.UpdateAdminUserInput{
		Rank:       strPtr(string(entity.RankMaster)),
		Role:       strPtr(entity.RoleAdmin),
		Department: strPtr("  Informatics "),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.RankMaster, res.User.Rank)
	assert.Equal(t, entity.RoleAdmin, res.User.Role.Name)
	require.NotNil(t, res.User.Department)
	assert.Equal(t, "Informatics", *res.User.Department)
	assert.Equal(t, 40, res.User.Xp, "profile edits never touch xp")

	_, err = svc.UpdateUser(ctx, user.ID, dto.UpdateAdminUserInput{Email: strPtr(other.Email)}, nil)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.UpdateUser(ctx, uuid.New(), dto.UpdateAdminUserInput{}, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAvatarWithoutStorageIsRejected(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAdminService(userRepo.NewUserRepository(db), nil)

	_, err := svc.CreateUser(context.Background(), dto.CreateUserInput{
		Name:     "Eka",
		Email:    "eka@example.test",
		Password: "supersecret",
		Role:     entity.RoleStudent,
	}, &commonDto.AvatarFile{Reader: strings.NewReader("png"), FileName: "eka.png"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestListAndDeleteUsers(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAdminService(userRepo.NewUserRepository(db), nil)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "Ani", entity.RankJunior)
	testutil.CreateUser(t, db, "Bayu", entity.RankSenior)

	list, err := svc.GetAllUsers(ctx, dto.ListUsersQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list.Data, 1)
	assert.EqualValues(t, 2, list.Meta.TotalItems)
	assert.Equal(t, 2, list.Meta.TotalPages)

	require.NoError(t, svc.DeleteUser(ctx, a.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, a.ID), apperror.ErrNotFound)
}
