package profile

import (
	"context"
	"io"
	"strings"
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	profileDto "anoa.com/studentcommunity/internal/modules/profile/dto"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	"anoa.com/studentcommunity/internal/testutil"
	"anoa.com/studentcommunity/pkg/apperror"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	deleted []string
}

func (m *memoryStorage) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	_, _ = io.ReadAll(r)
	return "https://res.cloudinary.com/demo/image/upload/" + folder + "/" + fileName, nil
}

func (m *memoryStorage) DeleteImage(_ context.Context, fileURL string) error {
	m.deleted = append(m.deleted, fileURL)
	return nil
}

func TestGetProfileCountsContributions(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProfileService(userRepo.NewUserRepository(db), nil)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, "Alice", entity.RankSenior, testutil.WithXp(1500))
	q := &entity.Question{AuthorID: user.ID, Title: "Q", Content: "body"}
	require.NoError(t, db.Omit("Author").Create(q).Error)
	require.NoError(t, db.Omit("Author", "Question").Create(&entity.Answer{QuestionID: q.ID, AuthorID: user.ID, Content: "a"}).Error)

	res, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.QuestionCount)
	assert.EqualValues(t, 1, res.AnswerCount)
	assert.Equal(t, entity.RankSenior, res.Rank)
	assert.Equal(t, "MASTER", res.GamificationStatus.NextRank)
	assert.Equal(t, 3500, res.GamificationStatus.XpToNextRank)

	_, err = svc.GetProfile(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateProfileReplacesAvatar(t *testing.T) {
	db := testutil.NewDB(t)
	store := &memoryStorage{}
	svc := NewProfileService(userRepo.NewUserRepository(db), store)
	ctx := context.Background()

	old := "https://res.cloudinary.com/demo/image/upload/avatars/old.webp"
	user := testutil.CreateUser(t, db, "Alice", entity.RankJunior)
	require.NoError(t, db.Model(&entity.User{}).Where("id = ?", user.ID).Update("avatar", old).Error)

	name := "Alice Wonder"
	grade := 3
	res, err := svc.UpdateProfile(ctx, user.ID, profileDto.UpdateProfileInput{Name: &name, Grade: &grade},
		&commonDto.AvatarFile{Reader: strings.NewReader("img"), FileName: "new.png"})
	require.NoError(t, err)

	assert.Equal(t, "Alice Wonder", res.Name)
	require.NotNil(t, res.Grade)
	assert.Equal(t, 3, *res.Grade)
	require.NotNil(t, res.Avatar)
	assert.Contains(t, *res.Avatar, "avatars/new.png")
	assert.Equal(t, []string{old}, store.deleted)
	assert.Equal(t, user.Email, res.Email)
}

func TestUpdateProfileWithoutStorage(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProfileService(userRepo.NewUserRepository(db), nil)
	user := testutil.CreateUser(t, db, "Alice", entity.RankJunior)

	_, err := svc.UpdateProfile(context.Background(), user.ID, profileDto.UpdateProfileInput{},
		&commonDto.AvatarFile{Reader: strings.NewReader("img"), FileName: "a.png"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	blank := "   "
	_, err = svc.UpdateProfile(context.Background(), user.ID, profileDto.UpdateProfileInput{Name: &blank}, nil)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}
