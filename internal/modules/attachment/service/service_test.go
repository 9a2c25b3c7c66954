package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"anoa.com/studentcommunity/internal/entity"
	attachmentRepo "anoa.com/studentcommunity/internal/modules/attachment/repository"
	"anoa.com/studentcommunity/internal/testutil"
	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryStorage struct {
	files     map[string]string
	failFor   string
	deleteErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: map[string]string{}}
}

func (m *memoryStorage) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "https://cdn.test/" + folder + "/" + fileName
	m.files[url] = string(body)
	return url, nil
}

func (m *memoryStorage) DeleteImage(_ context.Context, fileURL string) error {
	if fileURL == m.failFor {
		return m.deleteErr
	}
	delete(m.files, fileURL)
	return nil
}

func image(name string) Upload {
	return Upload{Reader: strings.NewReader("png-bytes"), FileName: name, ContentType: "image/png"}
}

func TestUploadStoresImage(t *testing.T) {
	db := testutil.NewDB(t)
	store := newMemoryStorage()
	svc := NewAttachmentService(attachmentRepo.NewAttachmentRepository(db), store)
	user := testutil.CreateUser(t, db, "Uploader", entity.RankJunior)

	res, err := svc.Upload(context.Background(), user.ID, image("diagram.png"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/attachments/diagram.png", res.FileURL)
	assert.Equal(t, "png-bytes", store.files[res.FileURL])

	_, err = svc.Upload(context.Background(), user.ID, Upload{Reader: strings.NewReader("x"), FileName: "a.exe", ContentType: "application/octet-stream"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestUploadWithoutStorage(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAttachmentService(attachmentRepo.NewAttachmentRepository(db), nil)
	user := testutil.CreateUser(t, db, "Uploader", entity.RankJunior)

	_, err := svc.Upload(context.Background(), user.ID, image("a.png"))
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	assert.ErrorContains(t, err, "not configured")
}

func TestBindOnlyClaimsOwnUnboundUploads(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAttachmentService(attachmentRepo.NewAttachmentRepository(db), newMemoryStorage())
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "Owner", entity.RankJunior)
	other := testutil.CreateUser(t, db, "Other", entity.RankJunior)

	mine, err := svc.Upload(ctx, owner.ID, image("mine.png"))
	require.NoError(t, err)
	theirs, err := svc.Upload(ctx, other.ID, image("theirs.png"))
	require.NoError(t, err)

	question := &entity.Question{AuthorID: owner.ID, Title: "t", Content: "c"}
	require.NoError(t, db.Omit("Author").Create(question).Error)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.BindToQuestionTx(ctx, tx, []uint{mine.ID, theirs.ID}, question.ID, owner.ID)
	})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	var stored entity.Attachment
	require.NoError(t, db.First(&stored, mine.ID).Error)
	assert.False(t, stored.Bound(), "failed bind rolls back")

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.BindToQuestionTx(ctx, tx, []uint{mine.ID, mine.ID}, question.ID, owner.ID)
	})
	require.NoError(t, err)
	require.NoError(t, db.First(&stored, mine.ID).Error)
	assert.Equal(t, question.ID, *stored.QuestionID)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.BindToAnswerTx(ctx, tx, []uint{mine.ID}, question.ID, owner.ID)
	})
	assert.ErrorIs(t, err, apperror.ErrBadRequest, "bound to a question already")
}

func TestCleanupOrphans(t *testing.T) {
	db := testutil.NewDB(t)
	store := newMemoryStorage()
	repo := attachmentRepo.NewAttachmentRepository(db)
	svc := NewAttachmentService(repo, store)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "User", entity.RankJunior)

	question := &entity.Question{AuthorID: user.ID, Title: "t", Content: "c"}
	require.NoError(t, db.Omit("Author").Create(question).Error)

	stale := time.Now().Add(-48 * time.Hour)
	seed := func(url string, questionID *uuid.UUID, createdAt time.Time) {
		store.files[url] = "x"
		require.NoError(t, repo.Create(ctx, &entity.Attachment{UserID: user.ID, FileURL: url, QuestionID: questionID, CreatedAt: createdAt}))
	}
	deleted := uuid.New()
	seed("https://cdn.test/unbound-old", nil, stale)
	seed("https://cdn.test/unbound-new", nil, time.Now())
	seed("https://cdn.test/bound", &question.ID, stale)
	seed("https://cdn.test/dangling", &deleted, stale)
	seed("https://cdn.test/stuck", nil, stale)
	store.failFor, store.deleteErr = "https://cdn.test/stuck", errors.New("cdn down")

	removed, err := svc.CleanupOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	var left []string
	require.NoError(t, db.Model(&entity.Attachment{}).Order("id").Pluck("file_url", &left).Error)
	assert.Equal(t, []string{"https://cdn.test/unbound-new", "https://cdn.test/bound", "https://cdn.test/stuck"}, left)
	assert.NotContains(t, store.files, "https://cdn.test/unbound-old")
}
