package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"anoa.com/studentcommunity/internal/entity"
	categoryRepo "anoa.com/studentcommunity/internal/modules/category/repository"
	"anoa.com/studentcommunity/internal/modules/post/dto"
	postRepo "anoa.com/studentcommunity/internal/modules/post/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"
	"anoa.com/studentcommunity/pkg/apperror"
	"anoa.com/studentcommunity/pkg/database"
	commonDto "anoa.com/studentcommunity/pkg/dto"
	"anoa.com/studentcommunity/pkg/slug"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 20
	maxSlugLength    = 100
)

// XpLedger is the slice of the XP service forum posts use.
type XpLedger interface {
	GrantXpTx(ctx context.Context, tx *gorm.DB, in xpService.GrantInput) (*xpService.GrantResult, error)
	AnnounceProgress(ctx context.Context, userID uuid.UUID, result *xpService.GrantResult)
}

// VoteReader reports the caller's vote on a post, or nil.
type VoteReader interface {
	UserVote(ctx context.Context, userID, postID uuid.UUID) (*int, error)
}

type PostService interface {
	ListPosts(ctx context.Context, query dto.ListPostsQuery) (*dto.PostListResponse, error)
	CreatePost(ctx context.Context, authorID uuid.UUID, input dto.CreatePostInput) (*dto.PostResponse, error)
	GetPost(ctx context.Context, id, viewerID uuid.UUID) (*dto.PostDetailResponse, error)
	GetPostBySlug(ctx context.Context, postSlug string, viewerID uuid.UUID) (*dto.PostDetailResponse, error)
	UpdatePost(ctx context.Context, id, actorID uuid.UUID, input dto.UpdatePostInput) (*dto.PostResponse, error)
	DeletePost(ctx context.Context, id, actorID uuid.UUID) error
}

// Deps groups the collaborators of the post service. Xp and Votes are optional.
type Deps struct {
	Posts      postRepo.PostRepository
	Categories categoryRepo.CategoryRepository
	Transactor database.Transactor
	Xp         XpLedger
	Votes      VoteReader
}

type postService struct {
	Deps
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func NewPostService(deps Deps) PostService {
	return &postService{
		Deps:   deps,
		ugc:    bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
	}
}

func (s *postService) cleanText(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(text)))
}

func (s *postService) cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(s.cleanText(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// activeCategory rejects unknown and deactivated categories.
func (s *postService) activeCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	category, err := s.Categories.FindByID(ctx, *id)
	if errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("category %s does not exist: %w", *id, apperror.ErrBadRequest)
	}
	if err != nil {
		return err
	}
	if !category.IsActive {
		return fmt.Errorf("category %q is no longer accepting posts: %w", category.Name, apperror.ErrBadRequest)
	}
	return nil
}

// resolveSlug validates an explicit slug, or derives one from the title and
// suffixes it when the derived form is taken.
func (s *postService) resolveSlug(ctx context.Context, explicit, title string, except uuid.UUID) (string, error) {
	if explicit != "" {
		if !slug.Valid(explicit) {
			return "", fmt.Errorf("slug must be lowercase words joined by hyphens: %w", apperror.ErrBadRequest)
		}
		taken, err := s.Posts.SlugTaken(ctx, explicit, except)
		if err != nil {
			return "", err
		}
		if taken {
			return "", fmt.Errorf("post slug %q already exists: %w", explicit, apperror.ErrConflict)
		}
		return explicit, nil
	}

	derived := slug.Make(title, maxSlugLength-9)
	if derived == "" {
		derived = "post"
	}
	taken, err := s.Posts.SlugTaken(ctx, derived, except)
	if err != nil {
		return "", err
	}
	if taken {
		derived = fmt.Sprintf("%s-%s", derived, uuid.NewString()[:8])
	}
	return derived, nil
}

func (s *postService) ListPosts(ctx context.Context, query dto.ListPostsQuery) (*dto.PostListResponse, error) {
	page := max(query.Page, 1)
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	filter := postRepo.PostFilter{
		Tags:   splitTags(query.Tags),
		Search: query.Search,
		Offset: (page - 1) * limit,
		Limit:  limit,
	}
	if query.Category != "" {
		category, err := s.Categories.FindBySlug(ctx, strings.ToLower(query.Category))
		if err != nil {
			return nil, err
		}
		filter.CategoryID = &category.ID
	}
	if query.AuthorID != "" {
		authorID, err := uuid.Parse(query.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("invalid author id: %w", apperror.ErrBadRequest)
		}
		filter.AuthorID = &authorID
	}

	posts, total, err := s.Posts.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.PostListResponse{
		Data: dto.ToPostResponses(posts),
		Meta: commonDto.NewPaginationMeta(page, limit, total),
	}, nil
}

func (s *postService) CreatePost(ctx context.Context, authorID uuid.UUID, input dto.CreatePostInput) (*dto.PostResponse, error) {
	title := s.cleanText(input.Title)
	content := strings.TrimSpace(s.ugc.Sanitize(input.Content))
	if title == "" || content == "" {
		return nil, fmt.Errorf("title and content must not be empty: %w", apperror.ErrBadRequest)
	}
	if err := s.activeCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}
	postSlug, err := s.resolveSlug(ctx, strings.TrimSpace(input.Slug), title, uuid.Nil)
	if err != nil {
		return nil, err
	}

	post := &entity.Post{
		AuthorID:   authorID,
		CategoryID: input.CategoryID,
		Title:      title,
		Slug:       postSlug,
		Content:    content,
		Tags:       datatypes.JSONSlice[string](s.cleanTags(input.Tags)),
	}

	var award *xpService.GrantResult
	err = s.Transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.Posts.WithTx(tx).Create(ctx, post); err != nil {
			return err
		}
		if s.Xp == nil {
			return nil
		}
		result, err := s.Xp.GrantXpTx(ctx, tx, xpService.GrantInput{
			UserID:      authorID,
			Type:        entity.XpPostCreated,
			Reference:   entity.MustReference(entity.ReferencePost, post.ID),
			Description: "Started a discussion",
		})
		if err != nil {
			return fmt.Errorf("failed to award xp: %w", err)
		}
		award = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Xp != nil {
		s.Xp.AnnounceProgress(ctx, authorID, award)
	}

	created, err := s.Posts.FindByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	res := dto.ToPostResponse(created)
	return &res, nil
}

// detail counts the view and attaches the viewer's vote.
func (s *postService) detail(ctx context.Context, post *entity.Post, viewerID uuid.UUID) (*dto.PostDetailResponse, error) {
	if err := s.Posts.IncrementViews(ctx, post.ID); err != nil {
		log.Printf("Failed to count view on post %s: %v", post.ID, err)
	} else {
		post.ViewCount++
	}

	res := &dto.PostDetailResponse{PostResponse: dto.ToPostResponse(post)}
	if s.Votes != nil {
		vote, err := s.Votes.UserVote(ctx, viewerID, post.ID)
		if err != nil {
			return nil, err
		}
		res.UserVote = vote
	}
	return res, nil
}

func (s *postService) GetPost(ctx context.Context, id, viewerID uuid.UUID) (*dto.PostDetailResponse, error) {
	post, err := s.Posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, post, viewerID)
}

func (s *postService) GetPostBySlug(ctx context.Context, postSlug string, viewerID uuid.UUID) (*dto.PostDetailResponse, error) {
	post, err := s.Posts.FindBySlug(ctx, strings.ToLower(postSlug))
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, post, viewerID)
}

func (s *postService) owned(ctx context.Context, id, actorID uuid.UUID, verb string) (*entity.Post, error) {
	post, err := s.Posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, fmt.Errorf("you can only %s your own posts: %w", verb, apperror.ErrForbidden)
	}
	return post, nil
}

func (s *postService) UpdatePost(ctx context.Context, id, actorID uuid.UUID, input dto.UpdatePostInput) (*dto.PostResponse, error) {
	post, err := s.owned(ctx, id, actorID, "update")
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Title != nil {
		title := s.cleanText(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("title must not be empty: %w", apperror.ErrBadRequest)
		}
		fields["title"] = title
	}
	if input.Content != nil {
		content := strings.TrimSpace(s.ugc.Sanitize(*input.Content))
		if content == "" {
			return nil, fmt.Errorf("content must not be empty: %w", apperror.ErrBadRequest)
		}
		fields["content"] = content
	}
	if input.Slug != nil && *input.Slug != post.Slug {
		postSlug, err := s.resolveSlug(ctx, strings.TrimSpace(*input.Slug), post.Title, id)
		if err != nil {
			return nil, err
		}
		fields["slug"] = postSlug
	}
	if input.Tags != nil {
		fields["tags"] = datatypes.JSONSlice[string](s.cleanTags(input.Tags))
	}
	if input.CategoryID != nil {
		if err := s.activeCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *input.CategoryID
	}

	if len(fields) > 0 {
		if err := s.Posts.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	updated, err := s.Posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.ToPostResponse(updated)
	return &res, nil
}

func (s *postService) DeletePost(ctx context.Context, id, actorID uuid.UUID) error {
	if _, err := s.owned(ctx, id, actorID, "delete"); err != nil {
		return err
	}
	if err := s.Posts.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("Post %s deleted by its author", id)
	return nil
}
