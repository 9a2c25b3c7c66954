package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strings"

	"anoa.com/studentcommunity/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const QuestionsIndex = "questions"

type SearchService interface {
	IndexQuestion(ctx context.Context, question *entity.Question) error
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	SearchQuestions(ctx context.Context, query string, limit int) ([]uuid.UUID, int64, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

// NewMeiliSearchService configures the questions index. Settings failures are
// logged; documents can still be written.
func NewMeiliSearchService(client meilisearch.ServiceManager) SearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterable := []any{"status", "tags", "author_id"}
	if _, err := s.client.Index(QuestionsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("Failed to update questions filterable attributes: %v", err)
	}

	sortable := []string{"created_at", "vote_count", "bounty"}
	if _, err := s.client.Index(QuestionsIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("Failed to update questions sortable attributes: %v", err)
	}

	log.Println("Meilisearch indexes initialized")
}

type questionDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
	AuthorID    string   `json:"author_id"`
	AuthorName  string   `json:"author_name"`
	VoteCount   int      `json:"vote_count"`
	AnswerCount int      `json:"answer_count"`
	Bounty      int      `json:"bounty"`
	CreatedAt   int64    `json:"created_at"`
}

// CleanText turns stored HTML into plain searchable text.
func CleanText(policy *bluemonday.Policy, content string) string {
	// block tags become spaces so words do not merge
	for _, tag := range []string{"</p>", "<br>", "<br/>", "</div>", "</li>"} {
		content = strings.ReplaceAll(content, tag, " ")
	}
	text := html.UnescapeString(policy.Sanitize(content))
	return strings.Join(strings.Fields(text), " ")
}

func (s *meiliSearchService) toDoc(q *entity.Question) questionDoc {
	tags := []string(q.Tags)
	if tags == nil {
		tags = []string{}
	}
	return questionDoc{
		ID:          q.ID.String(),
		Title:       q.Title,
		Content:     CleanText(s.sanitizer, q.Content),
		Tags:        tags,
		Status:      string(q.Status),
		AuthorID:    q.AuthorID.String(),
		AuthorName:  q.Author.Name,
		VoteCount:   q.VoteCount,
		AnswerCount: q.AnswerCount,
		Bounty:      q.Bounty,
		CreatedAt:   q.CreatedAt.Unix(),
	}
}

func (s *meiliSearchService) IndexQuestion(ctx context.Context, question *entity.Question) error {
	doc := s.toDoc(question)
	task, err := s.client.Index(QuestionsIndex).AddDocuments([]questionDoc{doc}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("index question %s: %w", question.ID, err)
	}
	log.Printf("Indexed question %s, task id: %d", question.ID, task.TaskUID)
	return nil
}

func (s *meiliSearchService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	if _, err := s.client.Index(QuestionsIndex).DeleteDocument(id.String()); err != nil {
		return fmt.Errorf("delete question %s from index: %w", id, err)
	}
	return nil
}

func (s *meiliSearchService) SearchQuestions(ctx context.Context, query string, limit int) ([]uuid.UUID, int64, error) {
	resp, err := s.client.Index(QuestionsIndex).Search(query, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, 0, err
	}

	ids, err := hitIDs(resp.Hits)
	if err != nil {
		return nil, 0, err
	}
	return ids, resp.EstimatedTotalHits, nil
}

// hitIDs reads the id attribute out of raw search hits.
func hitIDs(hits any) ([]uuid.UUID, error) {
	raw, err := json.Marshal(hits)
	if err != nil {
		return nil, fmt.Errorf("decode search hits: %w", err)
	}
	var docs []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode search hits: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
