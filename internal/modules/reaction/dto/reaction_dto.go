package dto

import "github.com/google/uuid"

type VoteInput struct {
	Value int `json:"value" binding:"required,oneof=1 -1"`
}

// Vote actions.
const (
	VoteCreated   = "created"
	VoteChanged   = "changed"
	VoteUnchanged = "unchanged"
	VoteRemoved   = "removed"
)

type VoteStatsResponse struct {
	PostID    uuid.UUID `json:"post_id"`
	VoteScore int       `json:"vote_score"`
	Upvotes   int64     `json:"upvotes"`
	Downvotes int64     `json:"downvotes"`
	UserVote  *int      `json:"user_vote"`
	Action    string    `json:"action,omitempty"`
}
