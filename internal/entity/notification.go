package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationNewQuestion    NotificationType = "NEW_QUESTION"
	NotificationNewAnswer      NotificationType = "NEW_ANSWER"
	NotificationAnswerAccepted NotificationType = "ANSWER_ACCEPTED"
	NotificationNewFollower    NotificationType = "NEW_FOLLOWER"
	NotificationMention        NotificationType = "MENTION"
	NotificationVoteReceived   NotificationType = "VOTE_RECEIVED"
	NotificationLevelUp        NotificationType = "LEVEL_UP"
	NotificationRankUp         NotificationType = "RANK_UP"
	NotificationXpGained       NotificationType = "XP_GAINED"
	NotificationMentorAssigned NotificationType = "MENTOR_ASSIGNED"
	NotificationMenteeAssigned NotificationType = "MENTEE_ASSIGNED"
	NotificationMentorMessage  NotificationType = "MENTOR_MESSAGE"
	NotificationNewComment     NotificationType = "NEW_COMMENT"
)

// ReferenceKind names the kind of entity a notification points at.
type ReferenceKind string

const (
	ReferenceUser       ReferenceKind = "user"
	ReferenceQuestion   ReferenceKind = "question"
	ReferenceAnswer     ReferenceKind = "answer"
	ReferenceMentorship ReferenceKind = "mentorship"
	ReferencePost       ReferenceKind = "post"
	ReferenceComment    ReferenceKind = "comment"
	ReferenceCourse     ReferenceKind = "course"
)

func (k ReferenceKind) Valid() bool {
	switch k {
	case ReferenceUser, ReferenceQuestion, ReferenceAnswer, ReferenceMentorship,
		ReferencePost, ReferenceComment, ReferenceCourse:
		return true
	}
	return false
}

// Reference is the tagged "what is this about" of a notification. It is
// stored and serialized as the reference_type / reference_id pair; a zero
// Reference means the notification points at nothing.
type Reference struct {
	Kind     ReferenceKind `gorm:"column:type;size:30" json:"reference_type,omitempty"`
	EntityID string        `gorm:"column:id;size:36" json:"reference_id,omitempty"`
}

func NewReference(kind ReferenceKind, id uuid.UUID) (Reference, error) {
	if !kind.Valid() {
		return Reference{}, fmt.Errorf("unknown reference kind %q", kind)
	}
	return Reference{Kind: kind, EntityID: id.String()}, nil
}

// MustReference is NewReference for the package's own constant kinds.
func MustReference(kind ReferenceKind, id uuid.UUID) Reference {
	ref, err := NewReference(kind, id)
	if err != nil {
		panic(err)
	}
	return ref
}

func (r Reference) Empty() bool {
	return r.Kind == "" && r.EntityID == ""
}

// Target parses the referenced id.
func (r Reference) Target() (uuid.UUID, error) {
	return uuid.Parse(r.EntityID)
}

type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Content   string           `gorm:"type:text;not null" json:"content"`
	ActorID   *uuid.UUID       `gorm:"type:uuid" json:"actor_id"`
	Actor     *User            `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL" json:"-"`
	Reference `gorm:"embedded;embeddedPrefix:reference_"`
	Metadata  datatypes.JSON   `json:"metadata,omitempty"`
	IsRead    bool             `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	ReadAt    *time.Time       `json:"read_at"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
