package service

import (
	"context"
	"fmt"

	"anoa.com/studentcommunity/internal/entity"
	"github.com/google/uuid"
)

func (s *notificationService) NotifyMentorshipRequest(ctx context.Context, mentorID uuid.UUID, menteeName string, menteeID uuid.UUID) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    mentorID,
		Type:      entity.NotificationMenteeAssigned,
		Title:     "New Mentorship Request",
		Content:   fmt.Sprintf("%s has requested you as a mentor.", menteeName),
		ActorID:   &menteeID,
		Reference: entity.MustReference(entity.ReferenceUser, menteeID),
	})
}

func (s *notificationService) NotifyMentorshipAccepted(ctx context.Context, menteeID uuid.UUID, mentorName string, mentorID uuid.UUID) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    menteeID,
		Type:      entity.NotificationMentorAssigned,
		Title:     "Mentorship Request Accepted",
		Content:   fmt.Sprintf("%s has accepted your mentorship request.", mentorName),
		ActorID:   &mentorID,
		Reference: entity.MustReference(entity.ReferenceUser, mentorID),
	})
}

func (s *notificationService) NotifyMentorshipRejected(ctx context.Context, menteeID uuid.UUID, mentorName string, mentorID uuid.UUID) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    menteeID,
		Type:      entity.NotificationMentorMessage,
		Title:     "Mentorship Request Declined",
		Content:   fmt.Sprintf("%s has declined your mentorship request.", mentorName),
		ActorID:   &mentorID,
		Reference: entity.MustReference(entity.ReferenceUser, mentorID),
	})
}

// NotifyMentorshipCompleted asks userID to rate partnerID. rateRole is the
// partner's role in the mentorship ("mentor" or "mentee").
func (s *notificationService) NotifyMentorshipCompleted(ctx context.Context, userID uuid.UUID, partnerName string, partnerID uuid.UUID, rateRole string) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    userID,
		Type:      entity.NotificationMentorMessage,
		Title:     "Mentorship Completed",
		Content:   fmt.Sprintf("Your mentorship with %s has been completed. Please rate your %s.", partnerName, rateRole),
		ActorID:   &partnerID,
		Reference: entity.MustReference(entity.ReferenceUser, partnerID),
	})
}

func (s *notificationService) NotifyNewAnswer(ctx context.Context, questionAuthorID uuid.UUID, answererName string, answererID, questionID uuid.UUID, questionTitle string) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    questionAuthorID,
		Type:      entity.NotificationNewAnswer,
		Title:     "New Answer to Your Question",
		Content:   fmt.Sprintf("%s answered your question: %q", answererName, questionTitle),
		ActorID:   &answererID,
		Reference: entity.MustReference(entity.ReferenceQuestion, questionID),
	})
}

func (s *notificationService) NotifyAnswerAccepted(ctx context.Context, answerAuthorID uuid.UUID, questionAuthorName string, questionAuthorID, questionID uuid.UUID, questionTitle string) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    answerAuthorID,
		Type:      entity.NotificationAnswerAccepted,
		Title:     "Your Answer Was Accepted!",
		Content:   fmt.Sprintf("%s accepted your answer to: %q", questionAuthorName, questionTitle),
		ActorID:   &questionAuthorID,
		Reference: entity.MustReference(entity.ReferenceQuestion, questionID),
	})
}

// NotifyMention tells mentionedID they were mentioned; where is a short
// description such as "a question" or "an answer".
func (s *notificationService) NotifyMention(ctx context.Context, mentionedID uuid.UUID, mentionerName string, mentionerID uuid.UUID, ref entity.Reference, where string) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    mentionedID,
		Type:      entity.NotificationMention,
		Title:     "You Were Mentioned",
		Content:   fmt.Sprintf("%s mentioned you in %s", mentionerName, where),
		ActorID:   &mentionerID,
		Reference: ref,
	})
}

func (s *notificationService) NotifyVoteReceived(ctx context.Context, authorID uuid.UUID, voterName string, voterID uuid.UUID, ref entity.Reference, isUpvote bool) (*entity.Notification, error) {
	verb := "upvoted"
	if !isUpvote {
		verb = "downvoted"
	}
	return s.Notify(ctx, NotifyInput{
		UserID:    authorID,
		Type:      entity.NotificationVoteReceived,
		Title:     "Your Content Was " + capitalize(verb),
		Content:   fmt.Sprintf("%s %s your %s", voterName, verb, ref.Kind),
		ActorID:   &voterID,
		Reference: ref,
	})
}

func (s *notificationService) NotifyLevelUp(ctx context.Context, userID uuid.UUID, newLevel int) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    userID,
		Type:      entity.NotificationLevelUp,
		Title:     "Level Up!",
		Content:   fmt.Sprintf("Congratulations! You've reached level %d!", newLevel),
		Reference: entity.MustReference(entity.ReferenceUser, userID),
		Metadata:  map[string]any{"level": newLevel},
	})
}

func (s *notificationService) NotifyRankUp(ctx context.Context, userID uuid.UUID, newRank entity.Rank) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    userID,
		Type:      entity.NotificationRankUp,
		Title:     "Rank Up!",
		Content:   fmt.Sprintf("Congratulations! You've been promoted to %s rank!", newRank),
		Reference: entity.MustReference(entity.ReferenceUser, userID),
		Metadata:  map[string]any{"rank": newRank},
	})
}

func (s *notificationService) NotifyXpGained(ctx context.Context, userID uuid.UUID, amount int, reason string) (*entity.Notification, error) {
	return s.Notify(ctx, NotifyInput{
		UserID:    userID,
		Type:      entity.NotificationXpGained,
		Title:     fmt.Sprintf("+%d XP", amount),
		Content:   fmt.Sprintf("You earned %d XP for %s", amount, reason),
		Reference: entity.MustReference(entity.ReferenceUser, userID),
		Metadata:  map[string]any{"amount": amount},
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
