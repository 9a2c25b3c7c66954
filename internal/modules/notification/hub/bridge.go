package hub

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "user_notifications:"

// Channel is the redis channel carrying notifications for userID.
func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s", channelPrefix, userID.String())
}

// UserFromChannel extracts the user id from a notification channel name.
func UserFromChannel(channel string) (uuid.UUID, bool) {
	if !strings.HasPrefix(channel, channelPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(channel, channelPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// ListenRedis forwards every message published on user_notifications:* to the
// local connections of that user. It blocks until ctx is cancelled.
func (h *Hub) ListenRedis(ctx context.Context, client *redis.Client) error {
	pubsub := client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe notifications: %w", err)
	}
	log.Println("Notification bridge subscribed to redis")

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID, ok := UserFromChannel(msg.Channel)
			if !ok {
				continue
			}
			h.Push(userID, []byte(msg.Payload))
		case <-ctx.Done():
			return nil
		}
	}
}
