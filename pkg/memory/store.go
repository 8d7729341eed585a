package memory

import (
	"context"
	"time"
)

// SystemUserID marks messages that belong in every user's context.
const SystemUserID = "system"

type UserMessage struct {
	ID          string    `json:"id,omitempty"`
	UserID      string    `json:"user_id"`
	Text        string    `json:"text"`
	RepeatCount int       `json:"repeat_count"`
	Permanent   bool      `json:"is_permanent"`
	CreatedAt   time.Time `json:"created_at"`
}

// BackgroundInfo is one persona fact. Owner is the persona name the fact is
// filed under.
type BackgroundInfo struct {
	ID        string    `json:"id,omitempty"`
	Owner     string    `json:"owner"`
	Info      string    `json:"info"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps the conversation log and persona background.
type Store interface {
	// RecordMessage logs text for userID. Repeating a non-permanent message
	// bumps its repeat count instead of adding a row.
	RecordMessage(ctx context.Context, userID, text string) error
	// CleanOldMessages drops non-permanent messages created before cutoff.
	CleanOldMessages(ctx context.Context, cutoff time.Time) (int, error)
	// ContextMessages returns userID's messages plus system messages, oldest
	// first.
	ContextMessages(ctx context.Context, userID string) ([]UserMessage, error)

	BackgroundInfo(ctx context.Context, owner string) ([]BackgroundInfo, error)
	AddBackgroundInfo(ctx context.Context, owner string, infos ...string) error
	ListBackgroundInfo(ctx context.Context) ([]BackgroundInfo, error)
	DeleteBackgroundInfo(ctx context.Context, ids ...string) (int, error)
}

// nextRepeat returns the repeat count after one more occurrence and whether
// that makes the message permanent.
func nextRepeat(count, permanentAfter int) (int, bool) {
	count++
	return count, permanentAfter > 0 && count >= permanentAfter
}
