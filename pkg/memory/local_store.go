package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// LocalStore keeps everything in process. It backs the bot when SurrealDB is
// not configured; nothing survives a restart.
type LocalStore struct {
	mu             sync.Mutex
	permanentAfter int
	now            func() time.Time

	nextID     int
	messages   []*UserMessage
	background []BackgroundInfo
}

func NewLocalStore(permanentAfter int) *LocalStore {
	return &LocalStore{permanentAfter: permanentAfter, now: time.Now}
}

func (s *LocalStore) id(table string) string {
	s.nextID++
	return fmt.Sprintf("%s:%d", table, s.nextID)
}

func (s *LocalStore) RecordMessage(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.UserID == userID && m.Text == text && !m.Permanent {
			m.RepeatCount, m.Permanent = nextRepeat(m.RepeatCount, s.permanentAfter)
			return nil
		}
	}

	s.messages = append(s.messages, &UserMessage{
		ID:        s.id(messagesTable),
		UserID:    userID,
		Text:      text,
		CreatedAt: s.now().UTC(),
	})
	return nil
}

func (s *LocalStore) CleanOldMessages(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[:0]
	deleted := 0
	for _, m := range s.messages {
		if !m.Permanent && m.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	return deleted, nil
}

func (s *LocalStore) ContextMessages(_ context.Context, userID string) ([]UserMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []UserMessage
	for _, m := range s.messages {
		if m.UserID == userID || m.UserID == SystemUserID {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *LocalStore) BackgroundInfo(_ context.Context, owner string) ([]BackgroundInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []BackgroundInfo
	for _, b := range s.background {
		if b.Owner == owner {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *LocalStore) AddBackgroundInfo(_ context.Context, owner string, infos ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for _, info := range infos {
		s.background = append(s.background, BackgroundInfo{
			ID:        s.id(backgroundTable),
			Owner:     owner,
			Info:      info,
			CreatedAt: now,
		})
	}
	return nil
}

func (s *LocalStore) ListBackgroundInfo(_ context.Context) ([]BackgroundInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]BackgroundInfo(nil), s.background...), nil
}

func (s *LocalStore) DeleteBackgroundInfo(_ context.Context, ids ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := s.background[:0]
	deleted := 0
	for _, b := range s.background {
		if drop[b.ID] {
			deleted++
			continue
		}
		kept = append(kept, b)
	}
	s.background = kept
	return deleted, nil
}
