package memory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"reimubot/pkg/logger"
	"reimubot/pkg/surreal"
)

const (
	messagesTable   = "user_messages"
	backgroundTable = "background_info"
)

type SurrealStore struct {
	client         *surreal.Client
	permanentAfter int
	now            func() time.Time
}

// NewSurrealStore builds a store on client. A message repeated permanentAfter
// times is never cleaned up.
func NewSurrealStore(ctx context.Context, client *surreal.Client, permanentAfter int) *SurrealStore {
	store := &SurrealStore{
		client:         client,
		permanentAfter: permanentAfter,
		now:            time.Now,
	}
	if err := store.defineSchema(ctx); err != nil {
		// The schema may already exist or the DB may come back later.
		logger.Warn("[Memory] failed to initialize SurrealDB schema", zap.Error(err))
	}
	return store
}

func (s *SurrealStore) defineSchema(ctx context.Context) error {
	query := `
		DEFINE TABLE IF NOT EXISTS user_messages SCHEMAFULL;
		DEFINE FIELD IF NOT EXISTS user_id ON user_messages TYPE string;
		DEFINE FIELD IF NOT EXISTS text ON user_messages TYPE string;
		DEFINE FIELD IF NOT EXISTS repeat_count ON user_messages TYPE int DEFAULT 0;
		DEFINE FIELD IF NOT EXISTS is_permanent ON user_messages TYPE bool DEFAULT false;
		DEFINE FIELD IF NOT EXISTS created_at ON user_messages TYPE int;
		DEFINE INDEX IF NOT EXISTS user_messages_user ON user_messages FIELDS user_id;

		DEFINE TABLE IF NOT EXISTS background_info SCHEMAFULL;
		DEFINE FIELD IF NOT EXISTS owner ON background_info TYPE string;
		DEFINE FIELD IF NOT EXISTS info ON background_info TYPE string;
		DEFINE FIELD IF NOT EXISTS created_at ON background_info TYPE int;
		DEFINE INDEX IF NOT EXISTS background_info_owner ON background_info FIELDS owner;
	`
	_, err := s.client.Query(ctx, query, nil)
	return err
}

func (s *SurrealStore) RecordMessage(ctx context.Context, userID, text string) error {
	rows, err := s.client.SelectWhere(ctx, messagesTable, map[string]interface{}{
		"user_id":      userID,
		"text":         text,
		"is_permanent": false,
	}, "", false, 1)
	if err != nil {
		return fmt.Errorf("find message: %w", err)
	}

	if len(rows) > 0 {
		row, ok := rows[0].(map[string]interface{})
		if !ok {
			return fmt.Errorf("unexpected row format: %T", rows[0])
		}
		count, permanent := nextRepeat(int(toInt64(row["repeat_count"])), s.permanentAfter)
		_, err := s.client.Query(ctx, `UPDATE $id SET repeat_count = $count, is_permanent = $permanent;`, map[string]interface{}{
			"id":        row["id"],
			"count":     count,
			"permanent": permanent,
		})
		if err != nil {
			return fmt.Errorf("bump message: %w", err)
		}
		if permanent {
			logger.Debug("[Memory] message became permanent", zap.String("user_id", userID))
		}
		return nil
	}

	_, err = s.client.Create(ctx, messagesTable, map[string]interface{}{
		"user_id":      userID,
		"text":         text,
		"repeat_count": 0,
		"is_permanent": false,
		"created_at":   s.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *SurrealStore) CleanOldMessages(ctx context.Context, cutoff time.Time) (int, error) {
	rows, err := s.client.Rows(ctx,
		`DELETE user_messages WHERE created_at < $cutoff AND is_permanent = false RETURN BEFORE;`,
		map[string]interface{}{"cutoff": cutoff.Unix()})
	if err != nil {
		return 0, fmt.Errorf("clean messages: %w", err)
	}
	return len(rows), nil
}

func (s *SurrealStore) ContextMessages(ctx context.Context, userID string) ([]UserMessage, error) {
	rows, err := s.client.Rows(ctx, `
		SELECT * FROM user_messages
		WHERE user_id = $user_id OR user_id = $system
		ORDER BY created_at ASC;
	`, map[string]interface{}{"user_id": userID, "system": SystemUserID})
	if err != nil {
		return nil, fmt.Errorf("load context: %w", err)
	}

	messages := make([]UserMessage, 0, len(rows))
	for _, row := range rows {
		rowMap, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		msg := UserMessage{
			ID:          extractID(rowMap),
			RepeatCount: int(toInt64(rowMap["repeat_count"])),
			CreatedAt:   unixTime(rowMap["created_at"]),
		}
		msg.UserID, _ = rowMap["user_id"].(string)
		msg.Text, _ = rowMap["text"].(string)
		msg.Permanent, _ = rowMap["is_permanent"].(bool)
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *SurrealStore) BackgroundInfo(ctx context.Context, owner string) ([]BackgroundInfo, error) {
	rows, err := s.client.SelectWhere(ctx, backgroundTable, map[string]interface{}{"owner": owner}, "created_at", false, 0)
	if err != nil {
		return nil, fmt.Errorf("load background info: %w", err)
	}
	return parseBackground(rows), nil
}

func (s *SurrealStore) ListBackgroundInfo(ctx context.Context) ([]BackgroundInfo, error) {
	rows, err := s.client.SelectWhere(ctx, backgroundTable, nil, "created_at", false, 0)
	if err != nil {
		return nil, fmt.Errorf("list background info: %w", err)
	}
	return parseBackground(rows), nil
}

func parseBackground(rows []interface{}) []BackgroundInfo {
	infos := make([]BackgroundInfo, 0, len(rows))
	for _, row := range rows {
		rowMap, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		info := BackgroundInfo{
			ID:        extractID(rowMap),
			CreatedAt: unixTime(rowMap["created_at"]),
		}
		info.Owner, _ = rowMap["owner"].(string)
		info.Info, _ = rowMap["info"].(string)
		infos = append(infos, info)
	}
	return infos
}

func (s *SurrealStore) AddBackgroundInfo(ctx context.Context, owner string, infos ...string) error {
	now := s.now().Unix()
	for _, info := range infos {
		_, err := s.client.Create(ctx, backgroundTable, map[string]interface{}{
			"owner":      owner,
			"info":       info,
			"created_at": now,
		})
		if err != nil {
			return fmt.Errorf("add background info: %w", err)
		}
	}
	return nil
}

func (s *SurrealStore) DeleteBackgroundInfo(ctx context.Context, ids ...string) (int, error) {
	deleted := 0
	for _, id := range ids {
		key, err := splitID(id, backgroundTable)
		if err != nil {
			return deleted, err
		}
		rows, err := s.client.Rows(ctx,
			`DELETE type::thing("background_info", $key) RETURN BEFORE;`,
			map[string]interface{}{"key": key})
		if err != nil {
			return deleted, fmt.Errorf("delete background info %s: %w", id, err)
		}
		deleted += len(rows)
	}
	return deleted, nil
}
