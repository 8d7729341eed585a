// Package chat talks to an OpenAI-compatible chat completion endpoint,
// rotating across API keys and falling back across models.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"reimubot/pkg/logger"
)

// ErrNoKeys is returned when the client was built without usable API keys.
var ErrNoKeys = errors.New("chat: no API keys configured")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

type Settings struct {
	// Models are tried in order until one answers.
	Models      []string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
}

type KeyState struct {
	Key          string
	FailureCount int
	LastUsed     time.Time
	LastSuccess  time.Time
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	settings   Settings

	keys  []*KeyState
	keyMu sync.RWMutex

	clients   map[string]openai.Client
	clientsMu sync.RWMutex
}

func NewClient(baseURL string, apiKeys []string, settings Settings) *Client {
	keys := make([]*KeyState, 0, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, &KeyState{Key: k})
		}
	}

	if len(keys) == 0 {
		logger.Warn("[Chat] no API keys provided")
	} else {
		logger.Info("[Chat] loaded API keys", zap.Int("count", len(keys)), zap.Strings("models", settings.Models))
	}

	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		settings:   settings,
		keys:       keys,
		clients:    make(map[string]openai.Client),
	}
}

func (c *Client) getClient(key string) openai.Client {
	c.clientsMu.RLock()
	if client, ok := c.clients[key]; ok {
		c.clientsMu.RUnlock()
		return client
	}
	c.clientsMu.RUnlock()

	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()

	client := openai.NewClient(
		option.WithBaseURL(c.baseURL),
		option.WithAPIKey(key),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)
	c.clients[key] = client
	return client
}

// getBestKey returns the key with the fewest recent failures, skipping any in
// tried.
func (c *Client) getBestKey(tried map[*KeyState]bool) *KeyState {
	c.keyMu.RLock()
	defer c.keyMu.RUnlock()

	var best *KeyState
	for _, k := range c.keys {
		if tried[k] {
			continue
		}
		if best == nil || k.FailureCount < best.FailureCount {
			best = k
		}
	}
	return best
}

func (c *Client) recordSuccess(key *KeyState) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	key.LastSuccess = time.Now()
	key.LastUsed = time.Now()
	if key.FailureCount > 0 {
		key.FailureCount--
	}
}

func (c *Client) recordFailure(key *KeyState) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	key.FailureCount++
	key.LastUsed = time.Now()
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out[i] = openai.SystemMessage(msg.Content)
		case RoleAssistant:
			out[i] = openai.AssistantMessage(msg.Content)
		default:
			out[i] = openai.UserMessage(msg.Content)
		}
	}
	return out
}

// Complete returns the first choice's content. Rate-limited or rejected keys
// are rotated out before moving on to the next model.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(c.keys) == 0 {
		return "", ErrNoKeys
	}
	if len(c.settings.Models) == 0 {
		return "", fmt.Errorf("chat: no models configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages:    toParams(messages),
		Temperature: openai.Float(c.settings.Temperature),
		TopP:        openai.Float(c.settings.TopP),
	}
	if c.settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.settings.MaxTokens))
	}

	var lastErr error
	for _, model := range c.settings.Models {
		params.Model = shared.ChatModel(model)

		tried := make(map[*KeyState]bool)
		for keyState := c.getBestKey(tried); keyState != nil; keyState = c.getBestKey(tried) {
			tried[keyState] = true
			start := time.Now()

			client := c.getClient(keyState.Key)
			resp, err := client.Chat.Completions.New(ctx, params)
			if err != nil {
				lastErr = err
				logger.Warn("[Chat] completion failed", zap.String("model", model), zap.Error(err))
				if isRateLimitOrAuthError(err) {
					c.recordFailure(keyState)
					continue
				}
				break
			}

			if resp == nil || len(resp.Choices) == 0 {
				lastErr = fmt.Errorf("empty response from model %s", model)
				break
			}

			c.recordSuccess(keyState)
			logger.Debug("[Chat] completion succeeded",
				zap.String("model", model),
				zap.Duration("took", time.Since(start)),
				zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int64("completion_tokens", resp.Usage.CompletionTokens))
			return resp.Choices[0].Message.Content, nil
		}

		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("all chat models exhausted: %w", lastErr)
}

func isRateLimitOrAuthError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusUnauthorized, http.StatusForbidden:
			return true
		}
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "unauthorized")
}
