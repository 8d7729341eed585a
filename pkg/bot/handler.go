package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"reimubot/pkg/chat"
	"reimubot/pkg/config"
	"reimubot/pkg/economy"
	"reimubot/pkg/logger"
	"reimubot/pkg/memory"
)

const (
	shutdownTrigger = "shut down bot"
	// Discord rejects message content above this many characters.
	maxMessageLength = 2000
)

// Handler routes Discord gateway events to the shrine economy and the chat
// persona.
type Handler struct {
	shrine      Shrine
	chatClient  ChatClient
	memoryStore memory.Store
	settings    config.ChatSettings
	authorID    string
	penalty     int64

	// identityMu guards botID and session, which Ready rewrites on every
	// gateway reconnect.
	identityMu sync.RWMutex
	botID      string
	session    Session

	rng   economy.Rand
	clock economy.Clock

	// shutdownDelay separates the goodbye message from the actual stop.
	shutdownDelay time.Duration
	lifecycleMu   sync.Mutex
	onShutdown    func()
	onRestart     func()
}

func NewHandler(s Shrine, c ChatClient, m memory.Store, settings config.ChatSettings, authorID string) *Handler {
	return &Handler{
		shrine:        s,
		chatClient:    c,
		memoryStore:   m,
		settings:      settings,
		authorID:      authorID,
		rng:           economy.NewRand(),
		clock:         economy.SystemClock{},
		shutdownDelay: 5 * time.Second,
	}
}

func (h *Handler) SetBotID(id string) {
	h.identityMu.Lock()
	defer h.identityMu.Unlock()
	h.botID = id
}

func (h *Handler) botIDValue() string {
	h.identityMu.RLock()
	defer h.identityMu.RUnlock()
	return h.botID
}

// SetDrawPenalty sets the amount quoted in the second repeat-draw warning.
func (h *Handler) SetDrawPenalty(p int64) {
	h.penalty = p
}

func (h *Handler) SetSession(s Session) {
	h.identityMu.Lock()
	defer h.identityMu.Unlock()
	h.session = s
}

func (h *Handler) currentSession() Session {
	h.identityMu.RLock()
	defer h.identityMu.RUnlock()
	return h.session
}

// SetLifecycle installs the callbacks run by the owner-only shutdown and
// restart controls.
func (h *Handler) SetLifecycle(shutdown, restart func()) {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()
	h.onShutdown = shutdown
	h.onRestart = restart
}

func (h *Handler) isOwner(userID string) bool {
	return h.authorID != "" && userID == h.authorID
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(&DiscordSession{Session: s}, m)
}

func (h *Handler) HandleMessage(s Session, m *discordgo.MessageCreate) {
	botID := h.botIDValue()
	if m.Author == nil || m.Author.ID == botID {
		return
	}

	if h.isMentioned(m, botID) || h.isReplyToBot(s, m, botID) {
		h.reply(s, m)
	}

	if strings.HasPrefix(m.Content, shutdownTrigger) {
		h.handleShutdownTrigger(s, m)
	}
}

func (h *Handler) isMentioned(m *discordgo.MessageCreate, botID string) bool {
	if botID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == botID {
			return true
		}
	}
	return strings.Contains(m.Content, "<@"+botID+">") || strings.Contains(m.Content, "<@!"+botID+">")
}

func (h *Handler) isReplyToBot(s Session, m *discordgo.MessageCreate, botID string) bool {
	if botID == "" || m.MessageReference == nil || m.MessageReference.MessageID == "" {
		return false
	}

	ref := m.ReferencedMessage
	if ref == nil {
		var err error
		ref, err = s.ChannelMessage(m.ChannelID, m.MessageReference.MessageID)
		if err != nil {
			logger.Debug("[Chat] referenced message not found",
				zap.String("message_id", m.MessageReference.MessageID),
				zap.Error(err))
			return false
		}
	}
	return ref != nil && ref.Author != nil && ref.Author.ID == botID
}

func (h *Handler) reply(s Session, m *discordgo.MessageCreate) {
	if err := s.ChannelTyping(m.ChannelID); err != nil {
		logger.Debug("[Chat] typing indicator failed", zap.Error(err))
	}

	timeout := h.settings.RequestTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	response := h.generateResponse(ctx, m.Author.ID, m.Content)
	h.sendSplitMessage(s, m.ChannelID, response, m.Reference())
}

// generateResponse records the prompt, prunes the conversation log and asks
// the model for a reply. Any failure on the model side yields the busy
// message.
func (h *Handler) generateResponse(ctx context.Context, userID, prompt string) string {
	if err := h.memoryStore.RecordMessage(ctx, userID, prompt); err != nil {
		logger.Warn("[Memory] failed to record message", zap.String("user", userID), zap.Error(err))
	}

	if h.settings.MessageRetention > 0 {
		cutoff := h.clock.Now().Add(-h.settings.MessageRetention)
		removed, err := h.memoryStore.CleanOldMessages(ctx, cutoff)
		if err != nil {
			logger.Warn("[Memory] failed to clean old messages", zap.Error(err))
		} else if removed > 0 {
			logger.Debug("[Memory] cleaned old messages", zap.Int("removed", removed))
		}
	}

	history, err := h.memoryStore.ContextMessages(ctx, userID)
	if err != nil {
		logger.Warn("[Memory] failed to load context", zap.String("user", userID), zap.Error(err))
	}

	persona, err := memory.Persona(ctx, h.memoryStore)
	if err != nil {
		logger.Warn("[Memory] failed to load persona, using default", zap.Error(err))
		persona = memory.DefaultPersona
	}

	messages := buildPrompt(persona, userID, prompt,
		memory.FormatContext(history, h.settings.ContextWordLimit, h.settings.ContextCharLimit))

	response, err := h.chatClient.Complete(ctx, messages)
	if err != nil {
		logger.Error("[Chat] completion failed", zap.String("user", userID), zap.Error(err))
		return h.settings.BusyMessage
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return h.settings.BusyMessage
	}
	return response
}

func buildPrompt(persona, userID, prompt, history string) []chat.Message {
	return []chat.Message{
		{Role: chat.RoleSystem, Content: "You are now Reimu Hakurei, the shrine maiden of the Hakurei Shrine. Background info: " + persona},
		{Role: chat.RoleUser, Content: userID + " says " + prompt},
		{Role: chat.RoleAssistant, Content: "Known context: \n" + history},
	}
}

func (h *Handler) handleShutdownTrigger(s Session, m *discordgo.MessageCreate) {
	if !h.isOwner(m.Author.ID) {
		if _, err := s.ChannelMessageSend(m.ChannelID, "You don't have permission to shut me down >_<"); err != nil {
			logger.Error("[Owner] failed to send refusal", zap.Error(err))
		}
		return
	}

	logger.Info("[Owner] shutdown requested by message", zap.String("user", m.Author.ID))
	if _, err := s.ChannelMessageSend(m.ChannelID, "Shutting down..."); err != nil {
		logger.Error("[Owner] failed to send shutdown notice", zap.Error(err))
	}
	h.scheduleLifecycle(false)
}

// scheduleLifecycle fires the shutdown or restart callback after the
// configured delay.
func (h *Handler) scheduleLifecycle(restart bool) {
	h.lifecycleMu.Lock()
	fn := h.onShutdown
	if restart {
		fn = h.onRestart
	}
	h.lifecycleMu.Unlock()

	if fn == nil {
		logger.Warn("[Owner] no lifecycle callback installed", zap.Bool("restart", restart))
		return
	}
	time.AfterFunc(h.shutdownDelay, fn)
}

// sendSplitMessage sends content in chunks Discord will accept. Only the first
// chunk is threaded as a reply.
func (h *Handler) sendSplitMessage(s Session, channelID, content string, reference *discordgo.MessageReference) {
	for i, part := range splitMessage(content, maxMessageLength) {
		var err error
		if i == 0 && reference != nil {
			_, err = s.ChannelMessageSendReply(channelID, part, reference)
		} else {
			_, err = s.ChannelMessageSend(channelID, part)
		}
		if err != nil {
			logger.Error("[Chat] failed to send message part", zap.Int("part", i), zap.Error(err))
		}
	}
}

// splitMessage breaks content into chunks of at most limit runes, preferring
// to cut at a newline and then at a space.
func splitMessage(content string, limit int) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var parts []string
	runes := []rune(content)
	for len(runes) > limit {
		cut := limit
		if i := lastIndexRune(runes[:limit], '\n'); i > 0 {
			cut = i
		} else if i := lastIndexRune(runes[:limit], ' '); i > 0 {
			cut = i
		}
		if part := strings.TrimSpace(string(runes[:cut])); part != "" {
			parts = append(parts, part)
		}
		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastIndexRune(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
