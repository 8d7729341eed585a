package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimubot/pkg/chat"
	"reimubot/pkg/config"
	"reimubot/pkg/memory"
)

const testBotID = "bot-1"

// MockSession implements Session for testing
type MockSession struct {
	mu           sync.Mutex
	SentMessages []string
	Replies      []string
	TypingCalls  int
	Responses    []*discordgo.InteractionResponse
	Statuses     []discordgo.UpdateStatusData
	// Messages backs ChannelMessage lookups by message ID.
	Messages map[string]*discordgo.Message
}

func (m *MockSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, content)
	return &discordgo.Message{ID: "mock_msg_id", ChannelID: channelID, Content: content}, nil
}

func (m *MockSession) ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Replies = append(m.Replies, content)
	return &discordgo.Message{ID: "mock_msg_id", ChannelID: channelID, Content: content}, nil
}

func (m *MockSession) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if msg, ok := m.Messages[messageID]; ok {
		return msg, nil
	}
	return nil, errors.New("unknown message")
}

func (m *MockSession) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	m.TypingCalls++
	return nil
}

func (m *MockSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.Responses = append(m.Responses, resp)
	return nil
}

func (m *MockSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	m.Statuses = append(m.Statuses, usd)
	return nil
}

// MockChat records the prompts it receives.
type MockChat struct {
	Reply    string
	Err      error
	Requests [][]chat.Message
}

func (m *MockChat) Complete(_ context.Context, messages []chat.Message) (string, error) {
	m.Requests = append(m.Requests, messages)
	return m.Reply, m.Err
}

// firstRand always picks the first option.
type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

func newTestHandler(s Shrine, c ChatClient, m memory.Store) *Handler {
	h := NewHandler(s, c, m, config.Default().Chat, "owner-1")
	h.SetBotID(testBotID)
	h.rng = firstRand{}
	h.shutdownDelay = 0
	return h
}

func userMessage(authorID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m-1",
		ChannelID: "c-1",
		Content:   content,
		Author:    &discordgo.User{ID: authorID},
	}}
}

func TestHandleMessage_IgnoresOwnMessages(t *testing.T) {
	chatClient := &MockChat{Reply: "hi"}
	h := newTestHandler(&fakeShrine{}, chatClient, memory.NewLocalStore(10))
	session := &MockSession{}

	h.HandleMessage(session, userMessage(testBotID, "<@"+testBotID+"> talking to myself"))

	assert.Empty(t, session.Replies)
	assert.Empty(t, chatClient.Requests)
}

func TestHandleMessage_IgnoresUnaddressedMessages(t *testing.T) {
	chatClient := &MockChat{Reply: "hi"}
	h := newTestHandler(&fakeShrine{}, chatClient, memory.NewLocalStore(10))
	session := &MockSession{}

	h.HandleMessage(session, userMessage("u-1", "just chatting"))

	assert.Empty(t, session.Replies)
	assert.Empty(t, session.SentMessages)
	assert.Empty(t, chatClient.Requests)
}

func TestHandleMessage_RepliesWhenMentioned(t *testing.T) {
	chatClient := &MockChat{Reply: "  Donate first, then we talk.  "}
	store := memory.NewLocalStore(10)
	h := newTestHandler(&fakeShrine{}, chatClient, store)
	session := &MockSession{}

	content := "<@" + testBotID + "> how is the shrine?"
	h.HandleMessage(session, userMessage("u-1", content))

	require.Len(t, session.Replies, 1)
	assert.Equal(t, "Donate first, then we talk.", session.Replies[0])
	assert.Equal(t, 1, session.TypingCalls)

	require.Len(t, chatClient.Requests, 1)
	prompt := chatClient.Requests[0]
	require.Len(t, prompt, 3)
	assert.Equal(t, chat.RoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "Background info: "+memory.DefaultPersona)
	assert.Equal(t, chat.RoleUser, prompt[1].Role)
	assert.Equal(t, "u-1 says "+content, prompt[1].Content)
	assert.Equal(t, chat.RoleAssistant, prompt[2].Role)
	assert.True(t, strings.HasPrefix(prompt[2].Content, "Known context: \n"))
	assert.Contains(t, prompt[2].Content, "u-1 says "+content)

	// The persona was seeded and the message recorded.
	infos, err := store.BackgroundInfo(context.Background(), memory.PersonaOwner)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
	msgs, err := store.ContextMessages(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestHandleMessage_MentionListCounts(t *testing.T) {
	chatClient := &MockChat{Reply: "yes?"}
	h := newTestHandler(&fakeShrine{}, chatClient, memory.NewLocalStore(10))
	session := &MockSession{}

	m := userMessage("u-1", "hey Reimu")
	m.Mentions = []*discordgo.User{{ID: testBotID}}
	h.HandleMessage(session, m)

	assert.Equal(t, []string{"yes?"}, session.Replies)
}

func TestHandleMessage_BusyMessageOnChatFailure(t *testing.T) {
	chatClient := &MockChat{Err: errors.New("upstream down")}
	h := newTestHandler(&fakeShrine{}, chatClient, memory.NewLocalStore(10))
	session := &MockSession{}

	h.HandleMessage(session, userMessage("u-1", "<@"+testBotID+"> hello"))

	require.Len(t, session.Replies, 1)
	assert.Equal(t, config.Default().Chat.BusyMessage, session.Replies[0])
}

func TestHandleMessage_ReplyToBot(t *testing.T) {
	chatClient := &MockChat{Reply: "What now?"}
	h := newTestHandler(&fakeShrine{}, chatClient, memory.NewLocalStore(10))
	session := &MockSession{Messages: map[string]*discordgo.Message{
		"bot-msg":   {ID: "bot-msg", Author: &discordgo.User{ID: testBotID}},
		"other-msg": {ID: "other-msg", Author: &discordgo.User{ID: "u-2"}},
	}}

	toBot := userMessage("u-1", "and then?")
	toBot.MessageReference = &discordgo.MessageReference{MessageID: "bot-msg", ChannelID: "c-1"}
	h.HandleMessage(session, toBot)
	assert.Equal(t, []string{"What now?"}, session.Replies)

	toOther := userMessage("u-1", "and then?")
	toOther.MessageReference = &discordgo.MessageReference{MessageID: "other-msg", ChannelID: "c-1"}
	h.HandleMessage(session, toOther)

	missing := userMessage("u-1", "and then?")
	missing.MessageReference = &discordgo.MessageReference{MessageID: "deleted", ChannelID: "c-1"}
	h.HandleMessage(session, missing)

	assert.Len(t, session.Replies, 1)
	assert.Len(t, chatClient.Requests, 1)
}

func TestHandleMessage_ReplyUsesEmbeddedReference(t *testing.T) {
	chatClient := &MockChat{Reply: "Hm?"}
	h := newTestHandler(&fakeShrine{}, chatClient, memory.NewLocalStore(10))
	session := &MockSession{}

	m := userMessage("u-1", "really?")
	m.MessageReference = &discordgo.MessageReference{MessageID: "bot-msg"}
	m.ReferencedMessage = &discordgo.Message{ID: "bot-msg", Author: &discordgo.User{ID: testBotID}}
	h.HandleMessage(session, m)

	assert.Equal(t, []string{"Hm?"}, session.Replies)
}

func TestHandleMessage_ShutdownTrigger(t *testing.T) {
	h := newTestHandler(&fakeShrine{}, &MockChat{}, memory.NewLocalStore(10))
	stopped := make(chan struct{}, 1)
	h.SetLifecycle(func() { stopped <- struct{}{} }, nil)

	session := &MockSession{}
	h.HandleMessage(session, userMessage("u-1", "shut down bot please"))
	assert.Equal(t, []string{"You don't have permission to shut me down >_<"}, session.SentMessages)

	select {
	case <-stopped:
		t.Fatal("non-owner must not stop the bot")
	case <-time.After(50 * time.Millisecond):
	}

	session = &MockSession{}
	h.HandleMessage(session, userMessage("owner-1", "shut down bot"))
	assert.Equal(t, []string{"Shutting down..."}, session.SentMessages)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback was not called")
	}
}

func TestSplitMessage(t *testing.T) {
	assert.Nil(t, splitMessage("   ", 10))
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"hello", "world"}, splitMessage("hello world", 8))
	assert.Equal(t, []string{"line one", "line two"}, splitMessage("line one\nline two", 12))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, splitMessage("abcdefghij", 4))

	long := strings.Repeat("霊夢 ", 1500)
	for _, part := range splitMessage(long, maxMessageLength) {
		assert.LessOrEqual(t, len([]rune(part)), maxMessageLength)
	}
}

func TestSendSplitMessage_OnlyFirstPartIsReply(t *testing.T) {
	h := newTestHandler(&fakeShrine{}, &MockChat{}, memory.NewLocalStore(10))
	session := &MockSession{}

	content := strings.Repeat("a", maxMessageLength) + "\n" + "tail"
	h.sendSplitMessage(session, "c-1", content, &discordgo.MessageReference{MessageID: "m-1"})

	assert.Len(t, session.Replies, 1)
	assert.Equal(t, []string{"tail"}, session.SentMessages)
}

func TestReady_SetsPresence(t *testing.T) {
	h := newTestHandler(&fakeShrine{}, &MockChat{}, memory.NewLocalStore(10))
	session := &MockSession{}
	h.SetSession(session)

	h.updatePresence()

	require.Len(t, session.Statuses, 1)
	status := session.Statuses[0]
	assert.Equal(t, "dnd", status.Status)
	require.Len(t, status.Activities, 1)
	assert.Equal(t, "Hakurei Shrine", status.Activities[0].Name)
	assert.Equal(t, discordgo.ActivityTypeWatching, status.Activities[0].Type)
}

func TestHandleMessage_ConcurrentWithReady(t *testing.T) {
	h := newTestHandler(&fakeShrine{}, &MockChat{Reply: "hi"}, memory.NewLocalStore(10))
	session := &MockSession{}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			h.SetBotID(testBotID)
			h.SetSession(session)
			h.updatePresence()
		}
	}()

	for i := 0; i < 50; i++ {
		h.HandleMessage(session, userMessage("u-1", "<@"+testBotID+"> hi"))
	}
	wg.Wait()

	assert.Len(t, session.Replies, 50)
	assert.Len(t, session.Statuses, 50)
	assert.Equal(t, testBotID, h.botIDValue())
}
