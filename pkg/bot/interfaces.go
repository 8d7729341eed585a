package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"reimubot/pkg/chat"
	"reimubot/pkg/economy"
	"reimubot/pkg/shrine"
)

// Session interface abstracts discordgo.Session for testing
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) (err error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
}

// DiscordSession adapts discordgo.Session to the Session interface
type DiscordSession struct {
	*discordgo.Session
}

func (s *DiscordSession) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return s.Session.ChannelMessage(channelID, messageID, options...)
}

func (s *DiscordSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	return s.Session.InteractionRespond(interaction, resp, options...)
}

func (s *DiscordSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	return s.Session.UpdateStatusComplex(usd)
}

// Shrine is the economy surface the slash commands drive.
type Shrine interface {
	Work(ctx context.Context, realm, user string) (economy.WorkResult, error)
	Draw(ctx context.Context, realm, user string) (economy.DrawResult, error)
	Donate(ctx context.Context, realm, user string, amount int64) (economy.DonateResult, error)
	Balance(ctx context.Context, realm, user string) (shrine.BalanceView, error)
	Progress(ctx context.Context, realm, user string) (economy.Progress, error)
}

type ChatClient interface {
	Complete(ctx context.Context, messages []chat.Message) (string, error)
}
