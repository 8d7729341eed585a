package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"reimubot/pkg/economy"
	"reimubot/pkg/logger"
)

// dmRealm is the realm for commands used outside a guild.
const dmRealm = "dm"

// Balances at or above this get the astonished footer.
const hugeBalance int64 = 1_000_000_000_000_000_000

const genericFailure = "Something went wrong, and Reimu is working on fixing it. Please try again later!"

var minDonation = 1.0

// SlashCommands defines all available slash commands
var SlashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "draw_lots",
		Description: "Ask Reimu Hakurei to draw a fortune for you, seeking spiritual guidance!",
	},
	{
		Name:        "donate",
		Description: "Donate offering money to Reimu Hakurei to support the shrine!",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "amount",
				Description: "How much offering money to donate",
				Required:    true,
				MinValue:    &minDonation,
			},
		},
	},
	{
		Name:        "work",
		Description: "Work at the Hakurei Shrine to earn offering money!",
	},
	{
		Name:        "work_progress",
		Description: "Check your work progress at the Hakurei Shrine!",
	},
	{
		Name:        "balance",
		Description: "Check your offering money balance!",
	},
	{
		Name:        "shutdown",
		Description: "Have Reimu Hakurei shut down the bot, author only",
	},
	{
		Name:        "restart",
		Description: "Have Reimu Hakurei restart the bot, author only",
	},
}

// SlashCommandHandlers maps command names to their handler functions
var SlashCommandHandlers = map[string]func(h *Handler, s Session, i *discordgo.InteractionCreate){
	"draw_lots":     handleDrawCommand,
	"donate":        handleDonateCommand,
	"work":          handleWorkCommand,
	"work_progress": handleWorkProgressCommand,
	"balance":       handleBalanceCommand,
	"shutdown":      handleShutdownCommand,
	"restart":       handleRestartCommand,
}

func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.HandleInteraction(&DiscordSession{Session: s}, i)
}

func (h *Handler) HandleInteraction(s Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	handler, ok := SlashCommandHandlers[name]
	if !ok {
		logger.Warn("[Commands] unknown command", zap.String("command", name))
		return
	}
	handler(h, s, i)
}

// RegisterSlashCommands registers every command for guildID, or globally when
// guildID is empty.
func RegisterSlashCommands(s *discordgo.Session, guildID string) ([]*discordgo.ApplicationCommand, error) {
	registered := make([]*discordgo.ApplicationCommand, 0, len(SlashCommands))
	for _, cmd := range SlashCommands {
		created, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			return registered, fmt.Errorf("register command %q: %w", cmd.Name, err)
		}
		registered = append(registered, created)
	}
	logger.Info("[Commands] registered slash commands", zap.Int("count", len(registered)), zap.String("guild", guildID))
	return registered, nil
}

func UnregisterSlashCommands(s *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand) {
	for _, cmd := range commands {
		if err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID); err != nil {
			logger.Warn("[Commands] failed to delete command", zap.String("command", cmd.Name), zap.Error(err))
		}
	}
}

// getUserFromInteraction extracts the user ID and name from an interaction
// It handles both guild (Member) and DM (User) contexts
func getUserFromInteraction(i *discordgo.InteractionCreate) (string, string, error) {
	var u *discordgo.User
	if i.Member != nil && i.Member.User != nil {
		u = i.Member.User
	} else if i.User != nil {
		u = i.User
	}
	if u == nil {
		return "", "", errors.New("could not determine user from interaction")
	}

	name := u.Username
	if u.GlobalName != "" {
		name = u.GlobalName
	}
	return u.ID, name, nil
}

func realmOf(i *discordgo.InteractionCreate) string {
	if i.GuildID != "" {
		return i.GuildID
	}
	return dmRealm
}

func respond(s Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	sendResponse(s, i, data)
}

func respondEmbed(s Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	sendResponse(s, i, data)
}

func sendResponse(s Session, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		logger.Error("[Commands] failed to respond to interaction", zap.Error(err))
	}
}

func formatRemaining(d time.Duration) string {
	hours, minutes := economy.SplitRemaining(d)
	return fmt.Sprintf("%d hours %d minutes", hours, minutes)
}

// commandContext bounds store work done on behalf of one interaction.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func handleDrawCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		logger.Error("[Draw] could not determine user", zap.Error(err))
		return
	}

	ctx, cancel := commandContext()
	defer cancel()

	res, err := h.shrine.Draw(ctx, realmOf(i), userID)

	var (
		tooSoon *economy.TooSoonError
		waived  *economy.InsufficientPenaltyFundsError
	)
	switch {
	case errors.As(err, &tooSoon):
		remaining := formatRemaining(tooSoon.Remaining)
		if tooSoon.Attempt == 1 {
			respond(s, i, fmt.Sprintf("Hey, don't rush to draw lots! My spiritual power isn't ready yet. Come back in %s, or I'll charge you extra donation money!", remaining), true)
		} else {
			respond(s, i, fmt.Sprintf("You're still trying to draw?! I said my spiritual power isn't ready. Come back in %s! Keep this up, and I'll charge you %d donation money!", remaining, h.drawPenalty()), true)
		}
		return
	case errors.As(err, &waived):
		respond(s, i, fmt.Sprintf("Hmph, you've tried %d times, but your donation money isn't enough (total: %d)! I'll let you off this time, but don't expect it next time!", waived.Attempt, waived.Total), true)
		return
	case err != nil:
		respond(s, i, genericFailure, true)
		return
	}

	if res.Kind == economy.DrawPenalty {
		respond(s, i, fmt.Sprintf("You've tried %d times, and I'm fed up! Deducted %d from your donation money. Remaining: %d!", res.Attempt, res.Penalty, res.Total), true)
		return
	}

	respondEmbed(s, i, h.fortuneEmbed(res.Fortune), false)
}

func (h *Handler) drawPenalty() int64 {
	if h.penalty > 0 {
		return h.penalty
	}
	return economy.DefaultRules().DrawPenalty
}

func (h *Handler) fortuneEmbed(f economy.Fortune) *discordgo.MessageEmbed {
	slip := fortuneSlips[f]
	var b strings.Builder
	b.WriteString("I am Reimu Hakurei, the shrine maiden of the Hakurei Shrine, now drawing a fortune for you!\n\n")
	fmt.Fprintf(&b, "**Fortune**: %s\n", f)
	fmt.Fprintf(&b, "**Love**: %s\n", slip.Love)
	fmt.Fprintf(&b, "**Career**: %s\n", slip.Career)
	fmt.Fprintf(&b, "**Health**: %s\n", slip.Health)
	fmt.Fprintf(&b, "**Suggested Action**: %s\n", slip.Action)
	fmt.Fprintf(&b, "**Lucky Item**: %s\n\n", slip.LuckyItem)
	b.WriteString("This is a result guided by spiritual power, so accept it graciously~ If your luck is bad, visit the shrine more often and donate some money!")

	return &discordgo.MessageEmbed{
		Title:       "🎋 Reimu Hakurei's Fortune 🎋",
		Description: b.String(),
		Color:       slip.Color,
		Footer:      &discordgo.MessageEmbedFooter{Text: h.pick(fortuneComments(f))},
	}
}

func handleDonateCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		logger.Error("[Donate] could not determine user", zap.Error(err))
		return
	}

	var amount int64
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "amount" {
			amount = opt.IntValue()
		}
	}

	ctx, cancel := commandContext()
	defer cancel()

	res, err := h.shrine.Donate(ctx, realmOf(i), userID, amount)

	var (
		cooldown *economy.CooldownError
		funds    *economy.InsufficientFundsError
	)
	switch {
	case errors.Is(err, economy.ErrInvalidAmount):
		respond(s, i, "Hey, donation money can't be negative or zero! Show some sincerity~", true)
		return
	case errors.As(err, &cooldown):
		respond(s, i, fmt.Sprintf("You just donated! Reimu is grateful, but wait %s before donating again, or the shrine will be overwhelmed by your enthusiasm!", formatRemaining(cooldown.Remaining)), true)
		return
	case errors.As(err, &funds):
		respond(s, i, fmt.Sprintf("Your balance is only %d, not enough to donate %d! Go earn some more offering money~", funds.Total, funds.Needed), true)
		return
	case err != nil:
		respond(s, i, genericFailure, true)
		return
	}

	amountText := strconv.FormatInt(res.Amount, 10)
	description := fmt.Sprintf("You donated **%s** offering money to the Hakurei Shrine!\nYour current balance is **%s**.\n\n%s",
		amountText, economy.FormatCurrency(res.Total), fmt.Sprintf(h.pick(donationThanks(res.Amount)), amountText))
	switch {
	case res.DrawCooldownCleared:
		description += "\n\n✨ Your generous donation cleared your fortune-drawing cooldown. You can draw again right away!"
	case res.DrawCooldownReduced:
		description += "\n\n✨ Thanks to your generous donation, your fortune-drawing cooldown is shorter now!"
	}

	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🎁 Thank You for Your Donation 🎁",
		Description: description,
		Color:       colorGold,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Reimu Hakurei | Thank you for your support!"},
	}, true)
}

func handleWorkCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		logger.Error("[Work] could not determine user", zap.Error(err))
		return
	}

	ctx, cancel := commandContext()
	defer cancel()

	res, err := h.shrine.Work(ctx, realmOf(i), userID)

	var cooldown *economy.CooldownError
	switch {
	case errors.As(err, &cooldown):
		respondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🎋 Reimu's Reminder",
			Description: fmt.Sprintf("Reimu says you've just worked and are too tired! Come back in **%s**!", formatRemaining(cooldown.Remaining)),
			Color:       colorShrineRed,
		}, true)
		return
	case err != nil:
		respond(s, i, genericFailure, true)
		return
	}

	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title: "🎋 Hakurei Shrine Work",
		Description: fmt.Sprintf("You completed the **%s** task and earned **%d** offering money!\n**Current Balance**: %s offering money",
			h.pick(workTasks[res.Tier]), res.Reward, economy.FormatCurrency(res.Total)),
		Color: colorShrineRed,
	}, false)
}

func handleWorkProgressCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		logger.Error("[Work] could not determine user", zap.Error(err))
		return
	}

	ctx, cancel := commandContext()
	defer cancel()

	progress, err := h.shrine.Progress(ctx, realmOf(i), userID)
	if err != nil {
		respond(s, i, genericFailure, true)
		return
	}

	lines := make([]string, 0, len(economy.Tiers))
	for _, tier := range economy.Tiers {
		lines = append(lines, fmt.Sprintf("**%s Tasks**: %d times", tierNames[tier], progress.Count(tier)))
	}

	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "📋 Your Work Progress",
		Description: strings.Join(lines, "\n"),
		Color:       colorShrineRed,
	}, false)
}

func handleBalanceCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		logger.Error("[Balance] could not determine user", zap.Error(err))
		return
	}

	ctx, cancel := commandContext()
	defer cancel()

	view, err := h.shrine.Balance(ctx, realmOf(i), userID)
	if err != nil {
		respond(s, i, genericFailure, true)
		return
	}

	footer := "Thank you for supporting the Hakurei Shrine. Reimu will bless you! ✨"
	if view.Total >= hugeBalance {
		footer = "Σ( ° △ °|||) This amount of offering money is insane?!"
	}

	respondEmbed(s, i, &discordgo.MessageEmbed{
		Title: "✨ Hakurei Shrine · Offering Money Ledger ✨",
		Description: fmt.Sprintf("**👛 Special Offering Money**: %s yen\n**🪙 Regular Offering Money**: %s yen\n\n**💰 Total**: %s yen",
			economy.FormatCurrency(view.Primary), economy.FormatCurrency(view.Secondary), economy.FormatCurrency(view.Total)),
		Color:  colorRed,
		Footer: &discordgo.MessageEmbedFooter{Text: footer},
	}, false)
}

func handleShutdownCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	handleLifecycleCommand(h, s, i, false)
}

func handleRestartCommand(h *Handler, s Session, i *discordgo.InteractionCreate) {
	handleLifecycleCommand(h, s, i, true)
}

func handleLifecycleCommand(h *Handler, s Session, i *discordgo.InteractionCreate, restart bool) {
	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		logger.Error("[Owner] could not determine user", zap.Error(err))
		return
	}

	if !h.isOwner(userID) {
		logger.Info("[Owner] lifecycle command refused", zap.String("user", userID), zap.Bool("restart", restart))
		respondEmbed(s, i, &discordgo.MessageEmbed{
			Title:       "🚫 Insufficient Permissions",
			Description: "Hey, this is a sensitive shrine operation! Only my master can use this command~",
			Color:       colorRed,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Reimu Hakurei | Go donate some offering money instead~"},
		}, true)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "⛩️ Shutting Down...",
		Description: "I'm off to rest. Don't disturb me! The shrine is temporarily closed. Thanks for your donations~",
		Color:       colorShrineRed,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Reimu Hakurei | Bye-bye~"},
	}
	if restart {
		embed = &discordgo.MessageEmbed{
			Title:       "⛩️ Restarting...",
			Description: "I'm adjusting my spiritual power and will be back soon! The shrine is temporarily closed, but don't worry, I'll return quickly~",
			Color:       colorShrineRed,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Reimu Hakurei | Wait for me!"},
		}
	}

	logger.Info("[Owner] lifecycle command accepted", zap.String("user", userID), zap.Bool("restart", restart))
	respondEmbed(s, i, embed, false)
	h.scheduleLifecycle(restart)
}
