package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"reimubot/pkg/logger"
)

// Ready records the bot's identity once the gateway session is up and sets
// the shrine presence.
func (h *Handler) Ready(s *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		h.SetBotID(r.User.ID)
		logger.Info("[Bot] logged in", zap.String("user", r.User.Username), zap.String("id", r.User.ID))
	}
	h.SetSession(&DiscordSession{Session: s})
	h.updatePresence()
}

func (h *Handler) updatePresence() {
	session := h.currentSession()
	if session == nil {
		return
	}

	err := session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name: "Hakurei Shrine",
				Type: discordgo.ActivityTypeWatching,
			},
		},
		Status: string(discordgo.StatusDoNotDisturb),
		AFK:    false,
	})
	if err != nil {
		logger.Error("[Bot] failed to set presence", zap.Error(err))
		return
	}
	logger.Info("[Bot] presence set")
}
