package notifier

import (
	"log/slog"

	"github.com/Dosada05/valorant-arena/config"
	"github.com/Dosada05/valorant-arena/metrics"
)

// FromConfig combines the chat integrations that have credentials. With none configured
// the result is the no-op notifier.
func FromConfig(cfg *config.Config, m metrics.Metrics, logger *slog.Logger) (Notifier, error) {
	var ns []Notifier
	if cfg.Discord.BotEnabled() {
		d, err := NewDiscord(DiscordConfig{
			BotToken:          cfg.Discord.BotToken,
			GuildID:           cfg.Discord.GuildID,
			AnnounceChannelID: cfg.Discord.AnnounceChannelID,
			SiteURL:           cfg.SiteURL,
		}, m, logger)
		if err != nil {
			return nil, err
		}
		ns = append(ns, d)
		logger.Info("discord notifier enabled", slog.String("guild_id", cfg.Discord.GuildID))
	}
	if cfg.Slack.Enabled() {
		ns = append(ns, NewSlack(cfg.Slack.Token, cfg.Slack.ChannelID, m, logger))
		logger.Info("slack staff alerts enabled")
	}
	return NewMulti(ns...), nil
}
