package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Dosada05/valorant-arena/metrics"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/bwmarrin/discordgo"
)

// discordSession is the subset of *discordgo.Session used here.
type discordSession interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

const (
	channelDiscord = "discord"

	colorValorantRed = 0xFF4655
	colorSuccess     = 0x2ECC71
)

var _ Notifier = (*Discord)(nil)

// Discord posts announcements to a guild channel and manages per-team channels.
type Discord struct {
	session           discordSession
	guildID           string
	announceChannelID string
	siteURL           string
	metrics           metrics.Metrics
	logger            *slog.Logger
}

type DiscordConfig struct {
	BotToken          string
	GuildID           string
	AnnounceChannelID string
	SiteURL           string
}

// NewDiscord creates a REST-only session; no gateway connection is opened.
func NewDiscord(cfg DiscordConfig, m metrics.Metrics, logger *slog.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return NewDiscordWithSession(session, cfg, m, logger), nil
}

func NewDiscordWithSession(session discordSession, cfg DiscordConfig, m metrics.Metrics, logger *slog.Logger) *Discord {
	return &Discord{
		session:           session,
		guildID:           cfg.GuildID,
		announceChannelID: cfg.AnnounceChannelID,
		siteURL:           strings.TrimRight(cfg.SiteURL, "/"),
		metrics:           m,
		logger:            logger,
	}
}

func (d *Discord) record(kind string, err error, attrs ...any) error {
	if err != nil {
		d.metrics.IncNotificationFailed(channelDiscord, kind)
		d.logger.Warn("discord notification failed", append([]any{slog.String("kind", kind), slog.Any("error", err)}, attrs...)...)
		return fmt.Errorf("discord %s: %w", kind, err)
	}
	d.metrics.IncNotificationSent(channelDiscord, kind)
	d.logger.Debug("discord notification sent", append([]any{slog.String("kind", kind)}, attrs...)...)
	return nil
}

func (d *Discord) sendEmbed(ctx context.Context, kind string, embed *discordgo.MessageEmbed) error {
	if d.announceChannelID == "" {
		return nil
	}
	_, err := d.session.ChannelMessageSendEmbed(d.announceChannelID, embed, discordgo.WithContext(ctx))
	return d.record(kind, err, slog.String("channel_id", d.announceChannelID))
}

func (d *Discord) AnnounceTournament(ctx context.Context, t *models.Tournament) error {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Starts", Value: discordTimestamp(t.StartDate.Unix()), Inline: true},
		{Name: "Format", Value: fmt.Sprintf("%s, BO%d", t.BracketType, t.BestOf), Inline: true},
		{Name: "Teams", Value: fmt.Sprintf("%d max, %dv%d", t.MaxTeams, t.TeamSize, t.TeamSize), Inline: true},
	}
	if t.PrizePool != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Prize pool", Value: t.PrizePool, Inline: true})
	}
	if t.EntryFee > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Entry fee", Value: fmt.Sprintf("%d", t.EntryFee), Inline: true})
	}
	embed := &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("Upcoming tournament: %s", t.Name),
		URL:    d.tournamentURL(t.Slug),
		Color:  colorValorantRed,
		Fields: fields,
	}
	return d.sendEmbed(ctx, KindTournament, embed)
}

func (d *Discord) AnnounceMatch(ctx context.Context, m MatchAnnouncement) error {
	maps := "TBD"
	if len(m.Maps) > 0 {
		maps = strings.Join(m.Maps, ", ")
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s vs %s", m.Team1, m.Team2),
		Description: fmt.Sprintf("%s, round %d", m.TournamentName, m.Round),
		Color:       colorValorantRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Starts", Value: discordTimestamp(m.ScheduledAt.Unix()), Inline: true},
			{Name: "Series", Value: fmt.Sprintf("BO%d", m.BestOf), Inline: true},
			{Name: "Maps", Value: maps, Inline: true},
		},
	}
	return d.sendEmbed(ctx, KindMatch, embed)
}

func (d *Discord) AnnounceRegistration(ctx context.Context, t *models.Tournament, reg *models.Registration) error {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s registered for %s", reg.TeamName, t.Name),
		URL:         d.tournamentURL(t.Slug),
		Description: fmt.Sprintf("%d players on the roster", len(reg.Members)),
		Color:       colorValorantRed,
	}
	return d.sendEmbed(ctx, KindRegistration, embed)
}

func (d *Discord) AnnounceResult(ctx context.Context, r ResultAnnouncement) error {
	title := fmt.Sprintf("%s %d : %d %s", r.Team1, r.Score1, r.Score2, r.Team2)
	desc := fmt.Sprintf("%s wins", r.Winner)
	if r.Final {
		desc = fmt.Sprintf("%s wins %s!", r.Winner, r.TournamentName)
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       colorSuccess,
		Footer:      &discordgo.MessageEmbedFooter{Text: r.TournamentName},
	}
	return d.sendEmbed(ctx, KindResult, embed)
}

// PaymentReviewed DMs the captain. Captains without a linked Discord account are skipped.
func (d *Discord) PaymentReviewed(ctx context.Context, p PaymentReview) error {
	if p.CaptainDiscordID == "" {
		return nil
	}
	dm, err := d.session.UserChannelCreate(p.CaptainDiscordID, discordgo.WithContext(ctx))
	if err != nil {
		return d.record(KindPayment, err, slog.String("user", p.CaptainDiscordID))
	}
	msg := fmt.Sprintf("Your entry fee for **%s** (%s) was approved. Good luck!", p.TournamentName, p.TeamName)
	if !p.Approved {
		msg = fmt.Sprintf("Your entry fee for **%s** (%s) was rejected.", p.TournamentName, p.TeamName)
		if p.Note != "" {
			msg += " Reason: " + p.Note
		}
	}
	_, err = d.session.ChannelMessageSend(dm.ID, msg, discordgo.WithContext(ctx))
	return d.record(KindPayment, err, slog.String("user", p.CaptainDiscordID))
}

func (d *Discord) CreateCategory(ctx context.Context, name string) (string, error) {
	ch, err := d.session.GuildChannelCreateComplex(d.guildID, discordgo.GuildChannelCreateData{
		Name: truncate(name, 100),
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", d.record(KindChannel, err, slog.String("category", name))
	}
	return ch.ID, d.record(KindChannel, nil, slog.String("category_id", ch.ID))
}

func (d *Discord) CreateTeamChannels(ctx context.Context, categoryID, teamName string) (TeamChannels, error) {
	name := channelName(teamName)
	text, err := d.session.GuildChannelCreateComplex(d.guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: categoryID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return TeamChannels{}, d.record(KindChannel, err, slog.String("team", teamName))
	}

	voice, err := d.session.GuildChannelCreateComplex(d.guildID, discordgo.GuildChannelCreateData{
		Name:     truncate(teamName, 100),
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: categoryID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return TeamChannels{TextChannelID: text.ID}, d.record(KindChannel, err, slog.String("team", teamName))
	}

	return TeamChannels{TextChannelID: text.ID, VoiceChannelID: voice.ID},
		d.record(KindChannel, nil, slog.String("team", teamName))
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID string) error {
	if channelID == "" {
		return nil
	}
	_, err := d.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return d.record(KindChannel, err, slog.String("channel_id", channelID))
}

// StaffAlert is handled by Slack.
func (d *Discord) StaffAlert(context.Context, string) error {
	return nil
}

func (d *Discord) tournamentURL(slug string) string {
	if d.siteURL == "" || slug == "" {
		return ""
	}
	return d.siteURL + "/tournaments/" + slug
}

func discordTimestamp(unix int64) string {
	return fmt.Sprintf("<t:%d:F>", unix)
}

var nonChannelChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// channelName converts a team name into a Discord text channel name.
func channelName(team string) string {
	name := strings.ToLower(strings.TrimSpace(team))
	name = nonChannelChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "team"
	}
	return truncate(name, 100)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
