package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/valorant-arena/metrics"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/slack-go/slack"
)

// slackClient contains the methods from slack.Client that we use.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

const channelSlack = "slack"

var _ Notifier = (*Slack)(nil)

// Slack posts staff-facing alerts: new paid registrations, payment decisions and
// anything the services escalate. Public announcements are left to Discord.
type Slack struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
	logger    *slog.Logger
}

func NewSlack(token, channelID string, m metrics.Metrics, logger *slog.Logger) *Slack {
	return NewSlackWithAPI(slack.New(token), channelID, m, logger)
}

func NewSlackWithAPI(api slackClient, channelID string, m metrics.Metrics, logger *slog.Logger) *Slack {
	return &Slack{api: api, channelID: channelID, metrics: m, logger: logger}
}

func (s *Slack) post(ctx context.Context, kind string, blocks ...slack.Block) error {
	_, ts, err := s.api.PostMessageContext(ctx, s.channelID, slack.MsgOptionBlocks(blocks...))
	if err != nil {
		s.metrics.IncNotificationFailed(channelSlack, kind)
		s.logger.Warn("slack notification failed", slog.String("kind", kind), slog.Any("error", err))
		return fmt.Errorf("slack %s: %w", kind, err)
	}
	s.metrics.IncNotificationSent(channelSlack, kind)
	s.logger.Debug("slack notification sent", slog.String("kind", kind), slog.String("ts", ts))
	return nil
}

func section(markdown string) slack.Block {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, markdown, false, false), nil, nil)
}

func (s *Slack) AnnounceTournament(context.Context, *models.Tournament) error {
	return nil
}

func (s *Slack) AnnounceMatch(context.Context, MatchAnnouncement) error {
	return nil
}

// AnnounceRegistration alerts staff only when a payment has to be checked.
func (s *Slack) AnnounceRegistration(ctx context.Context, t *models.Tournament, reg *models.Registration) error {
	if reg.PaymentStatus != models.PaymentPending {
		return nil
	}
	return s.post(ctx, KindRegistration,
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Payment to verify", false, false)),
		section(fmt.Sprintf("*%s* registered for *%s* (entry fee %d). Registration #%d is waiting for payment review.",
			reg.TeamName, t.Name, t.EntryFee, reg.ID)),
	)
}

func (s *Slack) AnnounceResult(context.Context, ResultAnnouncement) error {
	return nil
}

func (s *Slack) PaymentReviewed(ctx context.Context, p PaymentReview) error {
	verdict := ":white_check_mark: approved"
	if !p.Approved {
		verdict = ":x: rejected"
	}
	text := fmt.Sprintf("Payment of *%s* for *%s* %s", p.TeamName, p.TournamentName, verdict)
	if p.Note != "" {
		text += fmt.Sprintf("\n> %s", p.Note)
	}
	return s.post(ctx, KindPayment, section(text))
}

func (s *Slack) CreateCategory(context.Context, string) (string, error) {
	return "", nil
}

func (s *Slack) CreateTeamChannels(context.Context, string, string) (TeamChannels, error) {
	return TeamChannels{}, nil
}

func (s *Slack) DeleteChannel(context.Context, string) error {
	return nil
}

func (s *Slack) StaffAlert(ctx context.Context, message string) error {
	return s.post(ctx, KindStaffAlert, section(message))
}
