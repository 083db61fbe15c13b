package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/Dosada05/valorant-arena/models"
)

// Notifier sends platform events to chat services. Callers treat every method as
// best-effort: a failure is logged and never undoes the operation that triggered it.
type Notifier interface {
	AnnounceTournament(ctx context.Context, t *models.Tournament) error
	AnnounceMatch(ctx context.Context, m MatchAnnouncement) error
	AnnounceRegistration(ctx context.Context, t *models.Tournament, reg *models.Registration) error
	AnnounceResult(ctx context.Context, r ResultAnnouncement) error
	PaymentReviewed(ctx context.Context, p PaymentReview) error

	CreateCategory(ctx context.Context, name string) (string, error)
	CreateTeamChannels(ctx context.Context, categoryID, teamName string) (TeamChannels, error)
	DeleteChannel(ctx context.Context, channelID string) error

	StaffAlert(ctx context.Context, message string) error
}

type MatchAnnouncement struct {
	TournamentName string
	Round          int
	Team1          string
	Team2          string
	BestOf         int
	Maps           []string
	ScheduledAt    time.Time
}

type ResultAnnouncement struct {
	TournamentName string
	Team1          string
	Team2          string
	Score1         int
	Score2         int
	Winner         string
	// Final is set when the result decides the tournament.
	Final bool
}

type PaymentReview struct {
	TournamentName   string
	TeamName         string
	CaptainDiscordID string
	Approved         bool
	Note             string
}

type TeamChannels struct {
	TextChannelID  string
	VoiceChannelID string
}

// Notification kinds used as metric labels.
const (
	KindTournament   = "tournament"
	KindMatch        = "match"
	KindRegistration = "registration"
	KindResult       = "result"
	KindPayment      = "payment"
	KindChannel      = "channel"
	KindStaffAlert   = "staff_alert"
)

type nop struct{}

// NewNop returns a Notifier that does nothing.
func NewNop() Notifier { return nop{} }

func (nop) AnnounceTournament(context.Context, *models.Tournament) error {
	return nil
}

func (nop) AnnounceMatch(context.Context, MatchAnnouncement) error {
	return nil
}

func (nop) AnnounceRegistration(context.Context, *models.Tournament, *models.Registration) error {
	return nil
}

func (nop) AnnounceResult(context.Context, ResultAnnouncement) error {
	return nil
}

func (nop) PaymentReviewed(context.Context, PaymentReview) error {
	return nil
}

func (nop) CreateCategory(context.Context, string) (string, error) {
	return "", nil
}

func (nop) CreateTeamChannels(context.Context, string, string) (TeamChannels, error) {
	return TeamChannels{}, nil
}

func (nop) DeleteChannel(context.Context, string) error {
	return nil
}

func (nop) StaffAlert(context.Context, string) error {
	return nil
}

// Multi fans every call out to all notifiers.
type Multi []Notifier

// NewMulti drops nil entries; with nothing left it returns the no-op notifier.
func NewMulti(notifiers ...Notifier) Notifier {
	var m Multi
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	switch len(m) {
	case 0:
		return NewNop()
	case 1:
		return m[0]
	}
	return m
}

func (m Multi) each(fn func(Notifier) error) error {
	var errs []error
	for _, n := range m {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) AnnounceTournament(ctx context.Context, t *models.Tournament) error {
	return m.each(func(n Notifier) error { return n.AnnounceTournament(ctx, t) })
}

func (m Multi) AnnounceMatch(ctx context.Context, a MatchAnnouncement) error {
	return m.each(func(n Notifier) error { return n.AnnounceMatch(ctx, a) })
}

func (m Multi) AnnounceRegistration(ctx context.Context, t *models.Tournament, reg *models.Registration) error {
	return m.each(func(n Notifier) error { return n.AnnounceRegistration(ctx, t, reg) })
}

func (m Multi) AnnounceResult(ctx context.Context, r ResultAnnouncement) error {
	return m.each(func(n Notifier) error { return n.AnnounceResult(ctx, r) })
}

func (m Multi) PaymentReviewed(ctx context.Context, p PaymentReview) error {
	return m.each(func(n Notifier) error { return n.PaymentReviewed(ctx, p) })
}

// CreateCategory returns the first category ID any notifier produced.
func (m Multi) CreateCategory(ctx context.Context, name string) (string, error) {
	var id string
	err := m.each(func(n Notifier) error {
		got, err := n.CreateCategory(ctx, name)
		if id == "" {
			id = got
		}
		return err
	})
	return id, err
}

func (m Multi) CreateTeamChannels(ctx context.Context, categoryID, teamName string) (TeamChannels, error) {
	var out TeamChannels
	err := m.each(func(n Notifier) error {
		got, err := n.CreateTeamChannels(ctx, categoryID, teamName)
		if out == (TeamChannels{}) {
			out = got
		}
		return err
	})
	return out, err
}

func (m Multi) DeleteChannel(ctx context.Context, channelID string) error {
	return m.each(func(n Notifier) error { return n.DeleteChannel(ctx, channelID) })
}

func (m Multi) StaffAlert(ctx context.Context, message string) error {
	return m.each(func(n Notifier) error { return n.StaffAlert(ctx, message) })
}
