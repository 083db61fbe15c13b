package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/notifier"
	"github.com/Dosada05/valorant-arena/repositories"
	"github.com/Dosada05/valorant-arena/statsapi"
	"github.com/Dosada05/valorant-arena/storage"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int
	Role   models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// canManageTournament: admins manage everything, organizers only their own tournaments.
func canManageTournament(a Actor, t *models.Tournament) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == models.RoleOrganizer && t.OrganizerID == a.UserID
}

// RiotLookup is the part of the stats client used for profile checks.
type RiotLookup interface {
	Configured() bool
	LookupAccount(ctx context.Context, riotID string) (*statsapi.Account, error)
	CurrentTier(ctx context.Context, region, riotID string) (string, error)
}

var riotIDPattern = regexp.MustCompile(`^.{3,16}#[A-Za-z0-9]{3,5}$`)

func validRiotID(id string) bool {
	return riotIDPattern.MatchString(id)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stringPtr(s string) *string {
	return &s
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "tournament"
	}
	return slug
}

func validateTournamentDates(reg, start, end time.Time) error {
	if reg.IsZero() || start.IsZero() || end.IsZero() {
		return ErrTournamentDatesRequired
	}
	if reg.After(start) {
		return fmt.Errorf("%w: registration date (%s) cannot be after start date (%s)", ErrTournamentInvalidRegDate, reg.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start date (%s) must be before end date (%s)", ErrTournamentInvalidDateRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusSoon:         {models.StatusRegistration, models.StatusCanceled},
		models.StatusRegistration: {models.StatusActive, models.StatusCanceled},
		models.StatusActive:       {models.StatusCompleted, models.StatusCanceled},
		models.StatusCompleted:    {},
		models.StatusCanceled:     {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// --- Хелперы для заполнения URL и скрытия приватных полей ---

func populateTournamentLogoURLFunc(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament != nil && tournament.LogoKey != nil && *tournament.LogoKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*tournament.LogoKey)
		if url != "" {
			tournament.LogoURL = &url
		}
	}
}

func populateUserDetailsFunc(user *models.User, uploader storage.FileUploader) {
	if user == nil {
		return
	}
	user.PasswordHash = nil
	if user.AvatarKey != nil && *user.AvatarKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*user.AvatarKey)
		if url != "" {
			user.AvatarURL = &url
		}
	}
}

// publicUserFunc strips contact details from a profile shown to other people.
func publicUserFunc(user *models.User, uploader storage.FileUploader) {
	populateUserDetailsFunc(user, uploader)
	if user != nil {
		user.Email = nil
	}
}

func populatePaymentScreenshotURLFunc(p *models.PaymentRequest, uploader storage.FileUploader) {
	if p != nil && p.ScreenshotKey != nil && *p.ScreenshotKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*p.ScreenshotKey)
		if url != "" {
			p.ScreenshotURL = &url
		}
	}
}

// statsLedger accumulates per-user stat changes so they can be written with as few
// UPDATE statements as possible.
type statsLedger map[int]models.StatsDelta

func (l statsLedger) add(userIDs []int, d models.StatsDelta) {
	for _, id := range userIDs {
		cur := l[id]
		cur.MatchesPlayed += d.MatchesPlayed
		cur.MatchesWon += d.MatchesWon
		cur.TournamentsPlayed += d.TournamentsPlayed
		cur.TournamentsWon += d.TournamentsWon
		l[id] = cur
	}
}

// apply writes the ledger, grouping users that share an identical delta.
func (l statsLedger) apply(ctx context.Context, exec repositories.SQLExecutor, users repositories.UserRepository) error {
	groups := make(map[models.StatsDelta][]int)
	for id, d := range l {
		if d.IsZero() {
			continue
		}
		groups[d] = append(groups[d], id)
	}
	deltas := make([]models.StatsDelta, 0, len(groups))
	for d, ids := range groups {
		sort.Ints(ids)
		deltas = append(deltas, d)
	}
	sort.Slice(deltas, func(i, j int) bool {
		return groups[deltas[i]][0] < groups[deltas[j]][0]
	})
	for _, d := range deltas {
		if err := users.ApplyStatsDelta(ctx, exec, groups[d], d); err != nil {
			return fmt.Errorf("failed to apply stats delta: %w", err)
		}
	}
	return nil
}

// bracketStatsLedger computes what a generated bracket has added to user statistics:
// tournaments played for every seeded roster, matches played and won for completed
// matches, and the tournament win.
func bracketStatsLedger(regs []models.Registration, matches []models.Match, winnerID *int) statsLedger {
	byID := make(map[int]*models.Registration, len(regs))
	for i := range regs {
		byID[regs[i].ID] = &regs[i]
	}
	rosterOf := func(id *int) []int {
		if id == nil {
			return nil
		}
		if reg, ok := byID[*id]; ok {
			return reg.UserIDs()
		}
		return nil
	}

	ledger := statsLedger{}
	for i := range regs {
		if regs[i].Seed != nil {
			ledger.add(regs[i].UserIDs(), models.StatsDelta{TournamentsPlayed: 1})
		}
	}
	for i := range matches {
		m := &matches[i]
		if m.Status != models.MatchCompleted || m.WinnerRegistrationID == nil {
			continue
		}
		ledger.add(rosterOf(m.Team1RegistrationID), models.StatsDelta{MatchesPlayed: 1})
		ledger.add(rosterOf(m.Team2RegistrationID), models.StatsDelta{MatchesPlayed: 1})
		ledger.add(rosterOf(m.WinnerRegistrationID), models.StatsDelta{MatchesWon: 1})
	}
	ledger.add(rosterOf(winnerID), models.StatsDelta{TournamentsWon: 1})
	return ledger
}

// negate flips every entry of the ledger in place.
func (l statsLedger) negate() statsLedger {
	for id, d := range l {
		l[id] = d.Negate()
	}
	return l
}

// deleteTeamChannels removes a registration's Discord channels and returns a warning per failure.
func deleteTeamChannels(ctx context.Context, n notifier.Notifier, logger *slog.Logger, reg *models.Registration) []string {
	var warnings []string
	for _, channelID := range reg.ChannelIDs() {
		if err := n.DeleteChannel(ctx, channelID); err != nil {
			logger.WarnContext(ctx, "failed to delete team channel",
				slog.Int("registration_id", reg.ID), slog.String("channel_id", channelID), slog.Any("error", err))
			warnings = append(warnings, fmt.Sprintf("channel %s of registration %d: %v", channelID, reg.ID, err))
		}
	}
	return warnings
}

func nopLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
