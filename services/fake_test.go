package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/valorant-arena/metrics"
	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/notifier"
	"github.com/Dosada05/valorant-arena/repositories"
	"github.com/Dosada05/valorant-arena/statsapi"
	"github.com/Dosada05/valorant-arena/storage"
)

// memDB is an in-memory stand-in for Postgres shared by the fake repositories.
type memDB struct {
	mu            sync.Mutex
	nextID        int
	users         map[int]*models.User
	tournaments   map[int]*models.Tournament
	registrations map[int]*models.Registration
	matches       map[int]*models.Match
	payments      map[int]*models.PaymentRequest
	posts         map[int]*models.FreeAgentPost
	statsCalls    int
	// tournament IDs passed to GetForUpdate, in call order
	locked []int
}

func newMemDB() *memDB {
	return &memDB{
		users:         map[int]*models.User{},
		tournaments:   map[int]*models.Tournament{},
		registrations: map[int]*models.Registration{},
		matches:       map[int]*models.Match{},
		payments:      map[int]*models.PaymentRequest{},
		posts:         map[int]*models.FreeAgentPost{},
	}
}

func (db *memDB) id() int {
	db.nextID++
	return db.nextID
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyTournament(t *models.Tournament) *models.Tournament {
	c := *t
	c.MapPool = append([]string(nil), t.MapPool...)
	return &c
}

func copyRegistration(r *models.Registration) *models.Registration {
	c := *r
	c.Members = append([]models.RosterMember(nil), r.Members...)
	return &c
}

func copyMatch(m *models.Match) *models.Match {
	c := *m
	c.Veto = append([]models.VetoAction{}, m.Veto...)
	c.SelectedMaps = append([]string{}, m.SelectedMaps...)
	return &c
}

func copyPost(p *models.FreeAgentPost) *models.FreeAgentPost {
	c := *p
	c.Roles = append([]models.AgentRole(nil), p.Roles...)
	return &c
}

type fakeTx struct{ calls int }

func (tx *fakeTx) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	tx.calls++
	return fn(nil)
}

// --- users ---

type fakeUserRepo struct{ db *memDB }

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if user.Email != nil && u.Email != nil && strings.EqualFold(*u.Email, *user.Email) {
			return repositories.ErrUserEmailConflict
		}
		if user.DiscordID != nil && u.DiscordID != nil && *u.DiscordID == *user.DiscordID {
			return repositories.ErrUserProviderConflict
		}
		if user.GoogleID != nil && u.GoogleID != nil && *u.GoogleID == *user.GoogleID {
			return repositories.ErrUserProviderConflict
		}
		if user.RiotID != nil && u.RiotID != nil && strings.EqualFold(*u.RiotID, *user.RiotID) {
			return repositories.ErrUserRiotIDConflict
		}
	}
	user.ID = r.db.id()
	user.CreatedAt = time.Now()
	r.db.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []int) ([]models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.User
	seen := map[int]bool{}
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, *copyUser(u))
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range sortedKeys(r.db.users) {
		u := r.db.users[id]
		if u.Email != nil && strings.EqualFold(*u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByRiotID(_ context.Context, riotID string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range sortedKeys(r.db.users) {
		u := r.db.users[id]
		if u.RiotID != nil && strings.EqualFold(*u.RiotID, riotID) {
			return copyUser(u), nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) GetByProviderID(_ context.Context, provider, providerID string) (*models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, id := range sortedKeys(r.db.users) {
		u := r.db.users[id]
		var field *string
		switch provider {
		case "discord":
			field = u.DiscordID
		case "google":
			field = u.GoogleID
		default:
			return nil, repositories.ErrUnknownIdentitySource
		}
		if field != nil && *field == providerID {
			return copyUser(u), nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) LinkProvider(_ context.Context, userID int, provider, providerID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	switch provider {
	case "discord":
		u.DiscordID = &providerID
	case "google":
		u.GoogleID = &providerID
	default:
		return repositories.ErrUnknownIdentitySource
	}
	return nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, user *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[user.ID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	for id, other := range r.db.users {
		if id != user.ID && user.RiotID != nil && other.RiotID != nil && strings.EqualFold(*other.RiotID, *user.RiotID) {
			return repositories.ErrUserRiotIDConflict
		}
	}
	u.DisplayName, u.RiotID, u.Region, u.Bio = user.DisplayName, user.RiotID, user.Region, user.Bio
	return nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id int, role models.UserRole) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (r *fakeUserRepo) UpdateAvatarKey(_ context.Context, id int, avatarKey *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = avatarKey
	return nil
}

func (r *fakeUserRepo) UpdateRank(_ context.Context, id int, rank *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.CurrentRank = rank
	return nil
}

func (r *fakeUserRepo) ApplyStatsDelta(_ context.Context, _ repositories.SQLExecutor, userIDs []int, d models.StatsDelta) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.statsCalls++
	for _, id := range userIDs {
		u, ok := r.db.users[id]
		if !ok {
			continue
		}
		u.Stats.MatchesPlayed += d.MatchesPlayed
		u.Stats.MatchesWon += d.MatchesWon
		u.Stats.TournamentsPlayed += d.TournamentsPlayed
		u.Stats.TournamentsWon += d.TournamentsWon
	}
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []models.User
	for _, id := range sortedKeys(r.db.users) {
		u := r.db.users[id]
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.DisplayName), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		matched = append(matched, *copyUser(u))
	}
	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// --- tournaments ---

type fakeTournamentRepo struct{ db *memDB }

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.tournaments {
		if existing.Slug == t.Slug {
			return repositories.ErrTournamentSlugConflict
		}
	}
	t.ID = r.db.id()
	t.CreatedAt = time.Now()
	r.db.tournaments[t.ID] = copyTournament(t)
	return nil
}

func (r *fakeTournamentRepo) get(id int) (*models.Tournament, error) {
	t, ok := r.db.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return copyTournament(t), nil
}

func (r *fakeTournamentRepo) GetForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.db.mu.Lock()
	r.db.locked = append(r.db.locked, id)
	r.db.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *fakeTournamentRepo) GetBySlug(_ context.Context, slug string) (*models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tournaments {
		if t.Slug == slug {
			return copyTournament(t), nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tournaments {
		if t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTournamentRepo) filter(keep func(t *models.Tournament) bool) []models.Tournament {
	var out []models.Tournament
	for _, id := range sortedKeys(r.db.tournaments) {
		if t := r.db.tournaments[id]; keep(t) {
			out = append(out, *copyTournament(t))
		}
	}
	return out
}

func (r *fakeTournamentRepo) List(_ context.Context, filter models.ListTournamentsFilter) ([]models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := r.filter(func(t *models.Tournament) bool {
		if filter.OrganizerID != nil && t.OrganizerID != *filter.OrganizerID {
			return false
		}
		return filter.Status == nil || t.Status == *filter.Status
	})
	if filter.Offset >= len(out) {
		return []models.Tournament{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeTournamentRepo) ListPublic(_ context.Context) ([]models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.filter(func(t *models.Tournament) bool { return t.Status != models.StatusCanceled }), nil
}

func (r *fakeTournamentRepo) ListForAutoStatusUpdate(_ context.Context, now time.Time) ([]models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.filter(func(t *models.Tournament) bool {
		return (t.Status == models.StatusSoon && !t.RegDate.After(now)) ||
			(t.Status == models.StatusRegistration && !t.StartDate.After(now)) ||
			(t.Status == models.StatusActive && !t.EndDate.After(now) && t.WinnerRegistrationID != nil)
	}), nil
}

func (r *fakeTournamentRepo) ListUnannouncedStartingBetween(_ context.Context, from, to time.Time) ([]models.Tournament, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.filter(func(t *models.Tournament) bool {
		return t.AnnouncedAt == nil &&
			(t.Status == models.StatusSoon || t.Status == models.StatusRegistration) &&
			t.StartDate.After(from) && !t.StartDate.After(to)
	}), nil
}

func (r *fakeTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, err := r.get(t.ID); err != nil {
		return err
	}
	c := copyTournament(t)
	c.Organizer, c.RegistrationCount, c.LogoURL = nil, nil, nil
	r.db.tournaments[t.ID] = c
	return nil
}

func (r *fakeTournamentRepo) mutate(id int, fn func(t *models.Tournament)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, err := r.get(id)
	if err != nil {
		return err
	}
	fn(t)
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	return r.mutate(id, func(t *models.Tournament) { t.Status = status })
}

func (r *fakeTournamentRepo) UpdateBracketState(_ context.Context, _ repositories.SQLExecutor, id int, generated bool, status models.TournamentStatus) error {
	return r.mutate(id, func(t *models.Tournament) { t.BracketGenerated, t.Status = generated, status })
}

func (r *fakeTournamentRepo) UpdateWinner(_ context.Context, _ repositories.SQLExecutor, id int, winner *int) error {
	return r.mutate(id, func(t *models.Tournament) { t.WinnerRegistrationID = winner })
}

func (r *fakeTournamentRepo) UpdateLogoKey(_ context.Context, id int, logoKey *string) error {
	return r.mutate(id, func(t *models.Tournament) { t.LogoKey = logoKey })
}

func (r *fakeTournamentRepo) UpdateDiscordCategory(_ context.Context, id int, categoryID *string) error {
	return r.mutate(id, func(t *models.Tournament) { t.DiscordCategoryID = categoryID })
}

func (r *fakeTournamentRepo) MarkAnnounced(_ context.Context, id int, at time.Time) error {
	return r.mutate(id, func(t *models.Tournament) { t.AnnouncedAt = &at })
}

func (r *fakeTournamentRepo) Delete(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, err := r.get(id); err != nil {
		return err
	}
	delete(r.db.tournaments, id)
	return nil
}

// --- registrations ---

type fakeRegistrationRepo struct{ db *memDB }

func (r *fakeRegistrationRepo) Create(_ context.Context, _ repositories.SQLExecutor, reg *models.Registration) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.registrations {
		if existing.TournamentID != reg.TournamentID || !existing.Status.Active() {
			continue
		}
		if existing.CaptainID == reg.CaptainID {
			return repositories.ErrRegistrationConflict
		}
		if strings.EqualFold(existing.TeamName, reg.TeamName) {
			return repositories.ErrRegistrationTeamNameConflict
		}
	}
	reg.ID = r.db.id()
	reg.CreatedAt = time.Now()
	r.db.registrations[reg.ID] = copyRegistration(reg)
	return nil
}

func (r *fakeRegistrationRepo) get(id int) (*models.Registration, error) {
	reg, ok := r.db.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	return reg, nil
}

func (r *fakeRegistrationRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	reg, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return copyRegistration(reg), nil
}

func (r *fakeRegistrationRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, statuses []models.RegistrationStatus) ([]models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Registration
	for _, id := range sortedKeys(r.db.registrations) {
		reg := r.db.registrations[id]
		if reg.TournamentID != tournamentID {
			continue
		}
		if statuses != nil {
			ok := false
			for _, s := range statuses {
				ok = ok || reg.Status == s
			}
			if !ok {
				continue
			}
		}
		out = append(out, *copyRegistration(reg))
	}
	return out, nil
}

func (r *fakeRegistrationRepo) ListByUser(_ context.Context, userID int) ([]models.Registration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Registration
	for _, id := range sortedKeys(r.db.registrations) {
		reg := r.db.registrations[id]
		for _, uid := range reg.UserIDs() {
			if uid == userID {
				out = append(out, *copyRegistration(reg))
				break
			}
		}
	}
	return out, nil
}

func (r *fakeRegistrationRepo) CountActive(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, reg := range r.db.registrations {
		if reg.TournamentID == tournamentID && reg.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (r *fakeRegistrationRepo) mutate(id int, fn func(reg *models.Registration)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	reg, err := r.get(id)
	if err != nil {
		return err
	}
	fn(reg)
	return nil
}

func (r *fakeRegistrationRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.RegistrationStatus, reason *string) error {
	return r.mutate(id, func(reg *models.Registration) { reg.Status, reg.RejectionReason = status, reason })
}

func (r *fakeRegistrationRepo) UpdatePaymentStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.PaymentStatus) error {
	return r.mutate(id, func(reg *models.Registration) { reg.PaymentStatus = status })
}

func (r *fakeRegistrationRepo) UpdateChannels(_ context.Context, id int, text, voice *string) error {
	return r.mutate(id, func(reg *models.Registration) { reg.DiscordTextChannelID, reg.DiscordVoiceChannelID = text, voice })
}

func (r *fakeRegistrationRepo) UpdateSeed(_ context.Context, _ repositories.SQLExecutor, id int, seed *int) error {
	return r.mutate(id, func(reg *models.Registration) { reg.Seed = seed })
}

func (r *fakeRegistrationRepo) ClearSeeds(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, reg := range r.db.registrations {
		if reg.TournamentID == tournamentID {
			reg.Seed = nil
		}
	}
	return nil
}

func (r *fakeRegistrationRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, reg := range r.db.registrations {
		if reg.TournamentID == tournamentID {
			delete(r.db.registrations, id)
			n++
		}
	}
	return n, nil
}

// --- matches ---

type fakeMatchRepo struct{ db *memDB }

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.ID = r.db.id()
	m.CreatedAt = time.Now()
	r.db.matches[m.ID] = copyMatch(m)
	return nil
}

func (r *fakeMatchRepo) get(id int) (*models.Match, error) {
	m, ok := r.db.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	return m, nil
}

func (r *fakeMatchRepo) mutate(id int, fn func(m *models.Match)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, err := r.get(id)
	if err != nil {
		return err
	}
	fn(m)
	return nil
}

func (r *fakeMatchRepo) LinkNext(_ context.Context, _ repositories.SQLExecutor, id int, nextID int, slot int) error {
	return r.mutate(id, func(m *models.Match) { m.NextMatchID, m.WinnerToSlot = &nextID, &slot })
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return copyMatch(m), nil
}

func (r *fakeMatchRepo) GetForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeMatchRepo) list(keep func(m *models.Match) bool) []models.Match {
	var out []models.Match
	for _, id := range sortedKeys(r.db.matches) {
		if m := r.db.matches[id]; keep(m) {
			out = append(out, *copyMatch(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].OrderInRound < out[j].OrderInRound
	})
	return out
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.list(func(m *models.Match) bool { return m.TournamentID == tournamentID }), nil
}

func (r *fakeMatchRepo) ListUnannouncedScheduledBetween(_ context.Context, from, to time.Time) ([]models.Match, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.list(func(m *models.Match) bool {
		return m.AnnouncedAt == nil && m.Status == models.MatchScheduled && m.HasBothTeams() &&
			m.ScheduledAt.After(from) && !m.ScheduledAt.After(to)
	}), nil
}

func (r *fakeMatchRepo) UpdateVeto(_ context.Context, _ repositories.SQLExecutor, id int, veto []models.VetoAction, selected []string) error {
	return r.mutate(id, func(m *models.Match) {
		m.Veto = append([]models.VetoAction{}, veto...)
		m.SelectedMaps = append([]string{}, selected...)
	})
}

func (r *fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id int, score1, score2 int, winnerID int) error {
	return r.mutate(id, func(m *models.Match) {
		m.Score1, m.Score2, m.WinnerRegistrationID, m.Status = score1, score2, &winnerID, models.MatchCompleted
	})
}

func (r *fakeMatchRepo) UpdateSchedule(_ context.Context, id int, at time.Time, status models.MatchStatus) error {
	return r.mutate(id, func(m *models.Match) {
		if !m.ScheduledAt.Equal(at) {
			m.AnnouncedAt = nil
		}
		m.ScheduledAt, m.Status = at, status
	})
}

func (r *fakeMatchRepo) SetSlot(_ context.Context, _ repositories.SQLExecutor, id int, slot int, registrationID *int) error {
	return r.mutate(id, func(m *models.Match) {
		if slot == 1 {
			m.Team1RegistrationID = registrationID
		} else {
			m.Team2RegistrationID = registrationID
		}
	})
}

func (r *fakeMatchRepo) MarkAnnounced(_ context.Context, id int, at time.Time) error {
	return r.mutate(id, func(m *models.Match) { m.AnnouncedAt = &at })
}

func (r *fakeMatchRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, m := range r.db.matches {
		if m.TournamentID == tournamentID {
			delete(r.db.matches, id)
			n++
		}
	}
	return n, nil
}

// --- payments ---

type fakePaymentRepo struct{ db *memDB }

func (r *fakePaymentRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.PaymentRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.payments {
		if existing.TransactionID == p.TransactionID {
			return repositories.ErrPaymentTransactionConflict
		}
	}
	p.ID = r.db.id()
	p.CreatedAt = time.Now()
	c := *p
	r.db.payments[p.ID] = &c
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, id int) (*models.PaymentRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return nil, repositories.ErrPaymentRequestNotFound
	}
	c := *p
	return &c, nil
}

func (r *fakePaymentRepo) TransactionIDExists(_ context.Context, _ repositories.SQLExecutor, txID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.TransactionID == txID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePaymentRepo) HasPending(_ context.Context, _ repositories.SQLExecutor, registrationID int) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.payments {
		if p.RegistrationID == registrationID && p.Status == models.PaymentRequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePaymentRepo) list(keep func(p *models.PaymentRequest) bool) []models.PaymentRequest {
	var out []models.PaymentRequest
	for _, id := range sortedKeys(r.db.payments) {
		if p := r.db.payments[id]; keep(p) {
			out = append(out, *p)
		}
	}
	return out
}

func (r *fakePaymentRepo) ListPending(_ context.Context) ([]models.PaymentRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.list(func(p *models.PaymentRequest) bool { return p.Status == models.PaymentRequestPending }), nil
}

func (r *fakePaymentRepo) ListByRegistration(_ context.Context, registrationID int) ([]models.PaymentRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.list(func(p *models.PaymentRequest) bool { return p.RegistrationID == registrationID }), nil
}

func (r *fakePaymentRepo) inTournament(p *models.PaymentRequest, tournamentID int) bool {
	reg, ok := r.db.registrations[p.RegistrationID]
	return ok && reg.TournamentID == tournamentID
}

func (r *fakePaymentRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.PaymentRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.list(func(p *models.PaymentRequest) bool { return r.inTournament(p, tournamentID) }), nil
}

func (r *fakePaymentRepo) Review(_ context.Context, _ repositories.SQLExecutor, id int, status models.PaymentRequestStatus, reviewerID int, note *string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return repositories.ErrPaymentRequestNotFound
	}
	if p.Status != models.PaymentRequestPending {
		return repositories.ErrPaymentAlreadyReviewed
	}
	p.Status, p.ReviewedBy, p.ReviewNote, p.ReviewedAt = status, &reviewerID, note, &at
	return nil
}

func (r *fakePaymentRepo) UpdateScreenshotKey(_ context.Context, id int, key *string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.payments[id]
	if !ok {
		return repositories.ErrPaymentRequestNotFound
	}
	p.ScreenshotKey = key
	return nil
}

func (r *fakePaymentRepo) DeleteByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, p := range r.db.payments {
		if r.inTournament(p, tournamentID) {
			delete(r.db.payments, id)
			n++
		}
	}
	return n, nil
}

// --- free agents ---

type fakeFreeAgentRepo struct{ db *memDB }

func (r *fakeFreeAgentRepo) Create(_ context.Context, post *models.FreeAgentPost) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.posts {
		if p.UserID == post.UserID && p.Active {
			return repositories.ErrFreeAgentPostConflict
		}
	}
	post.ID = r.db.id()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	c := copyPost(post)
	c.User = nil
	r.db.posts[post.ID] = c
	return nil
}

func (r *fakeFreeAgentRepo) GetByID(_ context.Context, id int) (*models.FreeAgentPost, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return nil, repositories.ErrFreeAgentPostNotFound
	}
	return copyPost(p), nil
}

func (r *fakeFreeAgentRepo) List(_ context.Context, filter models.FreeAgentFilter) ([]models.FreeAgentPost, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	keys := sortedKeys(r.db.posts)
	var out []models.FreeAgentPost
	for i := len(keys) - 1; i >= 0; i-- {
		p := r.db.posts[keys[i]]
		if !p.Active {
			continue
		}
		if filter.Region != "" && p.Region != filter.Region {
			continue
		}
		if filter.Rank != "" && p.Rank != filter.Rank {
			continue
		}
		if filter.Role != nil {
			found := false
			for _, role := range p.Roles {
				found = found || role == *filter.Role
			}
			if !found {
				continue
			}
		}
		out = append(out, *copyPost(p))
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *fakeFreeAgentRepo) Update(_ context.Context, post *models.FreeAgentPost) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[post.ID]; !ok {
		return repositories.ErrFreeAgentPostNotFound
	}
	c := copyPost(post)
	c.User = nil
	r.db.posts[post.ID] = c
	return nil
}

func (r *fakeFreeAgentRepo) UpdateRank(_ context.Context, id int, rank string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return repositories.ErrFreeAgentPostNotFound
	}
	p.Rank = rank
	return nil
}

func (r *fakeFreeAgentRepo) SetActive(_ context.Context, id int, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[id]
	if !ok {
		return repositories.ErrFreeAgentPostNotFound
	}
	p.Active = active
	return nil
}

func (r *fakeFreeAgentRepo) Delete(_ context.Context, id int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.posts[id]; !ok {
		return repositories.ErrFreeAgentPostNotFound
	}
	delete(r.db.posts, id)
	return nil
}

// --- collaborators ---

type recordingNotifier struct {
	notifier.Notifier

	mu              sync.Mutex
	tournaments     []string
	matches         []notifier.MatchAnnouncement
	registrations   []string
	results         []notifier.ResultAnnouncement
	reviews         []notifier.PaymentReview
	alerts          []string
	categories      []string
	teamChannels    []string
	deletedChannels []string

	failTournaments map[string]bool
	failDelete      error
	categoryID      string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{Notifier: notifier.NewNop(), failTournaments: map[string]bool{}}
}

var errNotifyFailed = errors.New("chat service unavailable")

func (n *recordingNotifier) AnnounceTournament(_ context.Context, t *models.Tournament) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failTournaments[t.Name] {
		return errNotifyFailed
	}
	n.tournaments = append(n.tournaments, t.Name)
	return nil
}

func (n *recordingNotifier) AnnounceMatch(_ context.Context, m notifier.MatchAnnouncement) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.matches = append(n.matches, m)
	return nil
}

func (n *recordingNotifier) AnnounceRegistration(_ context.Context, _ *models.Tournament, reg *models.Registration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registrations = append(n.registrations, reg.TeamName)
	return nil
}

func (n *recordingNotifier) AnnounceResult(_ context.Context, r notifier.ResultAnnouncement) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, r)
	return nil
}

func (n *recordingNotifier) PaymentReviewed(_ context.Context, p notifier.PaymentReview) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviews = append(n.reviews, p)
	return nil
}

func (n *recordingNotifier) StaffAlert(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, msg)
	return nil
}

func (n *recordingNotifier) CreateCategory(_ context.Context, name string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.categories = append(n.categories, name)
	return n.categoryID, nil
}

func (n *recordingNotifier) CreateTeamChannels(_ context.Context, categoryID, teamName string) (notifier.TeamChannels, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.teamChannels = append(n.teamChannels, teamName)
	return notifier.TeamChannels{TextChannelID: "text-" + teamName, VoiceChannelID: "voice-" + teamName}, nil
}

func (n *recordingNotifier) DeleteChannel(_ context.Context, channelID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failDelete != nil {
		return n.failDelete
	}
	n.deletedChannels = append(n.deletedChannels, channelID)
	return nil
}

type publishedEvent struct {
	TournamentID int
	Type         string
	Payload      interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(tournamentID int, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{TournamentID: tournamentID, Type: eventType, Payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeUploader struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	uploadErr error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string][]byte{}}
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, r io.Reader) (*storage.UploadResult, error) {
	if u.uploadErr != nil {
		return nil, u.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = data
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeRiot struct {
	configured bool
	accounts   map[string]*statsapi.Account
	tiers      map[string]string
	err        error
}

func (f *fakeRiot) Configured() bool { return f.configured }

func (f *fakeRiot) LookupAccount(_ context.Context, riotID string) (*statsapi.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if a, ok := f.accounts[riotID]; ok {
		return a, nil
	}
	return nil, statsapi.ErrAccountNotFound
}

func (f *fakeRiot) CurrentTier(_ context.Context, _ string, riotID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if tier, ok := f.tiers[riotID]; ok {
		return tier, nil
	}
	return "", statsapi.ErrAccountNotFound
}

type countingMetrics struct {
	metrics.Nop
	mu            sync.Mutex
	registrations int
	results       int
	schedulerRuns int
}

func (m *countingMetrics) IncRegistrationsCreated() {
	m.mu.Lock()
	m.registrations++
	m.mu.Unlock()
}

func (m *countingMetrics) IncMatchResultsRecorded() {
	m.mu.Lock()
	m.results++
	m.mu.Unlock()
}

func (m *countingMetrics) IncSchedulerRuns() {
	m.mu.Lock()
	m.schedulerRuns++
	m.mu.Unlock()
}

// testEnv wires every service to the same in-memory database.
type testEnv struct {
	db        *memDB
	tx        *fakeTx
	users     *fakeUserRepo
	tourns    *fakeTournamentRepo
	regs      *fakeRegistrationRepo
	matches   *fakeMatchRepo
	payments  *fakePaymentRepo
	posts     *fakeFreeAgentRepo
	notifier  *recordingNotifier
	publisher *recordingPublisher
	uploader  *fakeUploader
	riot      *fakeRiot
	metrics   *countingMetrics

	tournamentSvc   TournamentService
	registrationSvc RegistrationService
	paymentSvc      PaymentService
	bracketSvc      BracketService
	matchSvc        MatchService
	freeAgentSvc    FreeAgentService
	userSvc         UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newMemDB()
	e := &testEnv{
		db:        db,
		tx:        &fakeTx{},
		users:     &fakeUserRepo{db: db},
		tourns:    &fakeTournamentRepo{db: db},
		regs:      &fakeRegistrationRepo{db: db},
		matches:   &fakeMatchRepo{db: db},
		payments:  &fakePaymentRepo{db: db},
		posts:     &fakeFreeAgentRepo{db: db},
		notifier:  newRecordingNotifier(),
		publisher: &recordingPublisher{},
		uploader:  newFakeUploader(),
		riot:      &fakeRiot{accounts: map[string]*statsapi.Account{}, tiers: map[string]string{}},
		metrics:   &countingMetrics{},
	}
	e.tournamentSvc = NewTournamentService(e.tx, e.tourns, e.users, e.regs, e.matches, e.payments, e.notifier, e.uploader, nil)
	e.registrationSvc = NewRegistrationService(e.tx, e.tourns, e.regs, e.payments, e.users, e.notifier, e.metrics, nil)
	e.paymentSvc = NewPaymentService(e.tx, e.payments, e.regs, e.tourns, e.users, e.notifier, e.uploader, nil)
	bs := NewBracketService(e.tx, e.tourns, e.regs, e.matches, e.users, e.publisher, nil)
	// Keep registration order as seed order.
	bs.(*bracketService).shuffle = func(int, func(i, j int)) {}
	e.bracketSvc = bs
	e.matchSvc = NewMatchService(e.tx, e.matches, e.tourns, e.regs, e.users, e.publisher, e.notifier, e.metrics, nil)
	e.freeAgentSvc = NewFreeAgentService(e.posts, e.users, e.riot, e.uploader, nil)
	e.userSvc = NewUserService(e.users, e.riot, e.uploader, nil)
	return e
}

func (e *testEnv) addUser(t *testing.T, name string, role models.UserRole) *models.User {
	t.Helper()
	riotID := name + "#EUW"
	u := &models.User{DisplayName: name, Role: role, RiotID: &riotID, Region: "eu"}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) user(t *testing.T, id int) *models.User {
	t.Helper()
	u, err := e.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get user %d: %v", id, err)
	}
	return u
}

// addTournament stores an open single elimination tournament owned by organizerID.
func (e *testEnv) addTournament(t *testing.T, organizerID int, mutate func(t *models.Tournament)) *models.Tournament {
	t.Helper()
	now := time.Now().UTC()
	tour := &models.Tournament{
		Name:           "Arena Cup",
		Slug:           "arena-cup",
		OrganizerID:    organizerID,
		BracketType:    models.BracketSingleElimination,
		RoundRobinLegs: 1,
		BestOf:         1,
		TeamSize:       1,
		MaxTeams:       8,
		MapPool:        []string{"Ascent", "Bind", "Haven"},
		RegDate:        now.Add(-time.Hour),
		StartDate:      now.Add(48 * time.Hour),
		EndDate:        now.Add(72 * time.Hour),
		Status:         models.StatusRegistration,
	}
	if mutate != nil {
		mutate(tour)
	}
	if err := e.tourns.Create(context.Background(), tour); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	return tour
}

func (e *testEnv) tournament(t *testing.T, id int) *models.Tournament {
	t.Helper()
	tour, err := e.tourns.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get tournament %d: %v", id, err)
	}
	return tour
}

// addTeam stores an approved single-player team captained by a fresh user.
func (e *testEnv) addTeam(t *testing.T, tournamentID int, name string) (*models.Registration, *models.User) {
	t.Helper()
	captain := e.addUser(t, name+"Cap", models.RolePlayer)
	reg := &models.Registration{
		TournamentID:  tournamentID,
		CaptainID:     captain.ID,
		TeamName:      name,
		Members:       []models.RosterMember{{RiotID: *captain.RiotID, UserID: &captain.ID}},
		Status:        models.RegistrationApproved,
		PaymentStatus: models.PaymentNotRequired,
	}
	if err := e.regs.Create(context.Background(), nil, reg); err != nil {
		t.Fatalf("create registration: %v", err)
	}
	return reg, captain
}

func (e *testEnv) registration(t *testing.T, id int) *models.Registration {
	t.Helper()
	reg, err := e.regs.GetByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("get registration %d: %v", id, err)
	}
	return reg
}

func staff(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}
