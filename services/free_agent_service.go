package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/repositories"
	"github.com/Dosada05/valorant-arena/statsapi"
	"github.com/Dosada05/valorant-arena/storage"
)

const (
	maxFreeAgentDescription = 500
	defaultFreeAgentsLimit  = 20
	maxFreeAgentsLimit      = 100
)

type FreeAgentService interface {
	Create(ctx context.Context, userID int, input FreeAgentInput) (*models.FreeAgentPost, error)
	List(ctx context.Context, filter models.FreeAgentFilter) ([]models.FreeAgentPost, error)
	Get(ctx context.Context, id int) (*models.FreeAgentPost, error)
	Update(ctx context.Context, actor Actor, id int, input FreeAgentInput) (*models.FreeAgentPost, error)
	Deactivate(ctx context.Context, actor Actor, id int) error
	Delete(ctx context.Context, actor Actor, id int) error
	RefreshRank(ctx context.Context, actor Actor, id int) (*models.FreeAgentPost, error)
}

// FreeAgentInput is shared by create and update. On update nil fields are kept.
type FreeAgentInput struct {
	RiotID      *string            `json:"riot_id"`
	Rank        *string            `json:"rank"`
	Roles       []models.AgentRole `json:"roles"`
	Region      *string            `json:"region"`
	Description *string            `json:"description"`
}

type freeAgentService struct {
	freeAgentRepo repositories.FreeAgentRepository
	userRepo      repositories.UserRepository
	riot          RiotLookup
	uploader      storage.FileUploader
	logger        *slog.Logger
}

func NewFreeAgentService(
	freeAgentRepo repositories.FreeAgentRepository,
	userRepo repositories.UserRepository,
	riot RiotLookup,
	uploader storage.FileUploader,
	logger *slog.Logger,
) FreeAgentService {
	return &freeAgentService{
		freeAgentRepo: freeAgentRepo,
		userRepo:      userRepo,
		riot:          riot,
		uploader:      uploader,
		logger:        nopLogger(logger),
	}
}

func (s *freeAgentService) Create(ctx context.Context, userID int, input FreeAgentInput) (*models.FreeAgentPost, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	post := &models.FreeAgentPost{
		UserID: userID,
		RiotID: derefString(user.RiotID),
		Rank:   derefString(user.CurrentRank),
		Region: user.Region,
		Active: true,
	}
	if err := applyFreeAgentInput(post, input, true); err != nil {
		return nil, err
	}

	if err := s.freeAgentRepo.Create(ctx, post); err != nil {
		if errors.Is(err, repositories.ErrFreeAgentPostConflict) {
			return nil, ErrFreeAgentPostExists
		}
		return nil, fmt.Errorf("failed to create free agent post: %w", err)
	}
	post.User = user
	publicUserFunc(post.User, s.uploader)
	return post, nil
}

// applyFreeAgentInput validates input and copies it onto post.
func applyFreeAgentInput(post *models.FreeAgentPost, input FreeAgentInput, creating bool) error {
	if input.RiotID != nil {
		post.RiotID = strings.TrimSpace(*input.RiotID)
	}
	if post.RiotID == "" {
		return ErrRiotIDRequired
	}
	if !validRiotID(post.RiotID) {
		return ErrInvalidRiotID
	}

	if input.Rank != nil {
		post.Rank = strings.TrimSpace(*input.Rank)
	}

	if input.Roles != nil || creating {
		roles, err := normalizeAgentRoles(input.Roles)
		if err != nil {
			return err
		}
		post.Roles = roles
	}

	if input.Region != nil {
		post.Region = strings.ToLower(strings.TrimSpace(*input.Region))
	}
	if !statsapi.ValidRegion(post.Region) {
		return ErrInvalidRegion
	}

	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		if utf8.RuneCountInString(desc) > maxFreeAgentDescription {
			return ErrDescriptionTooLong
		}
		post.Description = desc
	}
	return nil
}

func normalizeAgentRoles(roles []models.AgentRole) ([]models.AgentRole, error) {
	if len(roles) == 0 {
		return nil, ErrFreeAgentRolesInvalid
	}
	seen := make(map[models.AgentRole]bool, len(roles))
	out := make([]models.AgentRole, 0, len(roles))
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrFreeAgentRolesInvalid, r)
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *freeAgentService) List(ctx context.Context, filter models.FreeAgentFilter) ([]models.FreeAgentPost, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultFreeAgentsLimit
	}
	if filter.Limit > maxFreeAgentsLimit {
		filter.Limit = maxFreeAgentsLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Region = strings.ToLower(strings.TrimSpace(filter.Region))

	posts, err := s.freeAgentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list free agent posts: %w", err)
	}
	if len(posts) == 0 {
		return []models.FreeAgentPost{}, nil
	}

	ids := make([]int, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.UserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load free agent users: %w", err)
	}
	byID := make(map[int]*models.User, len(users))
	for i := range users {
		publicUserFunc(&users[i], s.uploader)
		byID[users[i].ID] = &users[i]
	}
	for i := range posts {
		posts[i].User = byID[posts[i].UserID]
	}
	return posts, nil
}

func (s *freeAgentService) Get(ctx context.Context, id int) (*models.FreeAgentPost, error) {
	post, err := s.freeAgentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, post.UserID)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			return nil, err
		}
		return post, nil
	}
	publicUserFunc(user, s.uploader)
	post.User = user
	return post, nil
}

func (s *freeAgentService) Update(ctx context.Context, actor Actor, id int, input FreeAgentInput) (*models.FreeAgentPost, error) {
	post, err := s.freeAgentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != actor.UserID {
		return nil, ErrForbiddenOperation
	}
	if err := applyFreeAgentInput(post, input, false); err != nil {
		return nil, err
	}
	if err := s.freeAgentRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update free agent post %d: %w", id, err)
	}
	return post, nil
}

func (s *freeAgentService) loadOwnedOrStaff(ctx context.Context, actor Actor, id int) (*models.FreeAgentPost, error) {
	post, err := s.freeAgentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != actor.UserID && !actor.Role.IsStaff() {
		return nil, ErrForbiddenOperation
	}
	return post, nil
}

func (s *freeAgentService) Deactivate(ctx context.Context, actor Actor, id int) error {
	post, err := s.loadOwnedOrStaff(ctx, actor, id)
	if err != nil {
		return err
	}
	if !post.Active {
		return nil
	}
	return s.freeAgentRepo.SetActive(ctx, id, false)
}

func (s *freeAgentService) Delete(ctx context.Context, actor Actor, id int) error {
	if _, err := s.loadOwnedOrStaff(ctx, actor, id); err != nil {
		return err
	}
	return s.freeAgentRepo.Delete(ctx, id)
}

func (s *freeAgentService) RefreshRank(ctx context.Context, actor Actor, id int) (*models.FreeAgentPost, error) {
	post, err := s.freeAgentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != actor.UserID {
		return nil, ErrForbiddenOperation
	}
	if s.riot == nil || !s.riot.Configured() {
		return nil, ErrStatsUnavailable
	}

	tier, err := s.riot.CurrentTier(ctx, post.Region, post.RiotID)
	if err != nil {
		if errors.Is(err, statsapi.ErrAccountNotFound) {
			return nil, ErrRiotAccountNotFound
		}
		s.logger.WarnContext(ctx, "rank lookup failed", slog.Int("post_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrStatsUnavailable, err)
	}

	if err := s.freeAgentRepo.UpdateRank(ctx, id, tier); err != nil {
		return nil, fmt.Errorf("failed to store rank of post %d: %w", id, err)
	}
	if err := s.userRepo.UpdateRank(ctx, post.UserID, &tier); err != nil {
		s.logger.WarnContext(ctx, "failed to store rank on profile", slog.Int("user_id", post.UserID), slog.Any("error", err))
	}
	post.Rank = tier
	return post, nil
}
