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
	maxDisplayNameLength = 32
	maxBioLength         = 500
	defaultUsersPerPage  = 20
	maxUsersPerPage      = 100
)

type UserService interface {
	// GetProfile returns the public view of a user.
	GetProfile(ctx context.Context, id int) (*models.User, error)
	GetMe(ctx context.Context, id int) (*models.User, error)
	UpdateMe(ctx context.Context, id int, input UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, id int, img *storage.Image) (*models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter) (*models.UserListResponse, error)
	UpdateRole(ctx context.Context, actor Actor, id int, role models.UserRole) (*models.User, error)
}

// UpdateProfileInput: nil fields are left untouched; an empty riot_id clears it.
type UpdateProfileInput struct {
	DisplayName *string `json:"display_name"`
	RiotID      *string `json:"riot_id"`
	Region      *string `json:"region"`
	Bio         *string `json:"bio"`
}

type userService struct {
	userRepo repositories.UserRepository
	riot     RiotLookup
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewUserService(userRepo repositories.UserRepository, riot RiotLookup, uploader storage.FileUploader, logger *slog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		riot:     riot,
		uploader: uploader,
		logger:   nopLogger(logger),
	}
}

func (s *userService) GetProfile(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	publicUserFunc(user, s.uploader)
	return user, nil
}

func (s *userService) GetMe(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	populateUserDetailsFunc(user, s.uploader)
	return user, nil
}

func (s *userService) UpdateMe(ctx context.Context, id int, input UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" || utf8.RuneCountInString(name) > maxDisplayNameLength {
			return nil, fmt.Errorf("%w: display name must be between 1 and %d characters", ErrValidationFailed, maxDisplayNameLength)
		}
		user.DisplayName = name
	}
	if input.Bio != nil {
		if utf8.RuneCountInString(*input.Bio) > maxBioLength {
			return nil, fmt.Errorf("%w: bio must be at most %d characters", ErrValidationFailed, maxBioLength)
		}
		user.Bio = *input.Bio
	}
	if input.Region != nil {
		region := strings.ToLower(strings.TrimSpace(*input.Region))
		if region != "" && !statsapi.ValidRegion(region) {
			return nil, ErrInvalidRegion
		}
		user.Region = region
	}
	if input.RiotID != nil {
		riotID := strings.TrimSpace(*input.RiotID)
		switch {
		case riotID == "":
			user.RiotID = nil
		case riotID != derefString(user.RiotID):
			if err := s.verifyRiotID(ctx, user, riotID); err != nil {
				return nil, err
			}
			user.RiotID = &riotID
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile of user %d: %w", id, err)
	}
	populateUserDetailsFunc(user, s.uploader)
	return user, nil
}

// verifyRiotID checks the format and, when the stats API is available, that the account
// exists. An unreachable stats API does not block the update.
func (s *userService) verifyRiotID(ctx context.Context, user *models.User, riotID string) error {
	if !validRiotID(riotID) {
		return ErrInvalidRiotID
	}
	if s.riot == nil || !s.riot.Configured() {
		return nil
	}
	account, err := s.riot.LookupAccount(ctx, riotID)
	switch {
	case errors.Is(err, statsapi.ErrAccountNotFound):
		return ErrRiotAccountNotFound
	case err != nil:
		s.logger.WarnContext(ctx, "riot id lookup failed, accepting unverified",
			slog.Int("user_id", user.ID), slog.String("riot_id", riotID), slog.Any("error", err))
		return nil
	}
	if user.Region == "" && statsapi.ValidRegion(account.Region) {
		user.Region = account.Region
	}
	return nil
}

func (s *userService) UploadAvatar(ctx context.Context, id int, img *storage.Image) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.AvatarKey(id, img.Ext)
	if _, err := s.uploader.Upload(ctx, key, img.ContentType, img.Reader()); err != nil {
		return nil, fmt.Errorf("failed to upload avatar for user %d: %w", id, err)
	}
	if err := s.userRepo.UpdateAvatarKey(ctx, id, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned avatar", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to save avatar key for user %d: %w", id, err)
	}

	if old := derefString(user.AvatarKey); old != "" && old != key {
		if err := s.uploader.Delete(ctx, old); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous avatar", slog.Int("user_id", id), slog.String("key", old), slog.Any("error", err))
		}
	}

	user.AvatarKey = &key
	populateUserDetailsFunc(user, s.uploader)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, filter models.UserFilter) (*models.UserListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultUsersPerPage
	}
	if filter.Limit > maxUsersPerPage {
		filter.Limit = maxUsersPerPage
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, ErrInvalidRole
	}
	filter.Search = strings.TrimSpace(filter.Search)

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		populateUserDetailsFunc(&users[i], s.uploader)
	}
	return &models.UserListResponse{Users: users, TotalCount: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *userService) UpdateRole(ctx context.Context, actor Actor, id int, role models.UserRole) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbiddenOperation
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if actor.UserID == id {
		return nil, fmt.Errorf("%w: admins cannot change their own role", ErrForbiddenOperation)
	}
	if err := s.userRepo.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user role changed", slog.Int("user_id", id), slog.String("role", string(role)), slog.Int("by", actor.UserID))
	return s.GetMe(ctx, id)
}
