package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/oauth"
	"github.com/Dosada05/valorant-arena/repositories"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, string, error)
	// OAuthLogin finds or creates the account behind an external identity and issues a token.
	OAuthLogin(ctx context.Context, ident *oauth.Identity) (*models.User, string, error)
}

type RegisterInput struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenIssuer signs HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(user *models.User) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"name":    user.DisplayName,
		"exp":     now.Add(i.ttl).Unix(),
		"iat":     now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

type authService struct {
	userRepo repositories.UserRepository
	tokens   *TokenIssuer
	logger   *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, tokens *TokenIssuer, logger *slog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   nopLogger(logger),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.DisplayName)
	if email == "" || !strings.Contains(email, "@") || name == "" {
		return nil, fmt.Errorf("%w: display name and a valid email are required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hash := string(hashedPassword)

	user := &models.User{
		DisplayName:  name,
		Email:        &email,
		PasswordHash: &hash,
		Role:         models.RolePlayer,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	user.PasswordHash = nil
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}
	if user.PasswordHash == nil {
		return nil, "", ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to compare password hash: %w", err)
	}
	user.PasswordHash = nil

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *authService) OAuthLogin(ctx context.Context, ident *oauth.Identity) (*models.User, string, error) {
	user, err := s.resolveIdentity(ctx, ident)
	if err != nil {
		return nil, "", err
	}
	user.PasswordHash = nil
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// resolveIdentity: provider ID first, then a verified email, then a fresh player account.
func (s *authService) resolveIdentity(ctx context.Context, ident *oauth.Identity) (*models.User, error) {
	user, err := s.userRepo.GetByProviderID(ctx, ident.Provider, ident.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up %s account: %w", ident.Provider, err)
	}

	email := normalizeEmail(ident.Email)
	if email != "" && ident.EmailVerified {
		user, err = s.userRepo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if err := s.userRepo.LinkProvider(ctx, user.ID, ident.Provider, ident.ProviderID); err != nil {
				return nil, fmt.Errorf("failed to link %s account to user %d: %w", ident.Provider, user.ID, err)
			}
			s.logger.InfoContext(ctx, "linked external account by email",
				slog.Int("user_id", user.ID), slog.String("provider", ident.Provider))
			setProviderID(user, ident)
			return user, nil
		case !errors.Is(err, repositories.ErrUserNotFound):
			return nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
	}

	name := strings.TrimSpace(ident.DisplayName)
	if name == "" {
		name = "Player"
	}
	user = &models.User{DisplayName: name, Role: models.RolePlayer}
	if email != "" && ident.EmailVerified {
		user.Email = &email
	}
	setProviderID(user, ident)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user for %s account: %w", ident.Provider, err)
	}
	s.logger.InfoContext(ctx, "created user from external account",
		slog.Int("user_id", user.ID), slog.String("provider", ident.Provider))
	return user, nil
}

func setProviderID(user *models.User, ident *oauth.Identity) {
	id := ident.ProviderID
	switch ident.Provider {
	case oauth.ProviderDiscord:
		user.DiscordID = &id
	case oauth.ProviderGoogle:
		user.GoogleID = &id
	}
}
