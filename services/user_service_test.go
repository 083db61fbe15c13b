package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/statsapi"
	"github.com/Dosada05/valorant-arena/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Profiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	email := "viper@arena.gg"
	hash := "secret-hash"
	u := &models.User{DisplayName: "Viper", Email: &email, PasswordHash: &hash, Role: models.RolePlayer}
	require.NoError(t, env.users.Create(ctx, u))

	me, err := env.userSvc.GetMe(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, &email, me.Email)
	assert.Nil(t, me.PasswordHash)

	public, err := env.userSvc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, public.Email)
	assert.Nil(t, public.PasswordHash)

	_, err = env.userSvc.GetProfile(ctx, 12345)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_UpdateMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "Killjoy", models.RolePlayer)

	_, err := env.userSvc.UpdateMe(ctx, u.ID, UpdateProfileInput{DisplayName: strPtr("   ")})
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = env.userSvc.UpdateMe(ctx, u.ID, UpdateProfileInput{Region: strPtr("mars")})
	assert.ErrorIs(t, err, ErrInvalidRegion)
	_, err = env.userSvc.UpdateMe(ctx, u.ID, UpdateProfileInput{RiotID: strPtr("bad")})
	assert.ErrorIs(t, err, ErrInvalidRiotID)

	updated, err := env.userSvc.UpdateMe(ctx, u.ID, UpdateProfileInput{
		DisplayName: strPtr(" KJ "),
		Region:      strPtr("NA"),
		Bio:         strPtr("turret main"),
	})
	require.NoError(t, err)
	assert.Equal(t, "KJ", updated.DisplayName)
	assert.Equal(t, "na", updated.Region)
	assert.Equal(t, "turret main", env.user(t, u.ID).Bio)

	updated, err = env.userSvc.UpdateMe(ctx, u.ID, UpdateProfileInput{RiotID: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.RiotID)
}

func TestUserService_UpdateMeVerifiesRiotID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := &models.User{DisplayName: "Reyna", Role: models.RolePlayer}
	require.NoError(t, env.users.Create(ctx, u))
	env.riot.configured = true
	env.riot.accounts["Reyna#KR1"] = &statsapi.Account{Region: "kr"}

	_, err := env.userSvc.UpdateMe(ctx, u.ID, UpdateProfileInput{RiotID: strPtr("Nobody#0000")})
	assert.ErrorIs(t, err, ErrRiotAccountNotFound)

	updated, err := env.userSvc.UpdateMe(ctx, u.ID, UpdateProfileInput{RiotID: strPtr("Reyna#KR1")})
	require.NoError(t, err)
	assert.Equal(t, "Reyna#KR1", *updated.RiotID)
	assert.Equal(t, "kr", updated.Region, "region is filled from the account")

	// An unreachable stats API does not block the change.
	env.riot.err = errors.New("upstream down")
	updated, err = env.userSvc.UpdateMe(ctx, u.ID, UpdateProfileInput{RiotID: strPtr("Reyna#KR2")})
	require.NoError(t, err)
	assert.Equal(t, "Reyna#KR2", *updated.RiotID)
}

func TestUserService_UpdateMeRiotIDTaken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.addUser(t, "Sova", models.RolePlayer)
	other := env.addUser(t, "Fade", models.RolePlayer)

	_, err := env.userSvc.UpdateMe(ctx, other.ID, UpdateProfileInput{RiotID: strPtr("sova#euw")})
	assert.ErrorIs(t, err, ErrRiotIDTaken)
	assert.Equal(t, "Fade#EUW", *env.user(t, other.ID).RiotID)
	assert.Equal(t, "Sova#EUW", *env.user(t, owner.ID).RiotID)
}

func TestUserService_UploadAvatar(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "Skye", models.RolePlayer)
	img := &storage.Image{ContentType: "image/png", Ext: ".png", Data: []byte("png")}

	first, err := env.userSvc.UploadAvatar(ctx, u.ID, img)
	require.NoError(t, err)
	require.NotNil(t, first.AvatarURL)
	firstKey := *env.user(t, u.ID).AvatarKey
	assert.Equal(t, "https://cdn.test/"+firstKey, *first.AvatarURL)

	_, err = env.userSvc.UploadAvatar(ctx, u.ID, img)
	require.NoError(t, err)
	assert.Equal(t, []string{firstKey}, env.uploader.deleted)
	assert.Len(t, env.uploader.objects, 1)

	env.uploader.uploadErr = errors.New("bucket unavailable")
	_, err = env.userSvc.UploadAvatar(ctx, u.ID, img)
	assert.Error(t, err)
}

func TestUserService_ListAndRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.addUser(t, "Admin", models.RoleAdmin)
	org := env.addUser(t, "Organizer", models.RoleOrganizer)
	player := env.addUser(t, "Phoenix", models.RolePlayer)

	list, err := env.userSvc.ListUsers(ctx, models.UserFilter{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 3, list.TotalCount)
	assert.Equal(t, 100, list.Limit)
	assert.Equal(t, 1, list.Page)

	role := models.RolePlayer
	list, err = env.userSvc.ListUsers(ctx, models.UserFilter{Role: &role, Search: " phoe "})
	require.NoError(t, err)
	require.Len(t, list.Users, 1)
	assert.Equal(t, player.ID, list.Users[0].ID)

	bogus := models.UserRole("root")
	_, err = env.userSvc.ListUsers(ctx, models.UserFilter{Role: &bogus})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = env.userSvc.UpdateRole(ctx, staff(org), player.ID, models.RoleOrganizer)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
	_, err = env.userSvc.UpdateRole(ctx, staff(admin), admin.ID, models.RolePlayer)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
	_, err = env.userSvc.UpdateRole(ctx, staff(admin), player.ID, "root")
	assert.ErrorIs(t, err, ErrInvalidRole)

	promoted, err := env.userSvc.UpdateRole(ctx, staff(admin), player.ID, models.RoleOrganizer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganizer, promoted.Role)
}
