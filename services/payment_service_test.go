package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Dosada05/valorant-arena/models"
	"github.com/Dosada05/valorant-arena/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidTeam(t *testing.T, env *testEnv) (*models.Tournament, *models.Registration, *models.User, *models.User) {
	t.Helper()
	owner := env.addUser(t, "Owner", models.RoleOrganizer)
	tour := env.addTournament(t, owner.ID, func(t *models.Tournament) { t.EntryFee = 500 })
	reg, captain := env.addTeam(t, tour.ID, "Alpha")
	require.NoError(t, env.regs.UpdateStatus(context.Background(), nil, reg.ID, models.RegistrationPending, nil))
	require.NoError(t, env.regs.UpdatePaymentStatus(context.Background(), nil, reg.ID, models.PaymentRejected))
	return tour, reg, captain, owner
}

func TestPaymentService_SubmitAndApprove(t *testing.T) {
	env := newTestEnv(t)
	_, reg, captain, owner := paidTeam(t, env)
	discordID := "discord-captain"
	env.db.users[captain.ID].DiscordID = &discordID
	ctx := context.Background()

	p, err := env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{
		TransactionID: " TX-42 ",
		Amount:        500,
		Screenshot:    &storage.Image{ContentType: "image/png", Ext: ".png", Data: []byte("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "TX-42", p.TransactionID)
	assert.Equal(t, models.PaymentRequestPending, p.Status)
	require.NotNil(t, p.ScreenshotURL)
	assert.Contains(t, *p.ScreenshotURL, "payments/")
	assert.Equal(t, models.PaymentPending, env.registration(t, reg.ID).PaymentStatus)
	assert.Len(t, env.notifier.alerts, 1)

	pending, err := env.paymentSvc.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	reviewed, err := env.paymentSvc.Review(ctx, staff(owner), p.ID, true, "thanks")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRequestApproved, reviewed.Status)
	assert.Equal(t, owner.ID, *reviewed.ReviewedBy)
	assert.Equal(t, models.PaymentVerified, env.registration(t, reg.ID).PaymentStatus)
	require.Len(t, env.notifier.reviews, 1)
	assert.Equal(t, discordID, env.notifier.reviews[0].CaptainDiscordID)
	assert.True(t, env.notifier.reviews[0].Approved)

	_, err = env.paymentSvc.Review(ctx, staff(owner), p.ID, false, "")
	assert.ErrorIs(t, err, ErrPaymentAlreadyReviewed)

	_, err = env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{TransactionID: "TX-43", Amount: 500})
	assert.ErrorIs(t, err, ErrPaymentNotExpected, "verified registrations take no further payments")
}

func TestPaymentService_Reject(t *testing.T) {
	env := newTestEnv(t)
	_, reg, captain, owner := paidTeam(t, env)
	ctx := context.Background()

	p, err := env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{TransactionID: "TX-1", Amount: 500})
	require.NoError(t, err)

	stranger := env.addUser(t, "Stranger", models.RoleOrganizer)
	_, err = env.paymentSvc.Review(ctx, staff(stranger), p.ID, false, "")
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	reviewed, err := env.paymentSvc.Review(ctx, staff(owner), p.ID, false, "wrong amount")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRequestRejected, reviewed.Status)
	assert.Equal(t, "wrong amount", *reviewed.ReviewNote)
	assert.Equal(t, models.PaymentRejected, env.registration(t, reg.ID).PaymentStatus)

	// A rejected payment can be resubmitted with a new transaction.
	_, err = env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{TransactionID: "TX-1", Amount: 500})
	assert.ErrorIs(t, err, ErrTransactionIDUsed)
	_, err = env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{TransactionID: "TX-2", Amount: 500})
	assert.NoError(t, err)
}

func TestPaymentService_OnePendingRequestAtATime(t *testing.T) {
	env := newTestEnv(t)
	_, reg, captain, _ := paidTeam(t, env)
	ctx := context.Background()

	_, err := env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{TransactionID: "TX-A", Amount: 500})
	require.NoError(t, err)
	_, err = env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{TransactionID: "TX-B", Amount: 500})
	assert.ErrorIs(t, err, ErrPaymentUnderReview)

	mine, err := env.paymentSvc.ListByRegistration(ctx, staff(captain), reg.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestPaymentService_RejectDoesNotUndoVerified(t *testing.T) {
	env := newTestEnv(t)
	_, reg, captain, owner := paidTeam(t, env)
	ctx := context.Background()
	require.NoError(t, env.regs.UpdatePaymentStatus(ctx, nil, reg.ID, models.PaymentPending))

	first := &models.PaymentRequest{RegistrationID: reg.ID, UserID: captain.ID, Amount: 500, TransactionID: "TX-A", Status: models.PaymentRequestPending}
	second := &models.PaymentRequest{RegistrationID: reg.ID, UserID: captain.ID, Amount: 500, TransactionID: "TX-B", Status: models.PaymentRequestPending}
	require.NoError(t, env.payments.Create(ctx, nil, first))
	require.NoError(t, env.payments.Create(ctx, nil, second))

	_, err := env.paymentSvc.Review(ctx, staff(owner), first.ID, true, "")
	require.NoError(t, err)
	reviewed, err := env.paymentSvc.Review(ctx, staff(owner), second.ID, false, "duplicate")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentRequestRejected, reviewed.Status)
	assert.Equal(t, models.PaymentVerified, env.registration(t, reg.ID).PaymentStatus)
}

func TestPaymentService_SubmitGuards(t *testing.T) {
	env := newTestEnv(t)
	_, reg, captain, owner := paidTeam(t, env)
	ctx := context.Background()

	_, err := env.paymentSvc.Submit(ctx, staff(owner), reg.ID, SubmitPaymentInput{TransactionID: "TX-1", Amount: 500})
	assert.ErrorIs(t, err, ErrCaptainActionForbidden)

	_, err = env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{TransactionID: "", Amount: 500})
	assert.ErrorIs(t, err, ErrTransactionIDRequired)

	_, err = env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{TransactionID: "TX-1", Amount: 499})
	assert.ErrorIs(t, err, ErrPaymentAmountTooLow)

	env.uploader.uploadErr = errors.New("bucket offline")
	_, err = env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{
		TransactionID: "TX-1", Amount: 500,
		Screenshot: &storage.Image{ContentType: "image/png", Ext: ".png", Data: []byte("png")},
	})
	assert.Error(t, err)
	pending, err := env.paymentSvc.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPaymentService_SubmitRemovesScreenshotOnConflict(t *testing.T) {
	env := newTestEnv(t)
	_, reg, captain, _ := paidTeam(t, env)
	ctx := context.Background()
	require.NoError(t, env.payments.Create(ctx, nil, &models.PaymentRequest{RegistrationID: reg.ID, UserID: captain.ID, Amount: 500, TransactionID: "TX-9", Status: models.PaymentRequestRejected}))

	_, err := env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{
		TransactionID: "TX-9", Amount: 500,
		Screenshot: &storage.Image{ContentType: "image/png", Ext: ".png", Data: []byte("png")},
	})
	assert.ErrorIs(t, err, ErrTransactionIDUsed)
	assert.Empty(t, env.uploader.objects)
	assert.Len(t, env.uploader.deleted, 1)
}

func TestPaymentService_ListByRegistration(t *testing.T) {
	env := newTestEnv(t)
	_, reg, captain, owner := paidTeam(t, env)
	ctx := context.Background()
	_, err := env.paymentSvc.Submit(ctx, staff(captain), reg.ID, SubmitPaymentInput{TransactionID: "TX-1", Amount: 500})
	require.NoError(t, err)

	mine, err := env.paymentSvc.ListByRegistration(ctx, staff(captain), reg.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	managed, err := env.paymentSvc.ListByRegistration(ctx, staff(owner), reg.ID)
	require.NoError(t, err)
	assert.Len(t, managed, 1)

	player := env.addUser(t, "Nosy", models.RolePlayer)
	_, err = env.paymentSvc.ListByRegistration(ctx, staff(player), reg.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}
