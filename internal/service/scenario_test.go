package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tuitron-api/internal/dto"
	"github.com/noah-isme/tuitron-api/internal/models"
	"github.com/noah-isme/tuitron-api/pkg/config"
)

// A student posts a listing, a tutor applies, an admin accepts and the student pays.
func TestListingToPaymentScenario(t *testing.T) {
	ctx := context.Background()
	accounts := seededAccounts()
	tuitions := newFakeTuitions()
	tutors := newFakeTutors()
	apps := newFakeApplications()
	payments := newFakePayments(tuitions)
	provider := newFakeProvider()

	tuitionSvc := NewTuitionService(tuitions, accounts, nil, nil)
	tutorSvc := NewTutorService(tutors, accounts, nil, nil, nil)
	appSvc := NewApplicationService(apps, tutors, tuitions, accounts, nil, config.ApplicationPolicyAdmin, nil, nil)
	paymentSvc := NewPaymentService(payments, tuitions, accounts, provider, nil, nil, PaymentConfig{Currency: "usd"}, nil, nil)

	studentA := identityFor("a@example.com")
	tutorB := identityFor("b@example.com")
	admin := identityFor("root@example.com")

	created, err := tuitionSvc.Create(ctx, studentA, dto.CreateTuitionRequest{Subject: "Math", Class: "10", Location: "Dhaka", Budget: 5000, Schedule: "Mon/Wed"})
	require.NoError(t, err)
	tuitionID := created.ID

	listed, err := tuitionSvc.Query(ctx, models.TuitionFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, models.TuitionPending, listed[0].Status)

	_, err = tutorSvc.Register(ctx, tutorB, validTutorRequest())
	require.NoError(t, err)
	app, err := appSvc.Apply(ctx, tutorB, dto.ApplyRequest{TuitionID: tuitionID, Message: "I teach Math"})
	require.NoError(t, err)

	mine, err := appSvc.ListMine(ctx, tutorB)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, app.ID, mine[0].ID)

	_, err = appSvc.SetStatus(ctx, admin, app.ID, "accepted")
	require.NoError(t, err)
	stored, err := apps.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, stored.Status)

	session, err := paymentSvc.CreateCheckoutSession(ctx, studentA, dto.CheckoutRequest{TuitionID: tuitionID, Subject: "Math", Amount: 5000})
	require.NoError(t, err)
	assert.NotEmpty(t, session.URL)

	provider.pay(session.SessionID, "pi_scenario")
	result, err := paymentSvc.Reconcile(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileCreated, result.Outcome)
	assert.Equal(t, 5000.0, result.Payment.Amount)
	assert.Equal(t, 1, payments.count())

	paid, err := tuitionSvc.Get(ctx, tuitionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
}
