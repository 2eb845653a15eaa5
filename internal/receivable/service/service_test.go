package service

import (
	"context"
	"testing"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/internal/clock"
	customerdomain "github.com/Girosmedia/tendo-app-sub002/internal/customer/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/orgcontext"
	receivabledomain "github.com/Girosmedia/tendo-app-sub002/internal/receivable/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc        receivabledomain.Service
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
	ctx        context.Context
	orgID      snowflake.ID
	customerID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&receivabledomain.Credit{},
		&receivabledomain.Payment{},
		&customerdomain.Customer{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
	})

	orgID := node.Generate()
	customerID := node.Generate()
	require.NoError(t, db.Create(&customerdomain.Customer{
		ID: customerID, OrgID: orgID, Name: "walk-in",
	}).Error)

	return &fixture{
		svc:        svc,
		db:         db,
		node:       node,
		clock:      fake,
		ctx:        orgcontext.WithOrgID(context.Background(), orgID),
		orgID:      orgID,
		customerID: customerID,
	}
}

func (f *fixture) grant(t *testing.T, amount int64, due time.Time) receivabledomain.Credit {
	t.Helper()
	credit, err := f.svc.Create(f.ctx, receivabledomain.CreateCreditRequest{
		CustomerID: f.customerID.String(),
		Amount:     amount,
		DueDate:    due,
	})
	require.NoError(t, err)
	return credit
}

func (f *fixture) customerDebt(t *testing.T) int64 {
	t.Helper()
	var customer customerdomain.Customer
	require.NoError(t, f.db.First(&customer, "id = ?", f.customerID).Error)
	return customer.CurrentDebt
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	past := now.AddDate(0, -1, 0)

	assert.Equal(t, receivabledomain.CreditStatusPaid, receivabledomain.DeriveStatus(0, future, now))
	assert.Equal(t, receivabledomain.CreditStatusPaid, receivabledomain.DeriveStatus(0, past, now))
	assert.Equal(t, receivabledomain.CreditStatusActive, receivabledomain.DeriveStatus(100, future, now))
	assert.Equal(t, receivabledomain.CreditStatusOverdue, receivabledomain.DeriveStatus(100, past, now))

	// Pure function: same inputs, same output.
	assert.Equal(t,
		receivabledomain.DeriveStatus(100, past, now),
		receivabledomain.DeriveStatus(100, past, now),
	)
}

func TestRegisterPayment_ReducesBalanceUntilPaid(t *testing.T) {
	f := newFixture(t)
	credit := f.grant(t, 10000, f.clock.Now().AddDate(0, 1, 0))
	assert.Equal(t, int64(10000), f.customerDebt(t))

	result, err := f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: credit.ID.String(),
		Amount:   4000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), result.Balance)
	assert.Equal(t, receivabledomain.CreditStatusActive, result.Status)
	assert.Equal(t, int64(-4000), result.DebtDelta)
	assert.NotEmpty(t, result.Reference)
	assert.Equal(t, int64(6000), f.customerDebt(t))

	result, err = f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: credit.ID.String(),
		Amount:   6000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Balance)
	assert.Equal(t, receivabledomain.CreditStatusPaid, result.Status)
	assert.Equal(t, int64(0), f.customerDebt(t))

	// A settled credit accepts no further payments.
	_, err = f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: credit.ID.String(),
		Amount:   1,
	})
	assert.ErrorIs(t, err, receivabledomain.ErrCreditNotPayable)
}

func TestRegisterPayment_OverdueCreditStaysPayable(t *testing.T) {
	f := newFixture(t)
	credit := f.grant(t, 5000, f.clock.Now().AddDate(0, 1, 0))

	f.clock.Advance(45 * 24 * time.Hour)

	result, err := f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: credit.ID.String(),
		Amount:   1000,
	})
	require.NoError(t, err)
	assert.Equal(t, receivabledomain.CreditStatusOverdue, result.Status)
	assert.Equal(t, int64(4000), result.Balance)
}

func TestRegisterPayment_RejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	credit := f.grant(t, 3000, f.clock.Now().AddDate(0, 1, 0))

	_, err := f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: credit.ID.String(),
		Amount:   3001,
	})
	assert.ErrorIs(t, err, receivabledomain.ErrOverpayment)

	// The failed payment left nothing behind.
	loaded, err := f.svc.GetByID(f.ctx, credit.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(3000), loaded.Balance)
	assert.Equal(t, int64(3000), f.customerDebt(t))
}

func TestRegisterPayment_RejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	credit := f.grant(t, 3000, f.clock.Now().AddDate(0, 1, 0))

	for _, amount := range []int64{0, -100} {
		_, err := f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
			CreditID: credit.ID.String(),
			Amount:   amount,
		})
		assert.ErrorIs(t, err, receivabledomain.ErrInvalidAmount)
	}
}

func TestRegisterPayment_OwnsOnlyBalanceAndStatusColumns(t *testing.T) {
	f := newFixture(t)
	credit := f.grant(t, 5000, f.clock.Now().AddDate(0, 1, 0))

	_, err := f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: credit.ID.String(),
		Amount:   2000,
	})
	require.NoError(t, err)

	loaded, err := f.svc.GetByID(f.ctx, credit.ID.String())
	require.NoError(t, err)
	assert.Nil(t, loaded.CanceledAt)

	_, err = f.svc.Cancel(f.ctx, credit.ID.String())
	require.NoError(t, err)

	loaded, err = f.svc.GetByID(f.ctx, credit.ID.String())
	require.NoError(t, err)
	require.NotNil(t, loaded.CanceledAt)
	assert.Equal(t, f.clock.Now().UTC(), loaded.CanceledAt.UTC())
}

func TestCancel_ForgivesBalanceAndReversesDebt(t *testing.T) {
	f := newFixture(t)
	credit := f.grant(t, 8000, f.clock.Now().AddDate(0, 1, 0))

	_, err := f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: credit.ID.String(),
		Amount:   3000,
	})
	require.NoError(t, err)

	result, err := f.svc.Cancel(f.ctx, credit.ID.String())
	require.NoError(t, err)
	assert.Equal(t, receivabledomain.CreditStatusCanceled, result.Status)
	assert.Equal(t, int64(0), result.Balance)
	assert.Equal(t, int64(-5000), result.DebtDelta)
	assert.Equal(t, int64(0), f.customerDebt(t))

	// Terminal: no second cancel, no further payments.
	_, err = f.svc.Cancel(f.ctx, credit.ID.String())
	assert.ErrorIs(t, err, receivabledomain.ErrCreditCanceled)

	_, err = f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: credit.ID.String(),
		Amount:   100,
	})
	assert.ErrorIs(t, err, receivabledomain.ErrCreditNotPayable)
}

func TestDelete_OnlyWithoutPayments(t *testing.T) {
	f := newFixture(t)

	fresh := f.grant(t, 2000, f.clock.Now().AddDate(0, 1, 0))
	result, err := f.svc.Delete(f.ctx, fresh.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(-2000), result.DebtDelta)
	assert.Equal(t, int64(0), f.customerDebt(t))

	_, err = f.svc.GetByID(f.ctx, fresh.ID.String())
	assert.ErrorIs(t, err, receivabledomain.ErrCreditNotFound)

	paid := f.grant(t, 2000, f.clock.Now().AddDate(0, 1, 0))
	_, err = f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: paid.ID.String(),
		Amount:   500,
	})
	require.NoError(t, err)

	_, err = f.svc.Delete(f.ctx, paid.ID.String())
	assert.ErrorIs(t, err, receivabledomain.ErrCreditHasPayments)
}

func TestBalanceMonotonicity(t *testing.T) {
	f := newFixture(t)
	credit := f.grant(t, 10000, f.clock.Now().AddDate(0, 1, 0))

	previous := credit.Balance
	for _, amount := range []int64{1000, 2500, 1, 6499} {
		result, err := f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
			CreditID: credit.ID.String(),
			Amount:   amount,
		})
		require.NoError(t, err)
		assert.Less(t, result.Balance, previous)
		assert.GreaterOrEqual(t, result.Balance, int64(0))
		previous = result.Balance
	}
	assert.Equal(t, int64(0), previous)

	loaded, err := f.svc.GetByID(f.ctx, credit.ID.String())
	require.NoError(t, err)
	assert.Equal(t, receivabledomain.CreditStatusPaid, loaded.Status)
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.grant(t, 1000, f.clock.Now().AddDate(0, 1, 0))
	paid := f.grant(t, 2000, f.clock.Now().AddDate(0, 1, 0))

	_, err := f.svc.RegisterPayment(f.ctx, receivabledomain.RegisterPaymentRequest{
		CreditID: paid.ID.String(),
		Amount:   2000,
	})
	require.NoError(t, err)

	resp, err := f.svc.List(f.ctx, receivabledomain.ListCreditsRequest{Status: "paid"})
	require.NoError(t, err)
	require.Len(t, resp.Credits, 1)
	assert.Equal(t, paid.ID, resp.Credits[0].ID)

	_, err = f.svc.List(f.ctx, receivabledomain.ListCreditsRequest{Status: "bogus"})
	assert.ErrorIs(t, err, receivabledomain.ErrInvalidStatus)
}

func TestRequiresOrganizationScope(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), receivabledomain.CreateCreditRequest{
		CustomerID: f.customerID.String(),
		Amount:     100,
		DueDate:    f.clock.Now(),
	})
	assert.ErrorIs(t, err, receivabledomain.ErrInvalidOrganization)
}
