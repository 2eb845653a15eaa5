package service

import (
	"context"
	"testing"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/internal/clock"
	"github.com/Girosmedia/tendo-app-sub002/internal/orgcontext"
	payabledomain "github.com/Girosmedia/tendo-app-sub002/internal/payable/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc        payabledomain.Service
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
	ctx        context.Context
	orgID      snowflake.ID
	supplierID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&payabledomain.AccountPayable{},
		&payabledomain.PayableApplication{},
		&payabledomain.Supplier{},
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
	supplierID := node.Generate()
	require.NoError(t, db.Create(&payabledomain.Supplier{
		ID: supplierID, OrgID: orgID, Name: "main distributor",
	}).Error)

	return &fixture{
		svc:        svc,
		db:         db,
		node:       node,
		clock:      fake,
		ctx:        orgcontext.WithOrgID(context.Background(), orgID),
		orgID:      orgID,
		supplierID: supplierID,
	}
}

func (f *fixture) record(t *testing.T, amount int64, due time.Time) payabledomain.AccountPayable {
	t.Helper()
	payable, err := f.svc.Create(f.ctx, payabledomain.CreatePayableRequest{
		SupplierID: f.supplierID.String(),
		Amount:     amount,
		DueDate:    due,
	})
	require.NoError(t, err)
	return payable
}

func (f *fixture) supplierOutstanding(t *testing.T) int64 {
	t.Helper()
	var supplier payabledomain.Supplier
	require.NoError(t, f.db.First(&supplier, "id = ?", f.supplierID).Error)
	return supplier.Outstanding
}

func (f *fixture) reload(t *testing.T, id string) payabledomain.AccountPayable {
	t.Helper()
	payable, err := f.svc.GetByID(f.ctx, id)
	require.NoError(t, err)
	return payable
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	past := now.AddDate(0, -1, 0)

	tests := []struct {
		name    string
		amount  int64
		balance int64
		dueDate time.Time
		current payabledomain.PayableStatus
		hint    payabledomain.StatusHint
		want    payabledomain.PayableStatus
	}{
		{
			name:    "open before due date is pending",
			amount:  5000,
			balance: 5000,
			dueDate: future,
			current: payabledomain.PayableStatusPending,
			hint:    payabledomain.NoHint(),
			want:    payabledomain.PayableStatusPending,
		},
		{
			name:    "partial payment without hint stays pending",
			amount:  5000,
			balance: 2000,
			dueDate: future,
			current: payabledomain.PayableStatusPending,
			hint:    payabledomain.NoHint(),
			want:    payabledomain.PayableStatusPending,
		},
		{
			name:    "partial payment with explicit hint is partial",
			amount:  5000,
			balance: 2000,
			dueDate: future,
			current: payabledomain.PayableStatusPending,
			hint:    payabledomain.ExplicitStatus(payabledomain.PayableStatusPartial),
			want:    payabledomain.PayableStatusPartial,
		},
		{
			name:    "partial hint is ignored when nothing was paid",
			amount:  5000,
			balance: 5000,
			dueDate: future,
			current: payabledomain.PayableStatusPending,
			hint:    payabledomain.ExplicitStatus(payabledomain.PayableStatusPartial),
			want:    payabledomain.PayableStatusPending,
		},
		{
			name:    "past due date is overdue",
			amount:  5000,
			balance: 5000,
			dueDate: past,
			current: payabledomain.PayableStatusPending,
			hint:    payabledomain.NoHint(),
			want:    payabledomain.PayableStatusOverdue,
		},
		{
			name:    "explicit partial holds past the due date",
			amount:  5000,
			balance: 2000,
			dueDate: past,
			current: payabledomain.PayableStatusPending,
			hint:    payabledomain.ExplicitStatus(payabledomain.PayableStatusPartial),
			want:    payabledomain.PayableStatusPartial,
		},
		{
			name:    "zero balance is paid even past due",
			amount:  5000,
			balance: 0,
			dueDate: past,
			current: payabledomain.PayableStatusOverdue,
			hint:    payabledomain.NoHint(),
			want:    payabledomain.PayableStatusPaid,
		},
		{
			name:    "canceled is sticky over zero balance",
			amount:  5000,
			balance: 0,
			dueDate: past,
			current: payabledomain.PayableStatusCanceled,
			hint:    payabledomain.NoHint(),
			want:    payabledomain.PayableStatusCanceled,
		},
		{
			name:    "canceled is sticky over partial hint",
			amount:  5000,
			balance: 2000,
			dueDate: future,
			current: payabledomain.PayableStatusCanceled,
			hint:    payabledomain.ExplicitStatus(payabledomain.PayableStatusPartial),
			want:    payabledomain.PayableStatusCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := payabledomain.DeriveStatus(tt.amount, tt.balance, tt.dueDate, now, tt.current, tt.hint)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterPayment_SettlesInSteps(t *testing.T) {
	f := newFixture(t)
	due := f.clock.Now().AddDate(0, 1, 0)
	payable := f.record(t, 10000, due)
	require.Equal(t, int64(10000), f.supplierOutstanding(t))

	res, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID:   payable.ID.String(),
		Amount:      4000,
		MarkPartial: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), res.Balance)
	assert.Equal(t, payabledomain.PayableStatusPartial, res.Status)
	assert.Equal(t, int64(-4000), res.OutstandingDelta)
	assert.NotEmpty(t, res.Reference)
	assert.Equal(t, int64(6000), f.supplierOutstanding(t))

	res, err = f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: payable.ID.String(),
		Amount:    6000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Balance)
	assert.Equal(t, payabledomain.PayableStatusPaid, res.Status)
	assert.Equal(t, int64(0), f.supplierOutstanding(t))

	_, err = f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: payable.ID.String(),
		Amount:    1,
	})
	assert.ErrorIs(t, err, payabledomain.ErrPayableAlreadyPaid)
}

func TestRegisterPayment_WithoutHintStaysPending(t *testing.T) {
	f := newFixture(t)
	payable := f.record(t, 10000, f.clock.Now().AddDate(0, 1, 0))

	res, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: payable.ID.String(),
		Amount:    4000,
	})
	require.NoError(t, err)
	assert.Equal(t, payabledomain.PayableStatusPending, res.Status)
}

func TestRegisterPayment_OverduePayableStaysPayable(t *testing.T) {
	f := newFixture(t)
	payable := f.record(t, 10000, f.clock.Now().AddDate(0, 0, 7))

	f.clock.Advance(45 * 24 * time.Hour)

	res, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: payable.ID.String(),
		Amount:    10000,
	})
	require.NoError(t, err)
	assert.Equal(t, payabledomain.PayableStatusPaid, res.Status)
}

func TestRegisterPayment_ExplicitPartialHoldsPastDueDate(t *testing.T) {
	f := newFixture(t)
	payable := f.record(t, 10000, f.clock.Now().AddDate(0, 0, 7))

	f.clock.Advance(45 * 24 * time.Hour)

	res, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID:   payable.ID.String(),
		Amount:      4000,
		MarkPartial: true,
	})
	require.NoError(t, err)
	assert.Equal(t, payabledomain.PayableStatusPartial, res.Status)
}

func TestRegisterPayment_RejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	payable := f.record(t, 5000, f.clock.Now().AddDate(0, 1, 0))

	_, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: payable.ID.String(),
		Amount:    5001,
	})
	assert.ErrorIs(t, err, payabledomain.ErrOverpayment)

	reloaded := f.reload(t, payable.ID.String())
	assert.Equal(t, int64(5000), reloaded.Balance)
	assert.Equal(t, int64(5000), f.supplierOutstanding(t))
}

func TestRegisterPayment_RejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	payable := f.record(t, 5000, f.clock.Now().AddDate(0, 1, 0))

	for _, amount := range []int64{0, -100} {
		_, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
			PayableID: payable.ID.String(),
			Amount:    amount,
		})
		assert.ErrorIs(t, err, payabledomain.ErrInvalidAmount)
	}
}

func TestRegisterPayment_OwnsOnlyBalanceAndStatusColumns(t *testing.T) {
	f := newFixture(t)
	payable := f.record(t, 5000, f.clock.Now().AddDate(0, 1, 0))

	_, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: payable.ID.String(),
		Amount:    2000,
	})
	require.NoError(t, err)
	assert.Nil(t, f.reload(t, payable.ID.String()).CanceledAt)

	_, err = f.svc.Cancel(f.ctx, payable.ID.String())
	require.NoError(t, err)

	loaded := f.reload(t, payable.ID.String())
	require.NotNil(t, loaded.CanceledAt)
	assert.Equal(t, f.clock.Now().UTC(), loaded.CanceledAt.UTC())
}

func TestCancel_WritesOffBalanceAndIsTerminal(t *testing.T) {
	f := newFixture(t)
	payable := f.record(t, 8000, f.clock.Now().AddDate(0, 1, 0))

	res, err := f.svc.Cancel(f.ctx, payable.ID.String())
	require.NoError(t, err)
	assert.Equal(t, payabledomain.PayableStatusCanceled, res.Status)
	assert.Equal(t, int64(-8000), res.OutstandingDelta)
	assert.Equal(t, int64(0), f.supplierOutstanding(t))

	_, err = f.svc.Cancel(f.ctx, payable.ID.String())
	assert.ErrorIs(t, err, payabledomain.ErrPayableCanceled)

	_, err = f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: payable.ID.String(),
		Amount:    100,
	})
	assert.ErrorIs(t, err, payabledomain.ErrPayableCanceled)
}

func TestDelete_OnlyWithoutPayments(t *testing.T) {
	f := newFixture(t)

	clean := f.record(t, 3000, f.clock.Now().AddDate(0, 1, 0))
	res, err := f.svc.Delete(f.ctx, clean.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(-3000), res.OutstandingDelta)
	assert.Equal(t, int64(0), f.supplierOutstanding(t))

	_, err = f.svc.GetByID(f.ctx, clean.ID.String())
	assert.ErrorIs(t, err, payabledomain.ErrPayableNotFound)

	paid := f.record(t, 3000, f.clock.Now().AddDate(0, 1, 0))
	_, err = f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: paid.ID.String(),
		Amount:    1000,
	})
	require.NoError(t, err)

	_, err = f.svc.Delete(f.ctx, paid.ID.String())
	assert.ErrorIs(t, err, payabledomain.ErrPayableHasPayments)
}

func TestBalanceNeverNegative(t *testing.T) {
	f := newFixture(t)
	payable := f.record(t, 700, f.clock.Now().AddDate(0, 1, 0))

	for _, amount := range []int64{300, 300, 100} {
		res, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
			PayableID: payable.ID.String(),
			Amount:    amount,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Balance, int64(0))
	}

	_, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: payable.ID.String(),
		Amount:    1,
	})
	assert.ErrorIs(t, err, payabledomain.ErrPayableAlreadyPaid)
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t)
	due := f.clock.Now().AddDate(0, 1, 0)

	open := f.record(t, 1000, due)
	settled := f.record(t, 2000, due)
	_, err := f.svc.RegisterPayment(f.ctx, payabledomain.RegisterPaymentRequest{
		PayableID: settled.ID.String(),
		Amount:    2000,
	})
	require.NoError(t, err)

	resp, err := f.svc.List(f.ctx, payabledomain.ListPayablesRequest{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, resp.Payables, 1)
	assert.Equal(t, open.ID, resp.Payables[0].ID)

	resp, err = f.svc.List(f.ctx, payabledomain.ListPayablesRequest{Status: "paid"})
	require.NoError(t, err)
	require.Len(t, resp.Payables, 1)
	assert.Equal(t, settled.ID, resp.Payables[0].ID)

	_, err = f.svc.List(f.ctx, payabledomain.ListPayablesRequest{Status: "bogus"})
	assert.ErrorIs(t, err, payabledomain.ErrInvalidStatus)
}

func TestRequiresOrganizationScope(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), payabledomain.CreatePayableRequest{
		SupplierID: f.supplierID.String(),
		Amount:     1000,
		DueDate:    f.clock.Now().AddDate(0, 1, 0),
	})
	assert.ErrorIs(t, err, payabledomain.ErrInvalidOrganization)

	_, err = f.svc.RegisterPayment(context.Background(), payabledomain.RegisterPaymentRequest{
		PayableID: f.node.Generate().String(),
		Amount:    100,
	})
	assert.ErrorIs(t, err, payabledomain.ErrInvalidOrganization)
}
