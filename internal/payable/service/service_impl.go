package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/internal/clock"
	"github.com/Girosmedia/tendo-app-sub002/internal/orgcontext"
	payabledomain "github.com/Girosmedia/tendo-app-sub002/internal/payable/domain"
	"github.com/Girosmedia/tendo-app-sub002/pkg/db/option"
	"github.com/Girosmedia/tendo-app-sub002/pkg/db/pagination"
	"github.com/Girosmedia/tendo-app-sub002/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	payableRepo repository.Repository[payabledomain.AccountPayable]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

func NewService(p ServiceParam) payabledomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("payable.service"),

		genID:       p.GenID,
		clock:       p.Clock,
		payableRepo: repository.ProvideStore[payabledomain.AccountPayable](p.DB),
	}
}

// Create records a new supplier obligation and raises the supplier's
// outstanding rollup by the same amount in one transaction.
func (s *Service) Create(ctx context.Context, req payabledomain.CreatePayableRequest) (payabledomain.AccountPayable, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return payabledomain.AccountPayable{}, payabledomain.ErrInvalidOrganization
	}

	supplierID, err := s.parseID(req.SupplierID, payabledomain.ErrInvalidSupplier)
	if err != nil {
		return payabledomain.AccountPayable{}, err
	}
	if req.Amount <= 0 {
		return payabledomain.AccountPayable{}, payabledomain.ErrInvalidAmount
	}
	if req.DueDate.IsZero() {
		return payabledomain.AccountPayable{}, payabledomain.ErrInvalidDueDate
	}

	now := s.clock.Now()
	payable := payabledomain.AccountPayable{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		SupplierID: supplierID,
		Amount:     req.Amount,
		Balance:    req.Amount,
		DueDate:    req.DueDate.UTC(),
		Status: payabledomain.DeriveStatus(
			req.Amount, req.Amount, req.DueDate.UTC(), now,
			payabledomain.PayableStatusPending, payabledomain.NoHint(),
		),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payable).Error; err != nil {
			return err
		}
		return s.applyOutstandingDelta(ctx, tx, orgID, supplierID, req.Amount)
	}); err != nil {
		return payabledomain.AccountPayable{}, err
	}

	s.log.Info("payable recorded",
		zap.String("payable_id", payable.ID.String()),
		zap.String("supplier_id", supplierID.String()),
		zap.Int64("amount", req.Amount),
	)

	return payable, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (payabledomain.AccountPayable, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return payabledomain.AccountPayable{}, payabledomain.ErrInvalidOrganization
	}

	payableID, err := s.parseID(id, payabledomain.ErrInvalidPayable)
	if err != nil {
		return payabledomain.AccountPayable{}, err
	}

	payable, err := s.payableRepo.FindOne(ctx, &payabledomain.AccountPayable{ID: payableID, OrgID: orgID})
	if err != nil {
		return payabledomain.AccountPayable{}, err
	}
	if payable == nil {
		return payabledomain.AccountPayable{}, payabledomain.ErrPayableNotFound
	}

	return *payable, nil
}

func (s *Service) List(ctx context.Context, req payabledomain.ListPayablesRequest) (payabledomain.ListPayablesResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return payabledomain.ListPayablesResponse{}, payabledomain.ErrInvalidOrganization
	}

	filter := &payabledomain.AccountPayable{OrgID: orgID}

	if req.SupplierID != "" {
		supplierID, err := s.parseID(req.SupplierID, payabledomain.ErrInvalidSupplier)
		if err != nil {
			return payabledomain.ListPayablesResponse{}, err
		}
		filter.SupplierID = supplierID
	}

	if req.Status != "" {
		status := payabledomain.PayableStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		switch status {
		case payabledomain.PayableStatusPending,
			payabledomain.PayableStatusPartial,
			payabledomain.PayableStatusPaid,
			payabledomain.PayableStatusOverdue,
			payabledomain.PayableStatusCanceled:
			filter.Status = status
		default:
			return payabledomain.ListPayablesResponse{}, payabledomain.ErrInvalidStatus
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.payableRepo.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize}),
		option.WithSortBy("created_at", "desc", map[string]bool{"created_at": true}),
	)
	if err != nil {
		return payabledomain.ListPayablesResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *payabledomain.AccountPayable) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	payables := make([]payabledomain.AccountPayable, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payables = append(payables, *item)
	}

	resp := payabledomain.ListPayablesResponse{Payables: payables}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// RegisterPayment applies a payment against a payable. Overpaying is a hard
// error, same policy as the receivable side, and a settled or canceled
// payable takes no further payments.
func (s *Service) RegisterPayment(ctx context.Context, req payabledomain.RegisterPaymentRequest) (payabledomain.PaymentResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return payabledomain.PaymentResult{}, payabledomain.ErrInvalidOrganization
	}

	payableID, err := s.parseID(req.PayableID, payabledomain.ErrInvalidPayable)
	if err != nil {
		return payabledomain.PaymentResult{}, err
	}
	if req.Amount <= 0 {
		return payabledomain.PaymentResult{}, payabledomain.ErrInvalidAmount
	}

	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = "TRANSFER"
	}

	var result payabledomain.PaymentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payable, err := s.loadPayable(ctx, tx, orgID, payableID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.auditStoredStatus(payable, now); err != nil {
			return err
		}

		switch payable.Status {
		case payabledomain.PayableStatusCanceled:
			return payabledomain.ErrPayableCanceled
		case payabledomain.PayableStatusPaid:
			return payabledomain.ErrPayableAlreadyPaid
		}
		if req.Amount > payable.Balance {
			return payabledomain.ErrOverpayment
		}

		hint := payabledomain.NoHint()
		if req.MarkPartial {
			hint = payabledomain.ExplicitStatus(payabledomain.PayableStatusPartial)
		}

		newBalance := payable.Balance - req.Amount
		newStatus := payabledomain.DeriveStatus(
			payable.Amount, newBalance, payable.DueDate, now, payable.Status, hint,
		)

		application := payabledomain.PayableApplication{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			PayableID: payable.ID,
			Amount:    req.Amount,
			Method:    method,
			Reference: uuid.NewString(),
			PaidAt:    now,
			CreatedAt: now,
		}
		if err := tx.Create(&application).Error; err != nil {
			return err
		}

		if err := s.updatePayable(ctx, tx, payable, newBalance, newStatus, now); err != nil {
			return err
		}
		if err := s.applyOutstandingDelta(ctx, tx, orgID, payable.SupplierID, -req.Amount); err != nil {
			return err
		}

		result = payabledomain.PaymentResult{
			PayableID:        payable.ID.String(),
			Balance:          newBalance,
			Status:           newStatus,
			OutstandingDelta: -req.Amount,
			Reference:        application.Reference,
		}
		return nil
	})
	if err != nil {
		return payabledomain.PaymentResult{}, err
	}

	s.log.Info("payable payment applied",
		zap.String("payable_id", result.PayableID),
		zap.Int64("amount", req.Amount),
		zap.Int64("balance", result.Balance),
		zap.String("status", string(result.Status)),
	)

	return result, nil
}

// Cancel writes off the remaining balance. Terminal and sticky: the
// derivation keeps CANCELED regardless of balance or due date afterwards.
func (s *Service) Cancel(ctx context.Context, id string) (payabledomain.PaymentResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return payabledomain.PaymentResult{}, payabledomain.ErrInvalidOrganization
	}

	payableID, err := s.parseID(id, payabledomain.ErrInvalidPayable)
	if err != nil {
		return payabledomain.PaymentResult{}, err
	}

	var result payabledomain.PaymentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payable, err := s.loadPayable(ctx, tx, orgID, payableID)
		if err != nil {
			return err
		}
		if payable.Status == payabledomain.PayableStatusCanceled {
			return payabledomain.ErrPayableCanceled
		}

		now := s.clock.Now()
		writtenOff := payable.Balance
		if err := s.cancelPayable(ctx, tx, payable, now); err != nil {
			return err
		}
		if writtenOff > 0 {
			if err := s.applyOutstandingDelta(ctx, tx, orgID, payable.SupplierID, -writtenOff); err != nil {
				return err
			}
		}

		result = payabledomain.PaymentResult{
			PayableID:        payable.ID.String(),
			Balance:          0,
			Status:           payabledomain.PayableStatusCanceled,
			OutstandingDelta: -writtenOff,
		}
		return nil
	})
	if err != nil {
		return payabledomain.PaymentResult{}, err
	}

	s.log.Info("payable canceled",
		zap.String("payable_id", result.PayableID),
		zap.Int64("written_off", -result.OutstandingDelta),
	)

	return result, nil
}

// Delete hard-deletes a payable that has no payment history and reverses its
// remaining contribution to the supplier rollup. Once payments exist the
// record can only be canceled.
func (s *Service) Delete(ctx context.Context, id string) (payabledomain.PaymentResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return payabledomain.PaymentResult{}, payabledomain.ErrInvalidOrganization
	}

	payableID, err := s.parseID(id, payabledomain.ErrInvalidPayable)
	if err != nil {
		return payabledomain.PaymentResult{}, err
	}

	var result payabledomain.PaymentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payable, err := s.loadPayable(ctx, tx, orgID, payableID)
		if err != nil {
			return err
		}

		var paymentCount int64
		if err := tx.Model(&payabledomain.PayableApplication{}).
			Where("org_id = ? AND payable_id = ?", orgID, payable.ID).
			Count(&paymentCount).Error; err != nil {
			return err
		}
		if paymentCount > 0 {
			return payabledomain.ErrPayableHasPayments
		}

		if err := tx.Where("org_id = ? AND id = ?", orgID, payable.ID).
			Delete(&payabledomain.AccountPayable{}).Error; err != nil {
			return err
		}

		delta := int64(0)
		if payable.Status != payabledomain.PayableStatusCanceled {
			delta = -payable.Balance
		}
		if delta != 0 {
			if err := s.applyOutstandingDelta(ctx, tx, orgID, payable.SupplierID, delta); err != nil {
				return err
			}
		}

		result = payabledomain.PaymentResult{
			PayableID:        payable.ID.String(),
			Balance:          0,
			Status:           payable.Status,
			OutstandingDelta: delta,
		}
		return nil
	})
	if err != nil {
		return payabledomain.PaymentResult{}, err
	}

	return result, nil
}

func (s *Service) loadPayable(ctx context.Context, tx *gorm.DB, orgID, payableID snowflake.ID) (*payabledomain.AccountPayable, error) {
	var payable payabledomain.AccountPayable
	err := tx.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, payableID).
		First(&payable).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payabledomain.ErrPayableNotFound
		}
		return nil, err
	}
	return &payable, nil
}

// auditStoredStatus re-derives the status and fails loudly on drift. PARTIAL
// is caller-supplied state the derivation cannot reproduce without its hint,
// so a stored PARTIAL is replayed through the derivation with the hint set.
func (s *Service) auditStoredStatus(payable *payabledomain.AccountPayable, now time.Time) error {
	if payable.Status == payabledomain.PayableStatusCanceled {
		return nil
	}
	hint := payabledomain.NoHint()
	if payable.Status == payabledomain.PayableStatusPartial {
		hint = payabledomain.ExplicitStatus(payabledomain.PayableStatusPartial)
	}
	derived := payabledomain.DeriveStatus(payable.Amount, payable.Balance, payable.DueDate, now, payable.Status, hint)
	if derived != payable.Status {
		// OVERDUE is recomputed lazily as the due date passes; any other
		// disagreement means the stored enum is corrupt.
		if payable.Status == payabledomain.PayableStatusPending && derived == payabledomain.PayableStatusOverdue {
			payable.Status = derived
			return nil
		}
		s.log.Error("stored payable status disagrees with derivation",
			zap.String("payable_id", payable.ID.String()),
			zap.String("stored", string(payable.Status)),
			zap.String("derived", string(derived)),
		)
		return payabledomain.ErrStatusDrift
	}
	return nil
}

// updatePayable writes the new balance/status guarded by the version counter.
// Only the cancel path touches canceled_at.
func (s *Service) updatePayable(
	ctx context.Context,
	tx *gorm.DB,
	payable *payabledomain.AccountPayable,
	balance int64,
	status payabledomain.PayableStatus,
	now time.Time,
) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE accounts_payable
		 SET balance = ?, status = ?, version = version + 1, updated_at = ?
		 WHERE org_id = ? AND id = ? AND version = ?`,
		balance,
		status,
		now,
		payable.OrgID,
		payable.ID,
		payable.Version,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return payabledomain.ErrConcurrentUpdate
	}
	return nil
}

func (s *Service) cancelPayable(
	ctx context.Context,
	tx *gorm.DB,
	payable *payabledomain.AccountPayable,
	now time.Time,
) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE accounts_payable
		 SET balance = 0, status = ?, canceled_at = ?, version = version + 1, updated_at = ?
		 WHERE org_id = ? AND id = ? AND version = ?`,
		payabledomain.PayableStatusCanceled,
		now,
		now,
		payable.OrgID,
		payable.ID,
		payable.Version,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return payabledomain.ErrConcurrentUpdate
	}
	return nil
}

func (s *Service) applyOutstandingDelta(ctx context.Context, tx *gorm.DB, orgID, supplierID snowflake.ID, delta int64) error {
	return tx.WithContext(ctx).
		Model(&payabledomain.Supplier{}).
		Where("org_id = ? AND id = ?", orgID, supplierID).
		Update("outstanding", gorm.Expr("outstanding + ?", delta)).Error
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
