package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/internal/clock"
	customerdomain "github.com/Girosmedia/tendo-app-sub002/internal/customer/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/orgcontext"
	receivabledomain "github.com/Girosmedia/tendo-app-sub002/internal/receivable/domain"
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

	genID      *snowflake.Node
	clock      clock.Clock
	creditRepo repository.Repository[receivabledomain.Credit]
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

func NewService(p ServiceParam) receivabledomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("receivable.service"),

		genID:      p.GenID,
		clock:      p.Clock,
		creditRepo: repository.ProvideStore[receivabledomain.Credit](p.DB),
	}
}

// Create grants a new credit line and raises the customer's aggregate debt
// by the granted amount in the same transaction.
func (s *Service) Create(ctx context.Context, req receivabledomain.CreateCreditRequest) (receivabledomain.Credit, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return receivabledomain.Credit{}, receivabledomain.ErrInvalidOrganization
	}

	customerID, err := s.parseID(req.CustomerID, receivabledomain.ErrInvalidCustomer)
	if err != nil {
		return receivabledomain.Credit{}, err
	}
	if req.Amount <= 0 {
		return receivabledomain.Credit{}, receivabledomain.ErrInvalidAmount
	}
	if req.DueDate.IsZero() {
		return receivabledomain.Credit{}, receivabledomain.ErrInvalidDueDate
	}

	now := s.clock.Now()
	credit := receivabledomain.Credit{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		CustomerID: customerID,
		Amount:     req.Amount,
		Balance:    req.Amount,
		DueDate:    req.DueDate.UTC(),
		Status:     receivabledomain.DeriveStatus(req.Amount, req.DueDate.UTC(), now),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&credit).Error; err != nil {
			return err
		}
		return s.applyDebtDelta(ctx, tx, orgID, customerID, req.Amount)
	}); err != nil {
		return receivabledomain.Credit{}, err
	}

	s.log.Info("credit granted",
		zap.String("credit_id", credit.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int64("amount", req.Amount),
	)

	return credit, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (receivabledomain.Credit, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return receivabledomain.Credit{}, receivabledomain.ErrInvalidOrganization
	}

	creditID, err := s.parseID(id, receivabledomain.ErrInvalidCredit)
	if err != nil {
		return receivabledomain.Credit{}, err
	}

	credit, err := s.creditRepo.FindOne(ctx, &receivabledomain.Credit{ID: creditID, OrgID: orgID})
	if err != nil {
		return receivabledomain.Credit{}, err
	}
	if credit == nil {
		return receivabledomain.Credit{}, receivabledomain.ErrCreditNotFound
	}

	return *credit, nil
}

func (s *Service) List(ctx context.Context, req receivabledomain.ListCreditsRequest) (receivabledomain.ListCreditsResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return receivabledomain.ListCreditsResponse{}, receivabledomain.ErrInvalidOrganization
	}

	filter := &receivabledomain.Credit{OrgID: orgID}

	if req.CustomerID != "" {
		customerID, err := s.parseID(req.CustomerID, receivabledomain.ErrInvalidCustomer)
		if err != nil {
			return receivabledomain.ListCreditsResponse{}, err
		}
		filter.CustomerID = customerID
	}

	if req.Status != "" {
		status := receivabledomain.CreditStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		switch status {
		case receivabledomain.CreditStatusActive,
			receivabledomain.CreditStatusOverdue,
			receivabledomain.CreditStatusPaid,
			receivabledomain.CreditStatusCanceled:
			filter.Status = status
		default:
			return receivabledomain.ListCreditsResponse{}, receivabledomain.ErrInvalidStatus
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.creditRepo.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize}),
		option.WithSortBy("created_at", "desc", map[string]bool{"created_at": true}),
	)
	if err != nil {
		return receivabledomain.ListCreditsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *receivabledomain.Credit) string {
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

	credits := make([]receivabledomain.Credit, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		credits = append(credits, *item)
	}

	resp := receivabledomain.ListCreditsResponse{Credits: credits}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// RegisterPayment settles part of a credit. Overpaying is a hard error, not
// a clamp: document discounts clamp, payments reject. The two policies are
// intentionally asymmetric.
func (s *Service) RegisterPayment(ctx context.Context, req receivabledomain.RegisterPaymentRequest) (receivabledomain.PaymentResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return receivabledomain.PaymentResult{}, receivabledomain.ErrInvalidOrganization
	}

	creditID, err := s.parseID(req.CreditID, receivabledomain.ErrInvalidCredit)
	if err != nil {
		return receivabledomain.PaymentResult{}, err
	}
	if req.Amount <= 0 {
		return receivabledomain.PaymentResult{}, receivabledomain.ErrInvalidAmount
	}

	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = "CASH"
	}

	var result receivabledomain.PaymentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		credit, err := s.loadCredit(ctx, tx, orgID, creditID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.auditStoredStatus(credit, now); err != nil {
			return err
		}

		switch credit.Status {
		case receivabledomain.CreditStatusActive, receivabledomain.CreditStatusOverdue:
		default:
			return receivabledomain.ErrCreditNotPayable
		}
		if req.Amount > credit.Balance {
			return receivabledomain.ErrOverpayment
		}

		newBalance := credit.Balance - req.Amount
		newStatus := receivabledomain.DeriveStatus(newBalance, credit.DueDate, now)

		payment := receivabledomain.Payment{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			CreditID:  credit.ID,
			Amount:    req.Amount,
			Method:    method,
			Reference: uuid.NewString(),
			PaidAt:    now,
			CreatedAt: now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if err := s.updateCredit(ctx, tx, credit, newBalance, newStatus, now); err != nil {
			return err
		}
		if err := s.applyDebtDelta(ctx, tx, orgID, credit.CustomerID, -req.Amount); err != nil {
			return err
		}

		result = receivabledomain.PaymentResult{
			CreditID:  credit.ID.String(),
			Balance:   newBalance,
			Status:    newStatus,
			DebtDelta: -req.Amount,
			Reference: payment.Reference,
		}
		return nil
	})
	if err != nil {
		return receivabledomain.PaymentResult{}, err
	}

	s.log.Info("credit payment registered",
		zap.String("credit_id", result.CreditID),
		zap.Int64("amount", req.Amount),
		zap.Int64("balance", result.Balance),
		zap.String("status", string(result.Status)),
	)

	return result, nil
}

// Cancel forgives the remaining balance. Terminal: a canceled credit never
// becomes payable again. The forgiven amount comes back as a negative
// DebtDelta so the customer's aggregate debt drops with it.
func (s *Service) Cancel(ctx context.Context, id string) (receivabledomain.PaymentResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return receivabledomain.PaymentResult{}, receivabledomain.ErrInvalidOrganization
	}

	creditID, err := s.parseID(id, receivabledomain.ErrInvalidCredit)
	if err != nil {
		return receivabledomain.PaymentResult{}, err
	}

	var result receivabledomain.PaymentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		credit, err := s.loadCredit(ctx, tx, orgID, creditID)
		if err != nil {
			return err
		}
		if credit.Status == receivabledomain.CreditStatusCanceled {
			return receivabledomain.ErrCreditCanceled
		}

		now := s.clock.Now()
		forgiven := credit.Balance
		if err := s.cancelCredit(ctx, tx, credit, now); err != nil {
			return err
		}
		if forgiven > 0 {
			if err := s.applyDebtDelta(ctx, tx, orgID, credit.CustomerID, -forgiven); err != nil {
				return err
			}
		}

		result = receivabledomain.PaymentResult{
			CreditID:  credit.ID.String(),
			Balance:   0,
			Status:    receivabledomain.CreditStatusCanceled,
			DebtDelta: -forgiven,
		}
		return nil
	})
	if err != nil {
		return receivabledomain.PaymentResult{}, err
	}

	s.log.Info("credit canceled",
		zap.String("credit_id", result.CreditID),
		zap.Int64("forgiven", -result.DebtDelta),
	)

	return result, nil
}

// Delete hard-deletes a credit that has no payment history and reverses its
// remaining contribution to the customer's debt. A credit with payments can
// only be canceled.
func (s *Service) Delete(ctx context.Context, id string) (receivabledomain.PaymentResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return receivabledomain.PaymentResult{}, receivabledomain.ErrInvalidOrganization
	}

	creditID, err := s.parseID(id, receivabledomain.ErrInvalidCredit)
	if err != nil {
		return receivabledomain.PaymentResult{}, err
	}

	var result receivabledomain.PaymentResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		credit, err := s.loadCredit(ctx, tx, orgID, creditID)
		if err != nil {
			return err
		}

		var paymentCount int64
		if err := tx.Model(&receivabledomain.Payment{}).
			Where("org_id = ? AND credit_id = ?", orgID, credit.ID).
			Count(&paymentCount).Error; err != nil {
			return err
		}
		if paymentCount > 0 {
			return receivabledomain.ErrCreditHasPayments
		}

		if err := tx.Where("org_id = ? AND id = ?", orgID, credit.ID).
			Delete(&receivabledomain.Credit{}).Error; err != nil {
			return err
		}

		delta := int64(0)
		if credit.Status != receivabledomain.CreditStatusCanceled {
			delta = -credit.Balance
		}
		if delta != 0 {
			if err := s.applyDebtDelta(ctx, tx, orgID, credit.CustomerID, delta); err != nil {
				return err
			}
		}

		result = receivabledomain.PaymentResult{
			CreditID:  credit.ID.String(),
			Balance:   0,
			Status:    credit.Status,
			DebtDelta: delta,
		}
		return nil
	})
	if err != nil {
		return receivabledomain.PaymentResult{}, err
	}

	return result, nil
}

func (s *Service) loadCredit(ctx context.Context, tx *gorm.DB, orgID, creditID snowflake.ID) (*receivabledomain.Credit, error) {
	var credit receivabledomain.Credit
	err := tx.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, creditID).
		First(&credit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, receivabledomain.ErrCreditNotFound
		}
		return nil, err
	}
	return &credit, nil
}

// auditStoredStatus re-derives the status from the credit's inputs and fails
// loudly when the stored enum has drifted. Canceled credits are exempt: that
// state is set explicitly, not derived.
func (s *Service) auditStoredStatus(credit *receivabledomain.Credit, now time.Time) error {
	if credit.Status == receivabledomain.CreditStatusCanceled {
		return nil
	}
	derived := receivabledomain.DeriveStatus(credit.Balance, credit.DueDate, now)
	if derived != credit.Status {
		// OVERDUE is recomputed lazily; snapping ACTIVE to OVERDUE as the
		// due date passes is expected drift, anything else is corruption.
		if credit.Status == receivabledomain.CreditStatusActive && derived == receivabledomain.CreditStatusOverdue {
			credit.Status = derived
			return nil
		}
		s.log.Error("stored credit status disagrees with derivation",
			zap.String("credit_id", credit.ID.String()),
			zap.String("stored", string(credit.Status)),
			zap.String("derived", string(derived)),
		)
		return receivabledomain.ErrStatusDrift
	}
	return nil
}

// updateCredit writes the new balance/status guarded by the version counter,
// failing the transaction when a concurrent writer got there first. Only the
// cancel path touches canceled_at.
func (s *Service) updateCredit(
	ctx context.Context,
	tx *gorm.DB,
	credit *receivabledomain.Credit,
	balance int64,
	status receivabledomain.CreditStatus,
	now time.Time,
) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE credits
		 SET balance = ?, status = ?, version = version + 1, updated_at = ?
		 WHERE org_id = ? AND id = ? AND version = ?`,
		balance,
		status,
		now,
		credit.OrgID,
		credit.ID,
		credit.Version,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return receivabledomain.ErrConcurrentUpdate
	}
	return nil
}

func (s *Service) cancelCredit(
	ctx context.Context,
	tx *gorm.DB,
	credit *receivabledomain.Credit,
	now time.Time,
) error {
	res := tx.WithContext(ctx).Exec(
		`UPDATE credits
		 SET balance = 0, status = ?, canceled_at = ?, version = version + 1, updated_at = ?
		 WHERE org_id = ? AND id = ? AND version = ?`,
		receivabledomain.CreditStatusCanceled,
		now,
		now,
		credit.OrgID,
		credit.ID,
		credit.Version,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return receivabledomain.ErrConcurrentUpdate
	}
	return nil
}

func (s *Service) applyDebtDelta(ctx context.Context, tx *gorm.DB, orgID, customerID snowflake.ID, delta int64) error {
	return tx.WithContext(ctx).
		Model(&customerdomain.Customer{}).
		Where("org_id = ? AND id = ?", orgID, customerID).
		Update("current_debt", gorm.Expr("current_debt + ?", delta)).Error
}

func (s *Service) parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
