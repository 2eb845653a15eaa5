package service

import (
	"context"
	"errors"
	"strings"
	"time"

	cashregisterdomain "github.com/Girosmedia/tendo-app-sub002/internal/cashregister/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/clock"
	"github.com/Girosmedia/tendo-app-sub002/internal/config"
	"github.com/Girosmedia/tendo-app-sub002/internal/orgcontext"
	"github.com/Girosmedia/tendo-app-sub002/pkg/db/option"
	"github.com/Girosmedia/tendo-app-sub002/pkg/db/pagination"
	"github.com/Girosmedia/tendo-app-sub002/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	policy    *config.PolicyHolder
	shiftRepo repository.Repository[cashregisterdomain.Shift]
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Policy *config.PolicyHolder
}

func NewService(p ServiceParam) cashregisterdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("cashregister.service"),

		genID:     p.GenID,
		clock:     p.Clock,
		policy:    p.Policy,
		shiftRepo: repository.ProvideStore[cashregisterdomain.Shift](p.DB),
	}
}

// Open starts a shift for the acting operator. An operator can run at most
// one open shift per organization at a time.
func (s *Service) Open(ctx context.Context, req cashregisterdomain.OpenShiftRequest) (cashregisterdomain.Shift, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return cashregisterdomain.Shift{}, cashregisterdomain.ErrInvalidOrganization
	}
	actorID, ok := orgcontext.ActorIDFromContext(ctx)
	if !ok || actorID == 0 {
		return cashregisterdomain.Shift{}, cashregisterdomain.ErrInvalidActor
	}
	if req.OpeningCash < 0 {
		return cashregisterdomain.Shift{}, cashregisterdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	shift := cashregisterdomain.Shift{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		OpenedBy:    actorID,
		Status:      cashregisterdomain.ShiftStatusOpen,
		OpeningCash: req.OpeningCash,
		OpenedAt:    now,
		Notes:       strings.TrimSpace(req.Notes),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var openCount int64
		if err := tx.Model(&cashregisterdomain.Shift{}).
			Where("org_id = ? AND opened_by = ? AND status = ?",
				orgID, actorID, cashregisterdomain.ShiftStatusOpen).
			Count(&openCount).Error; err != nil {
			return err
		}
		if openCount > 0 {
			return cashregisterdomain.ErrShiftAlreadyOpen
		}
		return tx.Create(&shift).Error
	}); err != nil {
		return cashregisterdomain.Shift{}, err
	}

	s.log.Info("shift opened",
		zap.String("shift_id", shift.ID.String()),
		zap.String("opened_by", actorID.String()),
		zap.Int64("opening_cash", req.OpeningCash),
	)

	return shift, nil
}

// RecordSale appends a sale to an open shift. Sales are immutable once
// written; corrections are compensating sales, not edits.
func (s *Service) RecordSale(ctx context.Context, req cashregisterdomain.RecordSaleRequest) (cashregisterdomain.Sale, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return cashregisterdomain.Sale{}, cashregisterdomain.ErrInvalidOrganization
	}

	shiftID, err := s.parseID(req.ShiftID)
	if err != nil {
		return cashregisterdomain.Sale{}, err
	}
	if req.Total <= 0 {
		return cashregisterdomain.Sale{}, cashregisterdomain.ErrInvalidAmount
	}

	method := cashregisterdomain.SaleMethod(strings.ToUpper(strings.TrimSpace(req.Method)))
	if method == "" {
		method = cashregisterdomain.SaleMethodCash
	}
	switch method {
	case cashregisterdomain.SaleMethodCash,
		cashregisterdomain.SaleMethodCard,
		cashregisterdomain.SaleMethodTransfer:
	default:
		return cashregisterdomain.Sale{}, cashregisterdomain.ErrInvalidMethod
	}

	now := s.clock.Now()
	sale := cashregisterdomain.Sale{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		ShiftID:    shiftID,
		Method:     method,
		Total:      req.Total,
		OccurredAt: now,
		CreatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shift, err := s.loadShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}
		if shift.Status != cashregisterdomain.ShiftStatusOpen {
			return cashregisterdomain.ErrShiftNotOpen
		}
		return tx.Create(&sale).Error
	})
	if err != nil {
		return cashregisterdomain.Sale{}, err
	}

	return sale, nil
}

// Close reconciles and seals a shift. Only the opener may close it, a shift
// closes exactly once, and every financial field is frozen afterwards. The
// sales window is [openedAt, now] at the moment of close.
func (s *Service) Close(ctx context.Context, req cashregisterdomain.CloseShiftRequest) (cashregisterdomain.Shift, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return cashregisterdomain.Shift{}, cashregisterdomain.ErrInvalidOrganization
	}
	actorID, ok := orgcontext.ActorIDFromContext(ctx)
	if !ok || actorID == 0 {
		return cashregisterdomain.Shift{}, cashregisterdomain.ErrInvalidActor
	}

	shiftID, err := s.parseID(req.ShiftID)
	if err != nil {
		return cashregisterdomain.Shift{}, err
	}
	if req.ActualCash < 0 {
		return cashregisterdomain.Shift{}, cashregisterdomain.ErrInvalidAmount
	}

	policy := s.policy.Get()

	var closed cashregisterdomain.Shift
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		shift, err := s.loadShift(ctx, tx, orgID, shiftID)
		if err != nil {
			return err
		}
		if shift.Status != cashregisterdomain.ShiftStatusOpen {
			return cashregisterdomain.ErrShiftNotOpen
		}
		if shift.OpenedBy != actorID {
			return cashregisterdomain.ErrNotOpener
		}

		now := s.clock.Now()

		var sales []cashregisterdomain.Sale
		if err := tx.
			Where("org_id = ? AND shift_id = ? AND occurred_at >= ? AND occurred_at <= ?",
				orgID, shift.ID, shift.OpenedAt, now).
			Order("occurred_at asc").
			Find(&sales).Error; err != nil {
			return err
		}

		rec, err := cashregisterdomain.Reconcile(
			shift.OpeningCash, sales, req.ActualCash, policy.CashDenomination,
		)
		if err != nil {
			return err
		}
		class := cashregisterdomain.ClassifyVariance(
			rec.Difference, policy.VarianceWarning, policy.VarianceCritical,
		)

		notes := shift.Notes
		if trimmed := strings.TrimSpace(req.Notes); trimmed != "" {
			notes = trimmed
		}

		res := tx.WithContext(ctx).Exec(
			`UPDATE register_shifts
			 SET status = ?, closed_at = ?, expected_cash = ?, actual_cash = ?,
			     difference = ?, total_sales = ?, sales_count = ?,
			     variance_class = ?, notes = ?, version = version + 1, updated_at = ?
			 WHERE org_id = ? AND id = ? AND version = ? AND status = ?`,
			cashregisterdomain.ShiftStatusClosed,
			now,
			rec.ExpectedCash,
			req.ActualCash,
			rec.Difference,
			rec.TotalSales,
			rec.SalesCount,
			class,
			notes,
			now,
			orgID,
			shift.ID,
			shift.Version,
			cashregisterdomain.ShiftStatusOpen,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return cashregisterdomain.ErrConcurrentUpdate
		}

		actual := req.ActualCash
		closed = *shift
		closed.Status = cashregisterdomain.ShiftStatusClosed
		closed.ClosedAt = &now
		closed.ExpectedCash = &rec.ExpectedCash
		closed.ActualCash = &actual
		closed.Difference = &rec.Difference
		closed.TotalSales = &rec.TotalSales
		closed.SalesCount = &rec.SalesCount
		closed.VarianceClass = class
		closed.Notes = notes
		closed.Version = shift.Version + 1
		closed.UpdatedAt = now
		return nil
	})
	if err != nil {
		return cashregisterdomain.Shift{}, err
	}

	s.log.Info("shift closed",
		zap.String("shift_id", closed.ID.String()),
		zap.Int64("expected_cash", *closed.ExpectedCash),
		zap.Int64("actual_cash", *closed.ActualCash),
		zap.Int64("difference", *closed.Difference),
		zap.String("variance_class", string(closed.VarianceClass)),
	)

	return closed, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (cashregisterdomain.Shift, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return cashregisterdomain.Shift{}, cashregisterdomain.ErrInvalidOrganization
	}

	shiftID, err := s.parseID(id)
	if err != nil {
		return cashregisterdomain.Shift{}, err
	}

	shift, err := s.shiftRepo.FindOne(ctx, &cashregisterdomain.Shift{ID: shiftID, OrgID: orgID})
	if err != nil {
		return cashregisterdomain.Shift{}, err
	}
	if shift == nil {
		return cashregisterdomain.Shift{}, cashregisterdomain.ErrShiftNotFound
	}

	return *shift, nil
}

func (s *Service) List(ctx context.Context, req cashregisterdomain.ListShiftsRequest) (cashregisterdomain.ListShiftsResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return cashregisterdomain.ListShiftsResponse{}, cashregisterdomain.ErrInvalidOrganization
	}

	filter := &cashregisterdomain.Shift{OrgID: orgID}

	if req.Status != "" {
		status := cashregisterdomain.ShiftStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
		switch status {
		case cashregisterdomain.ShiftStatusOpen, cashregisterdomain.ShiftStatusClosed:
			filter.Status = status
		default:
			return cashregisterdomain.ListShiftsResponse{}, cashregisterdomain.ErrInvalidStatus
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.shiftRepo.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{PageToken: req.PageToken, PageSize: pageSize}),
		option.WithSortBy("created_at", "desc", map[string]bool{"created_at": true}),
	)
	if err != nil {
		return cashregisterdomain.ListShiftsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(item *cashregisterdomain.Shift) string {
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

	shifts := make([]cashregisterdomain.Shift, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		shifts = append(shifts, *item)
	}

	resp := cashregisterdomain.ListShiftsResponse{Shifts: shifts}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) loadShift(ctx context.Context, tx *gorm.DB, orgID, shiftID snowflake.ID) (*cashregisterdomain.Shift, error) {
	var shift cashregisterdomain.Shift
	err := tx.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, shiftID).
		First(&shift).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cashregisterdomain.ErrShiftNotFound
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, cashregisterdomain.ErrInvalidShift
	}
	return id, nil
}
