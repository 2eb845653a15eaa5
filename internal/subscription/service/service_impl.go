package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Girosmedia/tendo-app-sub002/internal/clock"
	"github.com/Girosmedia/tendo-app-sub002/internal/config"
	orgdomain "github.com/Girosmedia/tendo-app-sub002/internal/organization/domain"
	"github.com/Girosmedia/tendo-app-sub002/internal/orgcontext"
	subscriptiondomain "github.com/Girosmedia/tendo-app-sub002/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID  *snowflake.Node
	clock  clock.Clock
	policy *config.PolicyHolder
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Policy *config.PolicyHolder
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:  p.GenID,
		clock:  p.Clock,
		policy: p.Policy,
	}
}

// Create provisions the organization's subscription at signup. Trial length,
// discount, and MRR are fixed here from the current policy; later policy
// changes do not retroactively reprice existing tenants.
func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidOrganization
	}

	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidPlan
	}
	if req.BasePlanPrice < 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidPrice
	}

	policy := s.policy.Get()
	terms := subscriptiondomain.ComputeCreationTerms(
		req.BasePlanPrice,
		policy.TrialDays,
		policy.FounderProgramEnabled,
		policy.FounderTrialDays,
		policy.FounderDiscountPercent,
	)

	now := s.clock.Now()
	status := subscriptiondomain.SubscriptionStatusActive
	var trialEndsAt *time.Time
	if terms.TrialDays > 0 {
		status = subscriptiondomain.SubscriptionStatusTrial
		t := now.AddDate(0, 0, terms.TrialDays)
		trialEndsAt = &t
	}

	sub := subscriptiondomain.Subscription{
		ID:                 s.genID.Generate(),
		OrgID:              orgID,
		PlanID:             planID,
		Status:             status,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		TrialEndsAt:        trialEndsAt,
		MRR:                terms.MRR,
		IsFounderPartner:   policy.FounderProgramEnabled,
		DiscountPercent:    terms.DiscountPercent,
		Metadata: datatypes.JSONMap{
			"base_plan_price": req.BasePlanPrice,
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&subscriptiondomain.Subscription{}).
			Where("org_id = ?", orgID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return subscriptiondomain.ErrSubscriptionExists
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		return s.mirrorOrgStatus(ctx, tx, orgID, subscriptiondomain.OrgStatusFor(sub.Status))
	}); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	s.log.Info("subscription created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan_id", planID),
		zap.String("status", string(sub.Status)),
		zap.Int64("mrr", sub.MRR),
		zap.Bool("founder_partner", sub.IsFounderPartner),
	)

	return sub, nil
}

func (s *Service) Get(ctx context.Context) (subscriptiondomain.Subscription, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidOrganization
	}

	var sub subscriptiondomain.Subscription
	err := s.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
		}
		return subscriptiondomain.Subscription{}, err
	}
	return sub, nil
}

// Transition applies an admin lifecycle action and mirrors the resulting
// operational status onto the organization row in the same transaction.
func (s *Service) Transition(ctx context.Context, req subscriptiondomain.TransitionRequest) (subscriptiondomain.TransitionResult, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return subscriptiondomain.TransitionResult{}, subscriptiondomain.ErrInvalidOrganization
	}

	action := subscriptiondomain.Action(strings.ToUpper(strings.TrimSpace(string(req.Action))))
	switch action {
	case subscriptiondomain.ActionActivate,
		subscriptiondomain.ActionRenew,
		subscriptiondomain.ActionSuspend,
		subscriptiondomain.ActionCancel:
	default:
		return subscriptiondomain.TransitionResult{}, subscriptiondomain.ErrInvalidAction
	}

	var result subscriptiondomain.TransitionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub subscriptiondomain.Subscription
		if err := tx.Where("org_id = ?", orgID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return subscriptiondomain.ErrSubscriptionNotFound
			}
			return err
		}

		now := s.clock.Now()
		next, err := subscriptiondomain.Transition(sub, action, now)
		if err != nil {
			return err
		}

		res := tx.WithContext(ctx).Exec(
			`UPDATE subscriptions
			 SET status = ?, current_period_start = ?, current_period_end = ?,
			     canceled_at = ?, version = version + 1, updated_at = ?
			 WHERE org_id = ? AND id = ? AND version = ?`,
			next.Status,
			next.CurrentPeriodStart,
			next.CurrentPeriodEnd,
			next.CanceledAt,
			now,
			orgID,
			sub.ID,
			sub.Version,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return subscriptiondomain.ErrConcurrentUpdate
		}

		orgStatus := subscriptiondomain.OrgStatusFor(next.Status)
		if err := s.mirrorOrgStatus(ctx, tx, orgID, orgStatus); err != nil {
			return err
		}

		next.Version = sub.Version + 1
		next.UpdatedAt = now
		result = subscriptiondomain.TransitionResult{
			Subscription: next,
			OrgStatus:    orgStatus,
		}
		return nil
	})
	if err != nil {
		return subscriptiondomain.TransitionResult{}, err
	}

	s.log.Info("subscription transitioned",
		zap.String("subscription_id", result.Subscription.ID.String()),
		zap.String("action", string(action)),
		zap.String("status", string(result.Subscription.Status)),
		zap.String("org_status", string(result.OrgStatus)),
	)

	return result, nil
}

func (s *Service) mirrorOrgStatus(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, status orgdomain.OrganizationStatus) error {
	return tx.WithContext(ctx).
		Model(&orgdomain.Organization{}).
		Where("id = ?", orgID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": s.clock.Now(),
		}).Error
}
