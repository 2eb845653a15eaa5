// Package domain defines the tenant subscription: its lifecycle state
// machine, period arithmetic, and the MRR / trial math applied at creation.
package domain

import (
	"context"
	"errors"
	"time"

	orgdomain "github.com/Girosmedia/tendo-app-sub002/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "TRIAL"
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusSuspended SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusCanceled  SubscriptionStatus = "CANCELED"
)

// Action is an explicit admin lifecycle action. Nothing transitions
// automatically; overdue periods stay until someone acts.
type Action string

const (
	ActionActivate Action = "ACTIVATE"
	ActionRenew    Action = "RENEW"
	ActionSuspend  Action = "SUSPEND"
	ActionCancel   Action = "CANCEL"
)

// Subscription is one per organization, created with the organization and
// never deleted. Canceled subscriptions are kept for history.
type Subscription struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"not null;uniqueIndex"`

	PlanID string             `gorm:"type:text;not null"`
	Status SubscriptionStatus `gorm:"type:text;not null"`

	CurrentPeriodStart time.Time  `gorm:"not null"`
	CurrentPeriodEnd   time.Time  `gorm:"not null"`
	TrialEndsAt        *time.Time `gorm:""`
	CanceledAt         *time.Time `gorm:""`

	MRR              int64             `gorm:"not null"`
	IsFounderPartner bool              `gorm:"not null;default:false"`
	DiscountPercent  int               `gorm:"not null;default:0"`
	Metadata         datatypes.JSONMap `gorm:"type:json"`

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// Transition applies a lifecycle action and returns the new snapshot. Pure:
// the caller persists the result and mirrors the org status in the same
// unit of work.
func Transition(sub Subscription, action Action, now time.Time) (Subscription, error) {
	next := sub
	switch action {
	case ActionActivate:
		next.Status = SubscriptionStatusActive
		next.CurrentPeriodStart = now
		next.CurrentPeriodEnd = now.AddDate(0, 1, 0)
		next.CanceledAt = nil
	case ActionRenew:
		if sub.Status == SubscriptionStatusCanceled {
			return Subscription{}, ErrRenewCanceled
		}
		// Renewing early extends from the current period end so no paid
		// time is lost; renewing late starts fresh from now.
		start := sub.CurrentPeriodEnd
		if now.After(start) {
			start = now
		}
		next.Status = SubscriptionStatusActive
		next.CurrentPeriodStart = start
		next.CurrentPeriodEnd = start.AddDate(0, 1, 0)
	case ActionSuspend:
		next.Status = SubscriptionStatusSuspended
	case ActionCancel:
		canceledAt := now
		next.Status = SubscriptionStatusCanceled
		next.CanceledAt = &canceledAt
	default:
		return Subscription{}, ErrInvalidAction
	}
	return next, nil
}

// OrgStatusFor maps the subscription state to the tenant's operational
// status. TRIAL tenants operate normally; canceled tenants are suspended
// rather than given a third state.
func OrgStatusFor(status SubscriptionStatus) orgdomain.OrganizationStatus {
	switch status {
	case SubscriptionStatusTrial, SubscriptionStatusActive:
		return orgdomain.OrganizationStatusActive
	default:
		return orgdomain.OrganizationStatusSuspended
	}
}

// CreationTerms are the policy-derived parameters fixed at signup.
type CreationTerms struct {
	TrialDays       int
	DiscountPercent int
	MRR             int64
}

// ComputeCreationTerms derives trial length, discount, and MRR from the
// base plan price and the founder program switches.
func ComputeCreationTerms(basePlanPrice int64, trialDays int, founderEnabled bool, founderTrialDays, founderDiscountPercent int) CreationTerms {
	terms := CreationTerms{TrialDays: trialDays}
	if founderEnabled {
		terms.TrialDays = founderTrialDays
		discount := founderDiscountPercent
		if discount < 0 {
			discount = 0
		}
		if discount > 100 {
			discount = 100
		}
		terms.DiscountPercent = discount
	}

	terms.MRR = decimal.NewFromInt(basePlanPrice).
		Mul(decimal.NewFromInt(int64(100 - terms.DiscountPercent))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	return terms
}

type CreateSubscriptionRequest struct {
	PlanID        string `json:"plan_id"`
	BasePlanPrice int64  `json:"base_plan_price"`
}

type TransitionRequest struct {
	Action Action `json:"action"`
}

// TransitionResult pairs the new snapshot with the org status the caller
// mirrored alongside it.
type TransitionResult struct {
	Subscription Subscription                 `json:"subscription"`
	OrgStatus    orgdomain.OrganizationStatus `json:"org_status"`
}

type Service interface {
	Create(ctx context.Context, req CreateSubscriptionRequest) (Subscription, error)
	Get(ctx context.Context) (Subscription, error)
	Transition(ctx context.Context, req TransitionRequest) (TransitionResult, error)
}

var (
	ErrInvalidPlan          = errors.New("invalid_plan")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidAction        = errors.New("invalid_action")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrSubscriptionExists   = errors.New("subscription_exists")
	ErrRenewCanceled        = errors.New("renew_canceled_subscription")
	ErrConcurrentUpdate     = errors.New("concurrent_update")
	ErrInvalidOrganization  = errors.New("invalid_organization")
)
