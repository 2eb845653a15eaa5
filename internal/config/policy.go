package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Policy is the operational policy of the financial engine: the physical
// cash denomination registers round to, advisory variance thresholds for
// shift closes, and the subscription trial / founder program parameters.
type Policy struct {
	CashDenomination int64 `mapstructure:"cashDenomination"`

	// Variance classification thresholds, absolute minor units.
	// Advisory only: a close is never blocked by its variance.
	VarianceWarning  int64 `mapstructure:"varianceWarning"`
	VarianceCritical int64 `mapstructure:"varianceCritical"`

	TrialDays              int  `mapstructure:"trialDays"`
	FounderProgramEnabled  bool `mapstructure:"founderProgramEnabled"`
	FounderTrialDays       int  `mapstructure:"founderTrialDays"`
	FounderDiscountPercent int  `mapstructure:"founderDiscountPercent"`
}

func DefaultPolicy() Policy {
	return Policy{
		CashDenomination:       50,
		VarianceWarning:        1_000,
		VarianceCritical:       10_000,
		TrialDays:              14,
		FounderProgramEnabled:  false,
		FounderTrialDays:       90,
		FounderDiscountPercent: 50,
	}
}

// PolicyHolder keeps the current policy behind an atomic.Value so readers
// never block while the file watcher swaps in a new version.
type PolicyHolder struct {
	current atomic.Value // holds Policy
}

func NewPolicyHolder(cfg Config) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("tendo")
	v.SetConfigType("yml")
	if cfg.PolicyPath != "" {
		v.AddConfigPath(cfg.PolicyPath)
	}
	v.AddConfigPath("/etc/tendo")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TENDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.cashDenomination", defaults.CashDenomination)
	v.SetDefault("policy.varianceWarning", defaults.VarianceWarning)
	v.SetDefault("policy.varianceCritical", defaults.VarianceCritical)
	v.SetDefault("policy.trialDays", defaults.TrialDays)
	v.SetDefault("policy.founderProgramEnabled", defaults.FounderProgramEnabled)
	v.SetDefault("policy.founderTrialDays", defaults.FounderTrialDays)
	v.SetDefault("policy.founderDiscountPercent", defaults.FounderDiscountPercent)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy Policy
	if err := v.UnmarshalKey("policy", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.UnmarshalKey("policy", &updated); err != nil {
			log.Printf("[policy] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder returns a holder pinned to the given policy.
// Used by tests and by callers that do not want file watching.
func NewStaticPolicyHolder(policy Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func validatePolicy(policy Policy) error {
	if policy.CashDenomination <= 0 {
		return errors.New("policy.cashDenomination must be positive")
	}
	if policy.TrialDays < 0 || policy.FounderTrialDays < 0 {
		return errors.New("policy trial days cannot be negative")
	}
	if policy.FounderDiscountPercent < 0 || policy.FounderDiscountPercent > 100 {
		return errors.New("policy.founderDiscountPercent must be within [0, 100]")
	}
	return nil
}
