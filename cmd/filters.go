package main

import (
	"github.com/spf13/pflag"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

// addFilterFlags binds the campaign filter flags to a filters value that
// starts from the defaults.
func addFilterFlags(f *pflag.FlagSet, filters *model.ScoringFilters) {
	f.StringSliceVar(&filters.Regions, "regions", nil, "limit to leads whose address matches one of these regions")
	f.Float64Var(&filters.MinDebtAmount, "min-debt", filters.MinDebtAmount, "minimum total debt amount")
	f.BoolVar(&filters.ExcludeBankrupts, "exclude-bankrupts", filters.ExcludeBankrupts, "skip leads already in bankruptcy")
	f.BoolVar(&filters.ExcludeNoDebt, "exclude-no-debt", filters.ExcludeNoDebt, "skip leads without debts")
	f.BoolVar(&filters.OnlyWithProperty, "only-with-property", filters.OnlyWithProperty, "keep only leads with registered property")
	f.BoolVar(&filters.OnlyBankMFODebt, "only-bank-mfo", filters.OnlyBankMFODebt, "keep only leads with bank or MFO debt")
	f.BoolVar(&filters.OnlyCourtOrders, "only-court-orders", filters.OnlyCourtOrders, "keep only leads with an active court order")
	f.BoolVar(&filters.OnlyActiveINN, "only-active-inn", filters.OnlyActiveINN, "keep only leads with an active tax ID")
	f.Float64Var(&filters.MinScoreThreshold, "min-score", filters.MinScoreThreshold, "score threshold for target selection")
}

// configFilters returns the default filters with thresholds taken from the
// loaded configuration.
func configFilters() model.ScoringFilters {
	filters := model.DefaultFilters()
	if cfg != nil {
		filters.MinDebtAmount = cfg.Scoring.MinDebtAmount
		filters.MinScoreThreshold = cfg.Scoring.MinScoreThreshold
	}
	return filters
}

// applyScoringConfig fills the configured thresholds into filters for flags
// the user left untouched. Flags register before the config loads, so their
// defaults cannot come from it.
func applyScoringConfig(flags *pflag.FlagSet, filters *model.ScoringFilters) {
	if cfg == nil {
		return
	}
	if !flags.Changed("min-debt") {
		filters.MinDebtAmount = cfg.Scoring.MinDebtAmount
	}
	if !flags.Changed("min-score") {
		filters.MinScoreThreshold = cfg.Scoring.MinScoreThreshold
	}
}
