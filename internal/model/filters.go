package model

// ScoringFilters selects which enriched leads are eligible for targeting.
// All active predicates must pass (AND semantics); a lead failing any of
// them is skipped for the whole scoring pass.
type ScoringFilters struct {
	Regions           []string `json:"regions,omitempty" mapstructure:"regions"`
	MinDebtAmount     float64  `json:"min_debt_amount" mapstructure:"min_debt_amount"`
	ExcludeBankrupts  bool     `json:"exclude_bankrupts" mapstructure:"exclude_bankrupts"`
	ExcludeNoDebt     bool     `json:"exclude_no_debt" mapstructure:"exclude_no_debt"`
	OnlyWithProperty  bool     `json:"only_with_property" mapstructure:"only_with_property"`
	OnlyBankMFODebt   bool     `json:"only_bank_mfo_debt" mapstructure:"only_bank_mfo_debt"`
	OnlyCourtOrders   bool     `json:"only_recent_court_orders" mapstructure:"only_recent_court_orders"`
	OnlyActiveINN     bool     `json:"only_active_inn" mapstructure:"only_active_inn"`
	MinScoreThreshold float64  `json:"min_score_threshold" mapstructure:"min_score_threshold"`
}

// DefaultFilters mirrors the defaults of the scoring request form.
func DefaultFilters() ScoringFilters {
	return ScoringFilters{
		MinDebtAmount:     250000,
		ExcludeBankrupts:  true,
		ExcludeNoDebt:     true,
		OnlyActiveINN:     true,
		MinScoreThreshold: 50,
	}
}
