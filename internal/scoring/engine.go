// Package scoring assigns scores, cohorts, and target flags to enriched leads.
package scoring

import (
	"fmt"
	"strings"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

// Result is the outcome of scoring a single lead.
type Result struct {
	Score    float64
	Reasons  []string
	Group    string
	IsTarget bool
}

// Cohort names, most specific first.
const (
	GroupHighDebtRecentCourt = "high_debt_recent_court"
	GroupBankOnlyNoProperty  = "bank_only_no_property"
	GroupHighScore           = "high_score"
	GroupMediumScore         = "medium_score"
	GroupLowScore            = "low_score"
)

// Score evaluates one lead against the fixed rule table. The rules run in a
// fixed order so the reason list is deterministic; only the first three
// reasons are kept. The raw total is clamped to [0, 100] after all rules.
func Score(lead model.Lead, filters model.ScoringFilters) Result {
	var (
		score   float64
		reasons []string
	)
	add := func(points float64, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	debt := lead.DebtAmountValue()
	bankDebt := lead.DebtType == model.DebtTypeBank || lead.DebtType == model.DebtTypeMFO

	if debt > 250000 {
		add(30, fmt.Sprintf("Долг %.0f руб.", debt))
	}
	if bankDebt {
		add(20, "Долг перед банком/МФО")
	}
	if !lead.HasProperty {
		add(10, "Нет недвижимости")
	}
	if lead.HasCourtOrder {
		add(15, "Судебный приказ")
	}
	if !lead.IsBankrupt {
		add(10, "Не банкрот")
	}
	if lead.INNActive {
		add(5, "Активный ИНН")
	}
	if lead.DebtCount >= 2 {
		add(5, fmt.Sprintf("Множественные долги (%d)", lead.DebtCount))
	}
	if debt > 0 && debt < 100000 {
		add(-15, "Малый долг")
	}
	if lead.DebtType == model.DebtTypeTax || lead.DebtType == model.DebtTypeUtility {
		add(-10, "Только налоги/ЖКХ")
	}
	if lead.IsBankrupt {
		add(-100, "Банкрот")
	}
	if !lead.INNActive {
		add(-100, "Неактивный ИНН")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}

	return Result{
		Score:    score,
		Reasons:  reasons,
		Group:    assignGroup(lead, score),
		IsTarget: score >= filters.MinScoreThreshold && PassesFilters(lead, filters),
	}
}

// assignGroup picks the cohort for a scored lead, most specific rule first.
func assignGroup(lead model.Lead, score float64) string {
	debt := lead.DebtAmountValue()
	bankDebt := lead.DebtType == model.DebtTypeBank || lead.DebtType == model.DebtTypeMFO

	switch {
	case debt > 500000 && lead.HasCourtOrder:
		return GroupHighDebtRecentCourt
	case bankDebt && !lead.HasProperty:
		return GroupBankOnlyNoProperty
	case score >= 70:
		return GroupHighScore
	case score >= 50:
		return GroupMediumScore
	default:
		return GroupLowScore
	}
}

// PassesFilters applies the campaign filters with AND semantics: every
// enabled filter must hold for the lead to stay in.
func PassesFilters(lead model.Lead, filters model.ScoringFilters) bool {
	if len(filters.Regions) > 0 && !matchesRegion(lead, filters.Regions) {
		return false
	}
	if filters.MinDebtAmount > 0 && lead.DebtAmountValue() < filters.MinDebtAmount {
		return false
	}
	if filters.ExcludeBankrupts && lead.IsBankrupt {
		return false
	}
	if filters.ExcludeNoDebt && lead.DebtAmountValue() <= 0 {
		return false
	}
	if filters.OnlyWithProperty && !lead.HasProperty {
		return false
	}
	if filters.OnlyBankMFODebt &&
		lead.DebtType != model.DebtTypeBank && lead.DebtType != model.DebtTypeMFO {
		return false
	}
	if filters.OnlyCourtOrders && !lead.HasCourtOrder {
		return false
	}
	if filters.OnlyActiveINN && !lead.INNActive {
		return false
	}
	return true
}

func matchesRegion(lead model.Lead, regions []string) bool {
	addr := strings.ToLower(lead.Address)
	for _, region := range regions {
		if region != "" && strings.Contains(addr, strings.ToLower(region)) {
			return true
		}
	}
	return false
}
