// Package enrich augments leads with data from external registries.
package enrich

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/config"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/fetcher"
	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

// DebtInfo is the aggregated result of a debt registry lookup.
type DebtInfo struct {
	Amount   float64
	Type     string
	Creditor string
	Count    int
}

// Sources performs the five registry lookups for a single lead. All calls
// share one fetcher.Client so the concurrency and rate caps apply globally.
type Sources struct {
	client *fetcher.Client
	urls   config.SourcesConfig
}

// NewSources wires the registry endpoints to a shared client.
func NewSources(client *fetcher.Client, urls config.SourcesConfig) *Sources {
	return &Sources{client: client, urls: urls}
}

type debtSearchResponse struct {
	Result []struct {
		DebtSum  float64 `json:"debt_sum"`
		DebtType string  `json:"debt_type"`
		Creditor string  `json:"creditor"`
	} `json:"result"`
}

// DebtSearch queries the enforcement registry for open debts. Lookup is by
// tax ID when present, otherwise by name and date of birth.
func (s *Sources) DebtSearch(ctx context.Context, inn, fio, dob string) (DebtInfo, error) {
	params := url.Values{}
	if inn != "" {
		params.Set("inn", inn)
	} else {
		params.Set("fio", fio)
		params.Set("dob", dob)
	}

	var resp debtSearchResponse
	if err := s.client.GetJSON(ctx, s.urls.FSSPBaseURL+"/api/search", params, &resp); err != nil {
		return DebtInfo{}, eris.Wrap(err, "enrich: debt search")
	}

	info := DebtInfo{Count: len(resp.Result)}
	if info.Count == 0 {
		return info, nil
	}

	// Total amount, dominant type, and the creditor behind the largest debt.
	var maxAmount float64
	types := map[string]bool{}
	for _, item := range resp.Result {
		info.Amount += item.DebtSum
		types[item.DebtType] = true
		if item.DebtSum >= maxAmount {
			maxAmount = item.DebtSum
			info.Creditor = item.Creditor
		}
	}

	switch {
	case types[model.DebtTypeBank] || types[model.DebtTypeMFO]:
		info.Type = model.DebtTypeBank
	case types[model.DebtTypeTax]:
		info.Type = model.DebtTypeTax
	case types[model.DebtTypeUtility]:
		info.Type = model.DebtTypeUtility
	default:
		info.Type = resp.Result[0].DebtType
	}
	if info.Type == "" {
		info.Type = model.DebtTypeUnknown
	}

	return info, nil
}

type bankruptcyResponse struct {
	Data []struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Bankruptcy reports whether the person has an active bankruptcy case.
func (s *Sources) Bankruptcy(ctx context.Context, inn string) (bool, error) {
	if inn == "" {
		return false, nil
	}

	var resp bankruptcyResponse
	params := url.Values{"inn": {inn}}
	if err := s.client.GetJSON(ctx, s.urls.FedresursURL+"/search", params, &resp); err != nil {
		return false, eris.Wrap(err, "enrich: bankruptcy lookup")
	}

	for _, item := range resp.Data {
		if item.Status == "active" {
			return true, nil
		}
	}
	return false, nil
}

type propertyResponse struct {
	Properties []struct {
		Type string `json:"type"`
	} `json:"properties"`
}

// Property reports whether the person owns registered real estate.
func (s *Sources) Property(ctx context.Context, inn string) (bool, error) {
	if inn == "" {
		return false, nil
	}

	var resp propertyResponse
	params := url.Values{"inn": {inn}}
	if err := s.client.GetJSON(ctx, s.urls.RosreestrURL+"/property", params, &resp); err != nil {
		return false, eris.Wrap(err, "enrich: property lookup")
	}

	return len(resp.Properties) > 0, nil
}

type courtResponse struct {
	Results []struct {
		Type   string `json:"type"`
		Status string `json:"status"`
	} `json:"results"`
}

// CourtOrders reports whether an active court order exists against the
// person. The registry is searched by abbreviated name, "Last F." or
// "Last F.P."; a name with fewer than two tokens cannot form a query.
func (s *Sources) CourtOrders(ctx context.Context, fio string) (bool, error) {
	query := abbreviateFIO(fio)
	if query == "" {
		return false, nil
	}

	var resp courtResponse
	params := url.Values{
		"query": {query},
		"type":  {"individual"},
	}
	if err := s.client.GetJSON(ctx, s.urls.CourtAPIURL+"/search", params, &resp); err != nil {
		return false, eris.Wrap(err, "enrich: court lookup")
	}

	for _, item := range resp.Results {
		if item.Type == "court_order" && item.Status == "active" {
			return true, nil
		}
	}
	return false, nil
}

type innStatusResponse struct {
	Status string `json:"status"`
}

// INNStatus reports whether the tax ID is active. This lookup fails open:
// on any error the lead is treated as active so a registry outage does not
// zero out the whole batch via the inactive-ID penalty.
func (s *Sources) INNStatus(ctx context.Context, inn string) (bool, error) {
	if inn == "" {
		return true, nil
	}

	var resp innStatusResponse
	params := url.Values{"inn": {inn}}
	if err := s.client.GetJSON(ctx, s.urls.TaxAPIURL+"/inn.do", params, &resp); err != nil {
		return true, eris.Wrap(err, "enrich: tax id lookup")
	}

	return resp.Status == "active", nil
}

// abbreviateFIO turns "Иванов Иван Иванович" into "Иванов И.И." and a
// two-token name into "Иванов И.". Returns "" for anything shorter.
func abbreviateFIO(fio string) string {
	parts := strings.Fields(fio)
	if len(parts) < 2 {
		return ""
	}

	if len(parts) > 3 {
		parts = parts[:3]
	}

	var b strings.Builder
	b.WriteString(parts[0])
	b.WriteByte(' ')
	for _, p := range parts[1:] {
		b.WriteString(string([]rune(p)[:1]))
		b.WriteByte('.')
	}
	return b.String()
}
