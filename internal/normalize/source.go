// Package normalize turns raw per-source CSV rows into deduplicated,
// canonical lead records.
package normalize

import "strings"

// SourceLeads is the fallback source when no filename keyword matches.
const SourceLeads = "leads"

// sourceKeywords maps filename substrings to source identifiers. Order
// matters: the first match wins.
var sourceKeywords = []struct {
	keyword string
	source  string
}{
	{"fns", "fns"},
	{"налог", "fns"},
	{"gosuslugi", "gosuslugi"},
	{"госуслуги", "gosuslugi"},
	{"delivery", "delivery"},
	{"еда", "delivery"},
	{"доставка", "delivery"},
	{"bank", "bank"},
	{"банк", "bank"},
	{"insurance", "insurance"},
	{"страхов", "insurance"},
	{"mfo", "mfo"},
	{"мфо", "mfo"},
}

// DetectSource identifies the upstream source of a file by its name.
func DetectSource(filename string) string {
	lower := strings.ToLower(filename)
	for _, kw := range sourceKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.source
		}
	}
	return SourceLeads
}

// columnMaps renames source-specific CSV headers to canonical field names.
// Headers absent from a source's map pass through lower-cased, which covers
// files that already use canonical names.
var columnMaps = map[string]map[string]string{
	SourceLeads: {
		"ФИО":           "fio",
		"Телефон":       "phone",
		"Дата согласия": "created_at",
		"Email":         "email",
		"Источник":      "tags",
	},
	"fns": {
		"ИНН":           "inn",
		"ФИО":           "fio",
		"Телефон":       "phone",
		"Дата рождения": "dob",
	},
	"gosuslugi": {
		"ИНН":     "inn",
		"ФИО":     "fio",
		"Адрес":   "address",
		"Телефон": "phone",
		"Email":   "email",
		"Регион":  "tags",
	},
	"delivery": {
		"Телефон":         "phone",
		"Адрес":           "address",
		"Имя":             "fio",
		"Последний заказ": "created_at",
	},
	"bank": {
		"ИНН":           "inn",
		"ФИО":           "fio",
		"Телефон":       "phone",
		"Email":         "email",
		"Сумма кредита": "debt_amount",
		"Статус":        "tags",
	},
	"insurance": {
		"ФИО":             "fio",
		"Телефон":         "phone",
		"Дата рождения":   "dob",
		"Адрес":           "address",
		"Тип полиса":      "tags",
		"Сумма страховки": "debt_amount",
	},
	"mfo": {
		"ФИО":              "fio",
		"Телефон":          "phone",
		"ИНН":              "inn",
		"Сумма займа":      "debt_amount",
		"Дата займа":       "created_at",
		"Статус погашения": "tags",
		"Просрочка дней":   "debt_count",
	},
}

// MapHeader converts a raw CSV header row into canonical field names for
// the given source.
func MapHeader(source string, header []string) []string {
	rename := columnMaps[source]
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if canonical, ok := rename[h]; ok {
			out[i] = canonical
			continue
		}
		out[i] = strings.ToLower(h)
	}
	return out
}
