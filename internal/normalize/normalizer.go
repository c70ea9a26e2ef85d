package normalize

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AlexAvdeev1986/bankruptcy-scoring/internal/model"
)

var (
	nonDigitRe   = regexp.MustCompile(`[^\d]`)
	innRe        = regexp.MustCompile(`^\d{10,12}$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizePhone reduces a raw phone to +7XXXXXXXXXX. Input that cannot be
// brought to that shape yields an empty string, not an error.
func NormalizePhone(raw string) string {
	digits := nonDigitRe.ReplaceAllString(raw, "")

	if strings.HasPrefix(digits, "8") && len(digits) == 11 {
		digits = "7" + digits[1:]
	}
	if strings.HasPrefix(digits, "7") && len(digits) == 11 {
		return "+" + digits
	}
	if len(digits) == 10 {
		return "+7" + digits
	}
	return ""
}

// NormalizeFIO canonicalizes a full name to Title-Case
// "Last First Patronymic". Names with fewer than two tokens are title-cased
// as-is. Tokens beyond the third are dropped.
func NormalizeFIO(raw string) string {
	clean := whitespaceRe.ReplaceAllString(strings.TrimSpace(raw), " ")
	if clean == "" {
		return ""
	}

	title := cases.Title(language.Russian)
	parts := strings.Split(clean, " ")
	if len(parts) < 2 {
		return title.String(clean)
	}

	out := make([]string, 0, 3)
	for i, p := range parts {
		if i == 3 {
			break
		}
		out = append(out, title.String(p))
	}
	return strings.Join(out, " ")
}

// ValidINN reports whether a tax ID has the expected 10-12 digit shape.
func ValidINN(inn string) bool {
	return innRe.MatchString(inn)
}

// createdAtLayouts covers the date formats seen across the source files.
var createdAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006",
}

func parseCreatedAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// BuildLead normalizes one mapped CSV row into a Lead. It returns false
// when the row has no usable name and must be discarded.
func BuildLead(fields map[string]string, source string) (model.Lead, bool) {
	fio := NormalizeFIO(fields["fio"])
	if fio == "" {
		return model.Lead{}, false
	}

	l := model.Lead{
		FIO:       fio,
		Phone:     NormalizePhone(fields["phone"]),
		INN:       strings.TrimSpace(fields["inn"]),
		DOB:       strings.TrimSpace(fields["dob"]),
		Address:   strings.TrimSpace(fields["address"]),
		Source:    source,
		Tags:      strings.TrimSpace(fields["tags"]),
		Email:     strings.TrimSpace(fields["email"]),
		CreatedAt: parseCreatedAt(fields["created_at"]),
		INNActive: true,
	}
	l.ID = model.LeadID(l.FIO, l.Phone, l.INN)
	return l, true
}
