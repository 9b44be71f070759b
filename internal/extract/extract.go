// Package extract turns unstructured document text into invoice fields.
//
// Each field has an ordered list of rules. The first rule that matches
// anywhere in the text wins; within a rule the leftmost match is taken.
// Fields are resolved independently of each other.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"invoicescan/internal/model"
)

const (
	token     = `([A-Za-z0-9/\-]*[0-9][A-Za-z0-9/\-]*)`
	month     = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	numDate   = `\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4}`
	isoDate   = `\d{4}[/\-]\d{1,2}[/\-]\d{1,2}`
	monthDate = month + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`
	dayDate   = `\d{1,2}(?:st|nd|rd|th)?\s+` + month + `\.?,?\s+\d{4}`
	anyDate   = `(?:` + numDate + `|` + isoDate + `|` + monthDate + `|` + dayDate + `)`

	// label, then up to 20 non-digit characters with at most one line break
	// (OCR often puts a table value on the next line), then an amount that
	// is not followed by more digits or another separator
	amountTail = `[^\d\n]{0,20}?\n?[^\d\n]{0,20}?(\d[\d,]*(?:\.\d{1,2})?)(?:[^\d.,]|[.,](?:\D|$)|$)`
)

var invoiceNumberRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\binvoice\s*(?:no\b\.?|number\b|num\b\.?|#)\s*[:#.]?\s*` + token),
	regexp.MustCompile(`(?i)\b(INV-[A-Za-z0-9/\-]*[0-9][A-Za-z0-9/\-]*)`),
	regexp.MustCompile(`(?i)\binvoice\s*[:#]\s*` + token),
}

var invoiceDateRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:invoice\s+date|issue\s+date|date\s+of\s+issue)\s*[:\-]?\s*(` + anyDate + `)\b`),
	regexp.MustCompile(`\b(` + numDate + `)\b`),
	regexp.MustCompile(`\b(` + isoDate + `)\b`),
	regexp.MustCompile(`(?i)\b(` + monthDate + `)\b`),
	regexp.MustCompile(`(?i)\b(` + dayDate + `)\b`),
}

var totalAmountRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bgrand\s*total\b` + amountTail),
	regexp.MustCompile(`(?i)\b(?:total\s*amount\s*due|amount\s*due|balance\s*due|total\s*due)\b` + amountTail),
	regexp.MustCompile(`(?i)\btotal\s*amount\b` + amountTail),
	regexp.MustCompile(`(?i)\btotal\b` + amountTail),
	regexp.MustCompile(`(?i)\bbalance\b` + amountTail),
}

// Extract derives invoice fields from raw text. It is a pure function:
// malformed or empty input yields a value with every field absent.
func Extract(text string) model.InvoiceFields {
	var f model.InvoiceFields
	if strings.TrimSpace(text) == "" {
		return f
	}
	if v, ok := firstMatch(invoiceNumberRules, text, cleanToken); ok {
		f.InvoiceNumber = &v
	}
	if v, ok := firstMatch(invoiceDateRules, text, strings.TrimSpace); ok {
		f.InvoiceDate = &v
	}
	if v, ok := firstAmount(text); ok {
		f.TotalAmount = &v
	}
	return f
}

// firstMatch returns the first non-empty cleaned capture in rule order.
func firstMatch(rules []*regexp.Regexp, text string, clean func(string) string) (string, bool) {
	for _, re := range rules {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v := clean(m[1]); v != "" {
			return v, true
		}
	}
	return "", false
}

func firstAmount(text string) (decimal.Decimal, bool) {
	for _, re := range totalAmountRules {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if d, ok := ParseAmount(m[1]); ok {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

func cleanToken(s string) string {
	s = strings.Trim(s, "-/")
	if !strings.ContainsAny(s, "0123456789") {
		return ""
	}
	return s
}

// ParseAmount reads a money amount after dropping every character that is
// not a digit or a decimal point ("$1,250.00" -> 1250.00).
func ParseAmount(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimRight(b.String(), ".")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
