package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContentFields is the raw, caller-supplied content checked by ValidateContent.
// Price and Area accept a native number or a locale-formatted string.
type ContentFields struct {
	Type        string
	Title       string
	Description string
	Price       any
	Area        any
}

// ValidateContent returns the first violated content rule, or nil.
// Order: type, title, description length, price, area.
func ValidateContent(f ContentFields) error {
	if strings.TrimSpace(f.Type) == "" {
		return invalid("type", "type is required")
	}
	if strings.TrimSpace(f.Title) == "" {
		return invalid("title", "title is required")
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Description)) < MinDescriptionLength {
		return invalid("description", "description must be at least %d characters", MinDescriptionLength)
	}
	if price := CoerceNumber(f.Price); !finite(price) || price <= 0 {
		return invalid("price", "price must be a positive number")
	}
	if area := CoerceNumber(f.Area); !finite(area) || area <= MinArea {
		return invalid("area", "area must be greater than %g", MinArea)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// CoerceNumber converts a native number or a formatted numeric string to float64.
// Anything it cannot read yields NaN.
func CoerceNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		return parseLocaleNumber(n)
	default:
		return math.NaN()
	}
}

// parseLocaleNumber reads numbers written with "." or "," as thousands or decimal
// separators: "5.500.000", "1.234,5", "1,234.5", "12,5".
func parseLocaleNumber(s string) float64 {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	sign := ""
	if s != "" && (s[0] == '-' || s[0] == '+') {
		sign, s = s[:1], s[1:]
	}
	if s == "" {
		return math.NaN()
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	var whole, frac string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		dec, thousands := byte('.'), byte(',')
		idx := lastDot
		if lastComma > lastDot {
			dec, thousands, idx = ',', '.', lastComma
		}
		if strings.IndexByte(s[:idx], dec) >= 0 {
			return math.NaN()
		}
		grouped, ok := ungroup(s[:idx], thousands)
		if !ok {
			return math.NaN()
		}
		whole, frac = grouped, s[idx+1:]
	case lastDot >= 0 || lastComma >= 0:
		sep := byte('.')
		idx := lastDot
		if lastComma >= 0 {
			sep, idx = ',', lastComma
		}
		grouped, ok := ungroup(s, sep)
		switch {
		case strings.Count(s, string(sep)) > 1:
			if !ok {
				return math.NaN()
			}
			whole = grouped
		case len(s)-idx-1 == 3 && ok:
			whole = grouped
		default:
			whole, frac = s[:idx], s[idx+1:]
		}
	default:
		whole = s
	}

	if whole == "" && frac == "" {
		return math.NaN()
	}
	if !allDigits(whole) || !allDigits(frac) {
		return math.NaN()
	}
	if whole == "" {
		whole = "0"
	}
	text := sign + whole
	if frac != "" {
		text += "." + frac
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ungroup removes thousands separators when s is a well-formed grouping:
// 1-3 leading digits followed by groups of exactly three.
func ungroup(s string, sep byte) (string, bool) {
	parts := strings.Split(s, string(sep))
	if len(parts) < 2 {
		return s, false
	}
	for i, p := range parts {
		if !allDigits(p) || p == "" {
			return "", false
		}
		if i == 0 && len(p) > 3 {
			return "", false
		}
		if i > 0 && len(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
