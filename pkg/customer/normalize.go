package customer

import (
	"strconv"
	"strings"
)

// normalizedPayload is Payload after every facet has been put through its
// normalizer. Normalizers are idempotent: Normalize(Normalize(x)) =
// Normalize(x) (§8 round-trip law).
type normalizedPayload struct {
	name          string
	phone         string
	email         string
	address       string
	tin           string
	cac           string
	sourceSystem  string
	sourceLocalID string
}

var businessSuffixes = []string{
	" limited", " ltd", " plc", " inc", " incorporated", " llc", " corp", " corporation", " company", " co",
}

// normalizeName lowercases, collapses whitespace, strips punctuation, and
// strips trailing business suffixes (§4.4).
func normalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = stripPunctuation(s)
	s = collapseWhitespace(s)
	for {
		trimmed := false
		for _, suffix := range businessSuffixes {
			if strings.HasSuffix(s, suffix) {
				s = strings.TrimSuffix(s, suffix)
				s = strings.TrimSpace(s)
				trimmed = true
			}
		}
		if !trimmed {
			break
		}
	}
	return s
}

func stripPunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// normalizePhone parses to E.164 with default region NG (§4.4). Numbers
// already bearing a country code are passed through with non-digits
// stripped; 11-digit local numbers have their leading 0 replaced with
// +234; 10-digit numbers are prefixed with +234 directly.
func normalizePhone(phone string) string {
	digits := onlyDigits(phone)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return "+" + digits
	}
	switch {
	case strings.HasPrefix(digits, "234") && len(digits) == 13:
		return "+" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return "+234" + digits[1:]
	case len(digits) == 10:
		return "+234" + digits
	default:
		return "+" + digits
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// last10 returns the last 10 digits of a normalized phone number, used for
// the "last-10-digits equal" similarity fallback (§4.4).
func last10(phone string) string {
	digits := onlyDigits(phone)
	if len(digits) <= 10 {
		return digits
	}
	return digits[len(digits)-10:]
}

// normalizeEmail lowercases and trims (§4.4).
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var addressSuffixReplacements = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"boulevard": "blvd",
	"road":      "rd",
	"close":     "cl",
	"crescent":  "cres",
	"drive":     "dr",
	"lane":      "ln",
}

// normalizeAddress lowercases, collapses whitespace, and canonicalizes
// common street-suffix words (§4.4).
func normalizeAddress(address string) string {
	s := strings.ToLower(strings.TrimSpace(address))
	s = collapseWhitespace(s)
	words := strings.Fields(s)
	for i, w := range words {
		trimmed := strings.TrimRight(w, ",.")
		if replacement, ok := addressSuffixReplacements[trimmed]; ok {
			words[i] = replacement
		}
	}
	return strings.Join(words, " ")
}

// normalizeTIN renders digits-only as a 10-digit or 14-digit (with
// trailing -XXXX branch suffix) format (§4.4).
func normalizeTIN(tin string) string {
	digits := onlyDigits(tin)
	switch len(digits) {
	case 10:
		return digits
	case 14:
		return digits[:10] + "-" + digits[10:]
	default:
		return digits
	}
}

// normalizeCAC uppercases and prefixes RC if missing (§4.4).
func normalizeCAC(cac string) string {
	s := strings.ToUpper(strings.TrimSpace(cac))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "RC") {
		return s
	}
	if _, err := strconv.Atoi(s); err == nil {
		return "RC" + s
	}
	return s
}

// normalize applies every facet normalizer to p.
func normalize(p Payload) normalizedPayload {
	return normalizedPayload{
		name:          normalizeName(p.Name),
		phone:         normalizePhone(p.Phone),
		email:         normalizeEmail(p.Email),
		address:       normalizeAddress(p.Address),
		tin:           normalizeTIN(p.TIN),
		cac:           normalizeCAC(p.CAC),
		sourceSystem:  p.SourceSystem,
		sourceLocalID: p.SourceLocalID,
	}
}
