package customer

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Weights are the fixed per-factor similarity weights from §4.4; they sum
// to 1.0.
const (
	weightName       = 0.30
	weightPhone      = 0.25
	weightEmail      = 0.25
	weightBusinessID = 0.20
)

// multiFactorBoost is applied when at least two non-zero factor scores
// contribute, capped at 1.0 (§4.4).
const multiFactorBoost = 1.1

// ratio mirrors Python's difflib.SequenceMatcher.ratio(): 1.0 for
// identical strings, decreasing toward 0 as edit distance grows relative
// to the longer string's length. Levenshtein distance over that length gives the
// same shape of score SequenceMatcher produces for short, name-like
// strings without requiring the longest-matching-block machinery.
func ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// jaccardWords returns the Jaccard index of a and b's whitespace-split
// word sets.
func jaccardWords(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.Fields(s) {
		out[w] = struct{}{}
	}
	return out
}

// nameSimilarity scores a candidate's name set against an incoming normalized
// name: over all pairs, the best blend of 0.7 × sequence-ratio and
// 0.3 × word-overlap Jaccard, capped at 1.0 (§4.4).
func nameSimilarity(incoming string, candidateNames map[string]struct{}) float64 {
	if incoming == "" || len(candidateNames) == 0 {
		return 0
	}
	best := 0.0
	for name := range candidateNames {
		r := ratio(incoming, name)
		j := jaccardWords(incoming, name)
		combined := r*0.7 + j*0.3
		if combined > best {
			best = combined
		}
	}
	if best > 1.0 {
		best = 1.0
	}
	return best
}

// phoneSimilarity: 1.0 exact match, 0.95 last-10-digits match, else 0.
func phoneSimilarity(incoming string, candidatePhones map[string]struct{}) float64 {
	if incoming == "" {
		return 0
	}
	best := 0.0
	incomingLast10 := last10(incoming)
	for phone := range candidatePhones {
		if phone == incoming {
			return 1.0
		}
		if last10(phone) == incomingLast10 && incomingLast10 != "" {
			best = 0.95
		}
	}
	return best
}

// emailSimilarity: 1.0 exact match, 0.8 x username-ratio for the same
// domain, else 0.
func emailSimilarity(incoming string, candidateEmails map[string]struct{}) float64 {
	if incoming == "" {
		return 0
	}
	incomingUser, incomingDomain := splitEmail(incoming)
	best := 0.0
	for email := range candidateEmails {
		if email == incoming {
			return 1.0
		}
		user, domain := splitEmail(email)
		if domain != "" && domain == incomingDomain {
			score := 0.8 * ratio(user, incomingUser)
			if score > best {
				best = score
			}
		}
	}
	return best
}

func splitEmail(email string) (user, domain string) {
	idx := strings.LastIndex(email, "@")
	if idx < 0 {
		return email, ""
	}
	return email[:idx], email[idx+1:]
}

// businessIDSimilarity: exact normalized match on either TIN or CAC scores
// 1.0, else 0.
func businessIDSimilarity(incomingTIN, incomingCAC string, candidateIDs map[string]string) float64 {
	if incomingTIN != "" && candidateIDs["TIN"] == incomingTIN {
		return 1.0
	}
	if incomingCAC != "" && candidateIDs["CAC"] == incomingCAC {
		return 1.0
	}
	return 0
}

// MatchScore is the weighted score of one candidate identity against an
// incoming normalized payload, along with the count of non-zero
// contributing factors (needed to decide the multi-factor boost).
type MatchScore struct {
	IdentityID    string
	Score         float64
	FactorsHit    int
}

// score weighs and boosts p against candidate per §4.4's formula.
func score(p normalizedPayload, candidate *Identity) MatchScore {
	nameScore := nameSimilarity(p.name, candidate.Names) * weightName
	phoneScore := phoneSimilarity(p.phone, candidate.Phones) * weightPhone
	emailScore := emailSimilarity(p.email, candidate.Emails) * weightEmail
	businessScore := businessIDSimilarity(p.tin, p.cac, candidate.BusinessIDs) * weightBusinessID

	total := nameScore + phoneScore + emailScore + businessScore

	factorsHit := 0
	for _, s := range []float64{nameScore, phoneScore, emailScore, businessScore} {
		if s > 0 {
			factorsHit++
		}
	}
	if factorsHit >= 2 {
		total *= multiFactorBoost
		if total > 1.0 {
			total = 1.0
		}
	}

	return MatchScore{IdentityID: candidate.ID, Score: total, FactorsHit: factorsHit}
}
