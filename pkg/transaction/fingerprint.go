package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ExactFingerprint is the duplicate-detection exact key: (tenant, source
// system, identifier) (§4.3.2).
func (u Universal) ExactFingerprint() string {
	return fmt.Sprintf("%s|%s|%s", u.TenantID, u.Provenance.SourceSystem, u.ID)
}

// FuzzyFingerprint buckets (tenant, rounded amount, counterparty, time
// bucket) for the fuzzy duplicate check, whose window is profile-dependent
// and applied by the caller (§4.3.2).
func (u Universal) FuzzyFingerprint(bucket time.Duration) string {
	amountRounded := u.Amount.Round(0).String()
	bucketIdx := u.Timestamp.Unix() / int64(bucket.Seconds())
	counterparty := counterpartyHash(u)
	return fmt.Sprintf("%s|%s|%s|%d", u.TenantID, amountRounded, counterparty, bucketIdx)
}

func counterpartyHash(u Universal) string {
	var key string
	switch m := u.Metadata.(type) {
	case *BankingMetadata:
		key = m.AccountNumber + m.BankReference
	case *POSMetadata:
		key = m.TerminalID
	case *CRMMetadata:
		key = m.AccountName
	default:
		key = u.AccountID
	}
	if key == "" {
		key = u.ExternalRef
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}
