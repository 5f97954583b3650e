package utils

import (
	"crypto/rand" // secure random number generation for the receipt suffix
	"fmt"
	"math/big"
	"time"
)

// ReceiptNumber generates a payment receipt identifier of the form
// PAY-<tenant>-<yyyymmdd>-<4 digits>.  The tenant part is the tenant id
// folded to three digits.  The suffix is random; uniqueness is not
// guaranteed and callers must not rely on it as a key.
func ReceiptNumber(tenantID uint64, now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	suffix := int64(0)
	if err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("PAY-%03d-%s-%04d", tenantID%1000, now.UTC().Format("20060102"), 1000+suffix)
}

// DurationMinutes returns the span between entry and exit rounded up to
// whole minutes.  Exact whole-minute spans do not round up.
func DurationMinutes(entry, exit time.Time) int64 {
	d := exit.Sub(entry)
	if d <= 0 {
		return 0
	}
	mins := int64(d / time.Minute)
	if d%time.Minute > 0 {
		mins++
	}
	return mins
}
