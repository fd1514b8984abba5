package bridge

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const idHashPrefixLen = 8

var idPattern = regexp.MustCompile(`^[0-9]{1,20}-[0-9a-f]{8}$`)

// NewID builds a bridge id from the creation time and the payment hash:
// <unix millis>-<first 8 hex chars of paymentTxHash>. It is for human
// traceability only; uniqueness comes from conditional creation.
func NewID(createdAt time.Time, paymentTxHash string) string {
	h := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(paymentTxHash, "0x"), "0X"))
	if len(h) > idHashPrefixLen {
		h = h[:idHashPrefixLen]
	}
	return fmt.Sprintf("%d-%s", createdAt.UnixMilli(), h)
}

// ValidID reports whether id has the shape produced by NewID
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
