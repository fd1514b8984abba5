package bridge

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// USDCDecimals is the fixed-point scale of USDC on every supported chain
const USDCDecimals = 6

var (
	// ErrInvalidAmount is returned for malformed, non-positive or over-precise amounts
	ErrInvalidAmount = errors.New("invalid amount")

	amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// ParseAmount converts a human decimal string such as "25.00" into USDC base
// units. More than six significant fractional digits are rejected.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}

	scaled := d.Shift(USDCDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, USDCDecimals)
	}
	return scaled.BigInt(), nil
}

// RecipientBytes32 left-pads a 20-byte address into the 32-byte slot the
// burn call expects for mintRecipient.
func RecipientBytes32(addr common.Address) [32]byte {
	var out [32]byte
	copy(out[:], common.LeftPadBytes(addr.Bytes(), 32))
	return out
}
