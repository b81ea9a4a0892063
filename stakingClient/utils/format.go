package utils

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"cosmossdk.io/math"
)

// DefaultDisplayDigits is the number of fractional digits shown for token amounts.
const DefaultDisplayDigits = 4

// FormatDuration converts a duration to a human-readable string.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return fmt.Sprintf("-%s", FormatDuration(-d))
	}
	return d.String()
}

// FormatEras renders a number of eras with the wall-clock time they span.
func FormatEras(eras uint32, eraLength time.Duration) string {
	return fmt.Sprintf("%d eras (%s)", eras, FormatDuration(time.Duration(eras)*eraLength))
}

// AmountToHuman converts a planck amount into token units with at most
// digits fractional digits. Trailing zeros are dropped.
func AmountToHuman(amount math.Int, decimals uint8, digits int) string {
	if amount.IsNil() {
		return "0"
	}
	dec := math.LegacyNewDecFromBigIntWithPrec(amount.BigInt(), int64(decimals))
	if digits < 0 {
		digits = 0
	}
	if digits > int(decimals) {
		digits = int(decimals)
	}
	s := truncate(dec.String(), digits)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

// FormatAmount is AmountToHuman with the default digits and the token symbol.
func FormatAmount(amount math.Int, decimals uint8, token string) string {
	s := AmountToHuman(amount, decimals, DefaultDisplayDigits)
	if token == "" {
		return s
	}
	return s + " " + token
}

// AmountToMachine parses a decimal token amount into planck. Fractional
// digits beyond decimals are rejected.
func AmountToMachine(human string, decimals uint8) (math.Int, error) {
	human = strings.TrimSpace(human)
	if human == "" {
		return math.ZeroInt(), nil
	}
	whole, frac, _ := strings.Cut(human, ".")
	if len(frac) > int(decimals) {
		return math.Int{}, fmt.Errorf("amount %q has more than %d decimals", human, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok || v.Sign() < 0 {
		return math.Int{}, fmt.Errorf("invalid amount %q", human)
	}
	return math.NewIntFromBigInt(v), nil
}

func truncate(s string, digits int) string {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return s
	}
	if digits == 0 {
		return s[:i]
	}
	if end := i + 1 + digits; end < len(s) {
		return s[:end]
	}
	return s
}
