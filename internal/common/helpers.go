package common

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// BNBDecimals is the wei precision of the native asset.
	BNBDecimals = 18
	// BNBDisplayPlaces is the fixed display precision of native amounts.
	BNBDisplayPlaces = 4
	// USDDisplayPlaces is the fixed display precision of fiat amounts.
	USDDisplayPlaces = 2

	// priceDecimals is the internal precision quotes are parsed at before
	// any multiplication. Display rounding happens at the boundary only.
	priceDecimals = 8
)

// WeiToBNB converts wei to a full-precision BNB string without float precision loss
func WeiToBNB(wei *big.Int) string {
	return formatWithDecimals(wei, BNBDecimals)
}

// BNBToWei converts a BNB decimal string to wei without float precision loss.
// Fractional digits beyond 18 are truncated.
func BNBToWei(bnb string) (*big.Int, error) {
	return parseWithDecimals(bnb, BNBDecimals)
}

// FormatBNB renders wei as a display amount with exactly 4 fractional digits,
// rounded half-up. All arithmetic before this point stays in wei.
func FormatBNB(wei *big.Int) string {
	return FormatFixed(wei, BNBDecimals, BNBDisplayPlaces)
}

// MulPriceUSD multiplies wei by a USD-per-BNB decimal quote and renders the
// result with exactly 2 fractional digits. The multiplication is exact; only
// the final display step rounds.
func MulPriceUSD(wei *big.Int, priceUSD string) (string, error) {
	price, err := parseWithDecimals(priceUSD, priceDecimals)
	if err != nil {
		return "", fmt.Errorf("failed to parse price '%s': %w", priceUSD, err)
	}
	product := new(big.Int).Mul(wei, price)
	return FormatFixed(product, BNBDecimals+priceDecimals, USDDisplayPlaces), nil
}

// FormatFixed renders a fixed-point integer carrying `decimals` fractional
// digits as a decimal string with exactly `places` fractional digits,
// rounding half-up.
func FormatFixed(value *big.Int, decimals, places int) string {
	if places > decimals {
		places = decimals
	}
	divisor := pow10(decimals - places)

	scaled, rem := new(big.Int).QuoRem(new(big.Int).Set(value), divisor, new(big.Int))
	// Half-up: bump when the dropped remainder is >= divisor/2
	if new(big.Int).Lsh(rem, 1).Cmp(divisor) >= 0 {
		scaled.Add(scaled, big.NewInt(1))
	}

	s := scaled.String()
	for len(s) <= places {
		s = "0" + s
	}
	pos := len(s) - places
	if places == 0 {
		return s
	}
	return s[:pos] + "." + s[pos:]
}

// formatWithDecimals converts a fixed-point integer to a decimal string by
// inserting the decimal point
// Example: formatWithDecimals(24981836, 9) = "0.024981836"
func formatWithDecimals(value *big.Int, decimals int) string {
	s := value.String()

	// Pad with leading zeros if needed
	for len(s) <= decimals {
		s = "0" + s
	}

	// Insert decimal point
	pos := len(s) - decimals
	return s[:pos] + "." + s[pos:]
}

// parseWithDecimals converts a decimal string to a fixed-point integer by
// removing the decimal point
// Example: parseWithDecimals("0.024981836", 9) = 24981836
func parseWithDecimals(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty string")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("amount must be unsigned")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid decimal format")
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("invalid decimal format")
	}

	// Pad or truncate fractional part to exact decimals
	if len(frac) < decimals {
		frac += strings.Repeat("0", decimals-len(frac))
	} else if len(frac) > decimals {
		frac = frac[:decimals]
	}

	combined := strings.TrimLeft(whole+frac, "0")
	if combined == "" {
		combined = "0"
	}

	n, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal format")
	}
	return n, nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
