package aggregate

import (
	"fmt"
	"math/big"
)

// FormatUnits renders a raw integer amount with the given number of decimals.
func FormatUnits(raw string, decimals uint8) (string, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", fmt.Errorf("invalid int: %s", raw)
	}
	if decimals == 0 {
		return value.String(), nil
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(abs, denom).FloatString(int(decimals))
	if sign < 0 {
		return "-" + text, nil
	}
	return text, nil
}
