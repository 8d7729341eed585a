package economy

import (
	"fmt"
	"math/big"
	"strconv"
)

type currencyUnit struct {
	value *big.Int
	name  string
}

// Largest first. 10^20 does not fit in an int64, so units are compared as
// big integers.
var currencyUnits = []currencyUnit{
	{pow10(20), "gai"},
	{pow10(16), "kyo"},
	{pow10(12), "cho"},
	{pow10(8), "oku"},
	{pow10(4), "man"},
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// FormatCurrency renders an amount with the largest applicable myriad unit,
// e.g. 15000 -> "1.50 man". Amounts under 10^4 are printed as-is.
func FormatCurrency(amount int64) string {
	a := big.NewInt(amount)
	for _, u := range currencyUnits {
		if a.Cmp(u.value) >= 0 {
			q := new(big.Rat).SetFrac(a, u.value)
			return fmt.Sprintf("%s %s", q.FloatString(2), u.name)
		}
	}
	return strconv.FormatInt(amount, 10)
}
