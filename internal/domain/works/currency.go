package works

import "strings"

// Currencies the payment provider charges in whole units.
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
	"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// Three-decimal currencies need amounts rounded to tens of minor units at the
// provider; online checkout does not offer them.
var threeDecimal = map[string]bool{
	"BHD": true, "JOD": true, "KWD": true, "OMR": true, "TND": true,
}

// MinorUnitExponent returns how many decimal places an amount in currency
// carries, and false for codes that are malformed or not offered.
func MinorUnitExponent(currency string) (int32, bool) {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if len(c) != 3 {
		return 0, false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return 0, false
		}
	}
	switch {
	case threeDecimal[c]:
		return 0, false
	case zeroDecimal[c]:
		return 0, true
	}
	return 2, true
}
