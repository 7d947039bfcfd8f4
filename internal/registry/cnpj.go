// Package registry looks up Brazilian company registration data (CNPJ)
// for the cases moving through the pipeline. Lookups hit a public registry
// API and are cached in Redis; registration numbers are validated locally
// before any network call.
package registry

import (
	"errors"
	"strings"
)

var ErrInvalidCNPJ = errors.New("invalid cnpj")

// Normalize strips formatting from a CNPJ, keeping digits only.
func Normalize(cnpj string) string {
	var b strings.Builder
	for _, r := range cnpj {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether the normalized CNPJ has 14 digits and correct
// check digits.
func Valid(cnpj string) bool {
	digits := Normalize(cnpj)
	if len(digits) != 14 {
		return false
	}

	// All-same-digit numbers pass the checksum but are not real.
	same := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}

	if checkDigit(digits[:12]) != int(digits[12]-'0') {
		return false
	}
	return checkDigit(digits[:13]) == int(digits[13]-'0')
}

// checkDigit computes the modulus 11 check digit over the given prefix.
func checkDigit(prefix string) int {
	weight := len(prefix) - 7
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	dv := 11 - sum%11
	if dv >= 10 {
		return 0
	}
	return dv
}
