package domain

import "strings"

const nationalIDLength = 11

// NationalID is a validated Brazilian CPF held as exactly 11 ASCII digits.
// The zero value is not a valid ID; obtain one through ParseNationalID.
type NationalID struct {
	digits string
}

// ParseNationalID strips every non-digit from raw and validates the result with
// the two-pass modulo-11 checksum. Inputs made of a single repeated digit are
// rejected even though they satisfy the checksum arithmetic.
func ParseNationalID(raw string) (NationalID, error) {
	digits := normalizeDigits(raw)
	if len(digits) != nationalIDLength {
		return NationalID{}, NewValidationError("nationalId", "national ID must have 11 digits")
	}
	if strings.Count(digits, digits[:1]) == nationalIDLength {
		return NationalID{}, NewValidationError("nationalId", "national ID must not repeat a single digit")
	}
	if checkDigit(digits[:9], 10) != digits[9]-'0' || checkDigit(digits[:10], 11) != digits[10]-'0' {
		return NationalID{}, NewValidationError("nationalId", "national ID checksum mismatch")
	}
	return NationalID{digits: digits}, nil
}

// MustParseNationalID is ParseNationalID for literals known to be valid.
func MustParseNationalID(raw string) NationalID {
	id, err := ParseNationalID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the normalized 11-digit form.
func (n NationalID) String() string { return n.digits }

// IsZero reports whether n was never parsed.
func (n NationalID) IsZero() bool { return n.digits == "" }

// Equal compares by normalized digits.
func (n NationalID) Equal(other NationalID) bool { return n.digits == other.digits }

// MarshalText keeps the value opaque on the wire: only the normalized digits are emitted.
func (n NationalID) MarshalText() ([]byte, error) {
	return []byte(n.digits), nil
}

// UnmarshalText re-validates, so a NationalID decoded from JSON is always well formed.
func (n *NationalID) UnmarshalText(text []byte) error {
	parsed, err := ParseNationalID(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func normalizeDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// checkDigit weights prefix from firstWeight down to 2.
func checkDigit(prefix string, firstWeight int) byte {
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * (firstWeight - i)
	}
	d := 11 - sum%11
	if d >= 10 {
		d = 0
	}
	return byte(d)
}
