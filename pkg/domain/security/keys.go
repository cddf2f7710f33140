package security

import (
	"strconv"
)

const minIdentifierLen = 12

// RNKey derives the session-scoped key used to encrypt the upload "oct" blob.
func RNKey(a1, a2 string) (string, error) {
	if len(a1) < minIdentifierLen || len(a2) < minIdentifierLen {
		return "", newError(StageKeyDerivation, ErrMalformedInput,
			"session identifiers must be at least %d bytes (got %d and %d)", minIdentifierLen, len(a1), len(a2))
	}
	return a1[3:6] + a2[4:7] + a1[9:12] + rnSuffix, nil
}

// DynamicKey derives the time-scoped key for the login envelope from the
// decimal millisecond timestamp. Both ends derive it independently.
func DynamicKey(timestamp string) (string, error) {
	if len(timestamp) < 8 {
		return "", newError(StageKeyDerivation, ErrMalformedInput, "timestamp %q shorter than 8 characters", timestamp)
	}

	dest, err := parseDigits(timestamp, 2, 5)
	if err != nil {
		return "", err
	}
	nptr, err := parseDigits(timestamp, 4, 8)
	if err != nil {
		return "", err
	}

	last := timestamp[len(timestamp)-1]
	if last < '0' || last > '9' {
		return "", newError(StageKeyDerivation, ErrMalformedInput, "timestamp %q does not end in a digit", timestamp)
	}

	v := dest - nptr
	if v < 0 {
		v = -v
	}
	v <<= uint(last - '0')

	return strconv.Itoa(v) + dynamicSuffix, nil
}

// parseDigits parses s[from:to] as an unsigned decimal. Signs are rejected.
func parseDigits(s string, from, to int) (int, error) {
	if to > len(s) {
		return 0, newError(StageKeyDerivation, ErrMalformedInput, "slice [%d,%d) out of range for %q", from, to, s)
	}
	part := s[from:to]
	n := 0
	for i := 0; i < len(part); i++ {
		c := part[i]
		if c < '0' || c > '9' {
			return 0, newError(StageKeyDerivation, ErrMalformedInput, "slice [%d,%d) of %q is not numeric", from, to, s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
