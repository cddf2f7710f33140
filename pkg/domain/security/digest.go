package security

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// HS returns the lowercase hex SHA-1 of text followed by the client salt.
func HS(text string) string {
	sum := sha1.Sum([]byte(text + salt))
	return hex.EncodeToString(sum[:])
}

// UploadDigest computes the signDigital field of an upload payload.
// The concatenation order and the two literal "1"s are fixed by the backend.
func UploadDigest(mileage float64, startTime string, calorie, avePace, keepTime, paceNumber int64) string {
	m := formatDecimal(mileage)

	var b strings.Builder
	b.WriteString(m)
	b.WriteString("1")
	b.WriteString(startTime)
	b.WriteString(strconv.FormatInt(calorie, 10))
	b.WriteString(strconv.FormatInt(avePace, 10))
	b.WriteString(strconv.FormatInt(keepTime, 10))
	b.WriteString(strconv.FormatInt(paceNumber, 10))
	b.WriteString(m)
	b.WriteString("1")

	return HS(b.String())
}

// formatDecimal renders f as the shortest decimal that round-trips, never
// using an exponent and never adding a trailing ".0".
func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
