package security

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FormatJSON renders v the way the backend's own serializer does: two-space
// indentation, no HTML escaping, and every ": " widened to " : ". The
// encrypted blobs carry this exact text, so the spacing is part of the wire
// format.
func FormatJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", newError(StageSerialization, ErrSerialization, "%v", err)
	}

	out := strings.TrimSuffix(buf.String(), "\n")
	return strings.ReplaceAll(out, ": ", " : "), nil
}

// wireFloat marshals like the backend: shortest round-trip digits, with a
// trailing ".0" on integral values and an unpadded exponent outside
// [1e-5, 1e16).
type wireFloat float64

func (f wireFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(formatWireFloat(v)), nil
}

func formatWireFloat(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-5 || abs >= 1e16) {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		n, _ := strconv.Atoi(exp)
		return mant + "e" + strconv.Itoa(n)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
