package security

// The backend's client ships these values letter-shifted by three. They are
// stored here already decoded; uncaesar is kept so the obfuscated forms in
// the tests can be checked against them.
const (
	salt          = "itauVfnexHiRigZ6"
	rnSuffix      = "3e0783d6891a4a3e9521dcb6bb341560"
	dynamicSuffix = "402881ea7c39c5d5017c39d143a8062b"
)

const caesarShift = 3

// uncaesar shifts every ASCII letter back by three places, preserving case.
func uncaesar(text string) string {
	out := []byte(text)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = 'a' + (c-'a'+26-caesarShift)%26
		case c >= 'A' && c <= 'Z':
			out[i] = 'A' + (c-'A'+26-caesarShift)%26
		}
	}
	return string(out)
}
