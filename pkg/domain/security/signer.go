package security

import (
	"strconv"
	"time"
)

// LoginRequest is the plaintext of the login envelope.
type LoginRequest struct {
	Entrance    string `json:"entrance"`
	UserName    string `json:"userName"`
	Password    string `json:"password"`
	SignDigital string `json:"signDigital"`
}

// Envelope carries text encrypted under DynamicKey(T). Login requests and
// login responses both use it.
type Envelope struct {
	T   int64  `json:"t"`
	Pyd string `json:"pyd"`
}

// SignLoginRequest returns the login digest and the encrypted request
// envelope for the given credentials at nowMillis.
func SignLoginRequest(username, password string, nowMillis int64) (string, Envelope, error) {
	digest := HS(username + password + "1")

	body, err := FormatJSON(LoginRequest{
		Entrance:    "1",
		UserName:    username,
		Password:    password,
		SignDigital: digest,
	})
	if err != nil {
		return "", Envelope{}, err
	}

	pyd, err := EncodeNS(body, nowMillis)
	if err != nil {
		return "", Envelope{}, err
	}

	return digest, Envelope{T: nowMillis, Pyd: pyd}, nil
}

// EncodeNS encrypts text under the dynamic key for timestamp t.
func EncodeNS(text string, t int64) (string, error) {
	key, err := DynamicKey(strconv.FormatInt(t, 10))
	if err != nil {
		return "", err
	}
	return Encrypt(text, key)
}

// DecodeNS decrypts an envelope payload produced for timestamp t.
func DecodeNS(text string, t int64) (string, error) {
	key, err := DynamicKey(strconv.FormatInt(t, 10))
	if err != nil {
		return "", err
	}
	return Decrypt(text, key)
}

// Open decrypts the envelope using its own timestamp.
func (e Envelope) Open() (string, error) {
	return DecodeNS(e.Pyd, e.T)
}

// SignUploadPayload fills SignTime, Oct and SignDigital on p. a1 and a2 are
// the user and school identifiers returned by login. p is left unchanged on
// error.
func SignUploadPayload(p *UploadRunningInfo, a1, a2 string) error {
	if p == nil {
		return newError(StageSign, ErrMalformedInput, "nil payload")
	}

	plain, err := FormatJSON(newOct(p))
	if err != nil {
		return err
	}

	key, err := RNKey(a1, a2)
	if err != nil {
		return err
	}

	signTime, err := SignTime(p.EndTime, p.KeepTime)
	if err != nil {
		return err
	}

	blob, err := Encrypt(plain, key)
	if err != nil {
		return err
	}

	digest := UploadDigest(p.TotalMileage, p.StartTime, p.Calorie, p.AvePace, p.KeepTime, p.PaceNumber)

	p.SignTime = signTime
	p.Oct = blob
	p.SignDigital = digest
	return nil
}

// SignTime returns endTime plus keepTime mod 11 seconds, both in local time.
func SignTime(endTime string, keepTime int64) (string, error) {
	end, err := time.ParseInLocation(TimeLayout, endTime, time.Local)
	if err != nil {
		return "", newError(StageSign, ErrMalformedInput, "end time %q: %v", endTime, err)
	}
	return end.Add(time.Duration(keepTime%11) * time.Second).Format(TimeLayout), nil
}
