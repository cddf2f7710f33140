package security

import (
	"errors"
	"fmt"
)

// Stage identifies which part of the protocol rejected its input.
type Stage string

const (
	StageDigest        Stage = "digest"
	StageKeyDerivation Stage = "key-derivation"
	StageCipher        Stage = "cipher"
	StageSerialization Stage = "serialization"
	StageSign          Stage = "sign"
)

var (
	// ErrMalformedInput covers short identifiers, bad timestamps and unparseable time fields.
	ErrMalformedInput = errors.New("malformed input")
	// ErrCipher is returned when ciphertext fails base64, block or padding validation.
	ErrCipher = errors.New("cipher failure")
	// ErrSerialization is returned when a record cannot be rendered as wire JSON.
	ErrSerialization = errors.New("serialization failure")
)

// Error reports a signing failure together with the stage that produced it.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(stage Stage, kind error, format string, args ...interface{}) *Error {
	return &Error{
		Stage: stage,
		Err:   fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}
