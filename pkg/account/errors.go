package account

import "errors"

var (
	// ErrInvalidCredentials is returned when the backend rejects the login
	// with 400 Bad Request.
	ErrInvalidCredentials = errors.New("invalid account or password")
	// ErrNoSemester is returned when the backend reports no current semester.
	ErrNoSemester = errors.New("no current semester")
	// ErrSemesterNotStarted is returned when any running limit is missing.
	ErrSemesterNotStarted = errors.New("semester not started yet")
	// ErrMileageTooLow is returned when the clamped mileage falls below the
	// effective minimum.
	ErrMileageTooLow = errors.New("effective mileage too low")
	// ErrNotLoggedIn is returned by Upload before a successful Login.
	ErrNotLoggedIn = errors.New("not logged in")
)
