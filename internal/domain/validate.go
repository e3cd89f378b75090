package domain

import (
	"fmt"
	"regexp"
)

var (
	emailRe = regexp.MustCompile("^[-A-Za-z0-9!#$%&'*+/=?^_`{|}~]+(?:\\.[-A-Za-z0-9!#$%&'*+/=?^_`{|}~]+)*@(?:[A-Za-z0-9](?:[-A-Za-z0-9]*[A-Za-z0-9])?\\.)+[A-Za-z0-9](?:[-A-Za-z0-9]*[A-Za-z0-9])?$")
	nameRe  = regexp.MustCompile(`^[a-z0-9_.-]+$`)
	// Clients pre-hash passwords; the server only ever sees 48 bytes of
	// lowercase hex.
	passwordRe = regexp.MustCompile(`^[0-9a-f]{96}$`)
)

func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: invalid email", ErrBadRequest)
	}
	return nil
}

func ValidateUsername(name string) error {
	if len(name) < 3 || len(name) > 32 || !nameRe.MatchString(name) {
		return fmt.Errorf("%w: invalid username", ErrBadRequest)
	}
	return nil
}

func ValidateChannelName(name string) error {
	if name == "" || len(name) > 32 || !nameRe.MatchString(name) {
		return fmt.Errorf("%w: invalid channel name", ErrBadRequest)
	}
	return nil
}

func ValidatePassword(pw string) error {
	if !passwordRe.MatchString(pw) {
		return fmt.Errorf("%w: invalid password", ErrBadRequest)
	}
	return nil
}
