package password

import (
	"errors"
	"strings"
)

// MinLength is the shortest accepted password, in characters.
const MinLength = 8

// Specials lists the accepted special characters.
const Specials = "@$!%*?&"

var (
	ErrTooShort      = errors.New("Password minimal 8 karakter")
	ErrNoLower       = errors.New("Password harus mengandung huruf kecil")
	ErrNoUpper       = errors.New("Password harus mengandung huruf besar")
	ErrNoDigit       = errors.New("Password harus mengandung angka")
	ErrNoSpecial     = errors.New("Password harus mengandung karakter spesial (@$!%*?&)")
	ErrConfirmDiffer = errors.New("Password dan konfirmasi password tidak cocok")
)

// ErrRequired is returned for an empty password.
var ErrRequired = errors.New("Password wajib diisi")

// Check returns every rule pw breaks, joined with errors.Join, or nil.
func Check(pw string) error {
	if pw == "" {
		return ErrRequired
	}
	var errs []error
	if len([]rune(pw)) < MinLength {
		errs = append(errs, ErrTooShort)
	}
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(Specials, r):
			special = true
		}
	}
	if !lower {
		errs = append(errs, ErrNoLower)
	}
	if !upper {
		errs = append(errs, ErrNoUpper)
	}
	if !digit {
		errs = append(errs, ErrNoDigit)
	}
	if !special {
		errs = append(errs, ErrNoSpecial)
	}
	return errors.Join(errs...)
}

// Confirm checks that the confirmation matches.
func Confirm(pw, confirm string) error {
	if pw != confirm {
		return ErrConfirmDiffer
	}
	return nil
}
