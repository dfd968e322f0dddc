// Package bdaddr provides the Bluetooth device address type used to
// identify remote LE Audio devices.
package bdaddr

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAddress is returned when an address string cannot be parsed.
var ErrInvalidAddress = errors.New("invalid bluetooth address")

// Addr is a 48-bit Bluetooth device address in display order
// (most significant byte first).
type Addr [6]byte

// Any is the zero address.
var Any Addr

// Parse parses an address in "AA:BB:CC:DD:EE:FF" form. Dashes are accepted
// as separators as well.
func Parse(s string) (Addr, error) {
	var a Addr

	s = strings.ReplaceAll(strings.TrimSpace(s), "-", ":")
	parts := strings.Split(s, ":")
	if len(parts) != len(a) {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	for i, p := range parts {
		if len(p) != 2 {
			return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		b, err := hex.DecodeString(p)
		if err != nil {
			return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		a[i] = b[0]
	}
	return a, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// static tables.
func MustParse(s string) Addr {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the canonical upper-case colon separated form.
func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsZero reports whether a is the zero address.
func (a Addr) IsZero() bool {
	return a == Any
}

// MarshalText implements encoding.TextMarshaler.
func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Addr) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
