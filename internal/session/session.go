// Package session implements the sector gate checks against the cached
// consultant list. Everything works offline.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/palmtask/palmtask/internal/schema"
)

var (
	// ErrUnknownSector means no consultant is registered for the sector.
	ErrUnknownSector = errors.New("unknown sector")

	// ErrBadPassword means the password did not match the sector's.
	ErrBadPassword = errors.New("incorrect password")
)

// ConsultantFor returns the first consultant registered for sector.
func ConsultantFor(consultants []schema.Consultant, sector string) (schema.Consultant, bool) {
	sector = strings.TrimSpace(sector)
	if sector == "" {
		return schema.Consultant{}, false
	}
	for _, c := range consultants {
		if strings.TrimSpace(c.Sector) == sector {
			return c, true
		}
	}
	return schema.Consultant{}, false
}

// PasswordRequired reports whether logging into sector needs a password.
// Unknown sectors need none; Authenticate rejects them anyway.
func PasswordRequired(consultants []schema.Consultant, sector string) bool {
	c, ok := ConsultantFor(consultants, sector)
	return ok && strings.TrimSpace(c.Pass) != ""
}

// Authenticate checks password against the sector's consultant and returns
// that consultant.
func Authenticate(consultants []schema.Consultant, sector, password string) (schema.Consultant, error) {
	c, ok := ConsultantFor(consultants, sector)
	if !ok {
		return schema.Consultant{}, fmt.Errorf("%w: %q", ErrUnknownSector, strings.TrimSpace(sector))
	}
	want := strings.TrimSpace(c.Pass)
	if want == "" {
		return c, nil
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(password))) != 1 {
		return schema.Consultant{}, ErrBadPassword
	}
	return c, nil
}
