// Package roomlink builds video room URLs for consultations.
package roomlink

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultHost = "meet.jit.si"
	stampLayout = "20060102150405"
)

// Issuer derives a room link from the practitioner name and the current
// second. Two calls for the same name within one second yield the same link.
type Issuer struct {
	host string
	now  func() time.Time
}

func NewIssuer(host string) *Issuer {
	if host == "" {
		host = DefaultHost
	}
	return &Issuer{host: host, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) Issue(practitionerName string) string {
	room := strings.ReplaceAll(practitionerName, " ", "")
	return fmt.Sprintf("https://%s/%s_%s", i.host, room, i.now().Format(stampLayout))
}
