// Package note implements the on-disk note corpus: UID minting,
// front-matter parsing and serialization, atomic file persistence,
// and link extraction.
package note

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"time"
)

// uidPattern matches YYYYMMDD 'T' HHMMSSMMMCCC 'Z' where MMM is the
// millisecond and CCC a per-process counter.
var uidPattern = regexp.MustCompile(`^\d{8}T\d{12}Z$`)

// uidCounter disambiguates UIDs minted within the same millisecond.
var uidCounter atomic.Uint64

// NewUID mints a unique note identifier from the current wall clock.
func NewUID() string {
	return UIDAt(time.Now().UTC())
}

// UIDAt mints a UID for the given instant. The counter still advances,
// so two calls with the same instant produce distinct UIDs.
func UIDAt(t time.Time) string {
	t = t.UTC()
	c := uidCounter.Add(1) % 1000
	return fmt.Sprintf("%sT%s%03d%03dZ",
		t.Format("20060102"), t.Format("150405"), t.Nanosecond()/1e6, c)
}

// ValidUID reports whether s has the UID shape.
func ValidUID(s string) bool {
	return uidPattern.MatchString(s)
}
