// Package idx mints ULID identifiers: request ids for outbound API calls and
// entity and token ids handed out by the mock provider.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is the canonical 26 character ULID string.
type ID string

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

// Generator mints IDs stamped by its clock. IDs from one generator sort in
// the order they were minted, even within the same millisecond.
type Generator struct {
	now func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator returns a Generator reading time from now (time.Now when nil).
func NewGenerator(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		now:     now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// New returns the next ID.
func (g *Generator) New() ID {
	ts := ulid.Timestamp(g.now().UTC())

	g.mu.Lock()
	defer g.mu.Unlock()
	return ID(ulid.MustNew(ts, g.entropy).String())
}

var defaultGenerator = NewGenerator(nil)

// New returns an ID for the current time.
func New() ID {
	return defaultGenerator.New()
}

// Parse validates s as a ULID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", ErrInvalid
	}
	return ID(s), nil
}

// Time returns the millisecond timestamp encoded in id.
func (id ID) Time() (time.Time, error) {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}, ErrInvalid
	}
	return ulid.Time(u.Time()).UTC(), nil
}

func (id ID) String() string { return string(id) }
