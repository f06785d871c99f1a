package event

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewUUID returns a random UUID string. It is the default id generator.
func NewUUID() string {
	return uuid.NewString()
}

// NewULID returns a time-sortable ULID. Use it with WithIDGenerator when
// events should sort by creation time.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
