package pipeline

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a ULID. Ids generated within the same millisecond are
// strictly increasing.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}
