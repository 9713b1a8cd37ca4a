package provision

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	sessionEntropyMu sync.Mutex
	sessionEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// newSessionID returns a ULID, so session ids sort by launch time even
// within one millisecond.
func newSessionID() string {
	sessionEntropyMu.Lock()
	defer sessionEntropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), sessionEntropy).String()
}
