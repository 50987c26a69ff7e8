package conductor

import (
	"math/rand"
	"sync"
	"time"
)

// randSource backs jitter() in conductor.go. A single mutex-guarded source is enough:
// jitter calls are infrequent (once per city retry, once per vendor group)
// and never on a hot path.
var randSource = newLockedRand()

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}
