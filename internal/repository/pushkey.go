package repository

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// pushKeys hands out ULIDs whose lexical order follows creation order, including
// keys minted within the same millisecond.
type pushKeys struct {
	mu      sync.Mutex
	entropy io.Reader
}

var keys = &pushKeys{entropy: ulid.Monotonic(rand.Reader, 0)}

// NewPushKey returns a sortable identifier for a record written at the given time.
func NewPushKey(at time.Time) (string, error) {
	return keys.next(at)
}

func (p *pushKeys) next(at time.Time) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(at), p.entropy)
	if err != nil {
		return "", fmt.Errorf("generate push key: %w", err)
	}
	return id.String(), nil
}
