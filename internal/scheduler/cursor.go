package scheduler

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// Cursor rotates through a fixed topic list. Every call to Next advances it
// exactly once, whether or not the run that uses the topic succeeds.
type Cursor struct {
	topics []string
	n      atomic.Uint64
}

func NewCursor(topics []string) (*Cursor, error) {
	if len(topics) == 0 {
		return nil, errors.New("cursor needs at least one topic")
	}
	return &Cursor{topics: append([]string(nil), topics...)}, nil
}

// Next returns the current topic and advances
func (c *Cursor) Next() string {
	i := c.n.Add(1) - 1
	return c.topics[i%uint64(len(c.topics))]
}

// Position is the index the next call will return
func (c *Cursor) Position() int {
	return int(c.n.Load() % uint64(len(c.topics)))
}

// Len is the number of topics in rotation
func (c *Cursor) Len() int { return len(c.topics) }
