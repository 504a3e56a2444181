package assignment

import (
	"sync/atomic"
	"time"
)

// IDGenerator hands out content ids derived from the wall clock in
// milliseconds, bumped so that they strictly increase within the process.
// They are display identifiers, not globally unique keys.
type IDGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

func (g *IDGenerator) Next() int64 {
	for {
		last := g.last.Load()
		next := g.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if g.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
