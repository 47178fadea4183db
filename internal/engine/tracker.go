package engine

import "sync/atomic"

// Tracker hands out request tokens so that a response can be checked against
// the most recent request before it is applied.
type Tracker struct {
	latest atomic.Uint64
}

// Next issues a new token, making every earlier token stale.
func (t *Tracker) Next() uint64 {
	return t.latest.Add(1)
}

// IsCurrent reports whether token is the latest one issued.
func (t *Tracker) IsCurrent(token uint64) bool {
	return token != 0 && t.latest.Load() == token
}
