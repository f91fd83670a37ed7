package bridge

import (
	"context"
	"time"
)

// Admit reserves a slot for one child. With MaxConcurrent unset it only
// checks ctx. Returns a release func to be deferred.
func (b *Bridge) Admit(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	if b.slots == nil {
		return func() {}, nil
	}
	timer := time.NewTimer(b.cfg.QueueWait)
	defer timer.Stop()
	select {
	case b.slots <- struct{}{}:
		return func() { <-b.slots }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{limit: cap(b.slots)}
	}
}
