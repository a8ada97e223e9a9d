// Package optimistic applies a local state change before the remote call that persists
// it and reverts the change when that call fails.
package optimistic

import (
	"context"
	"sync"
)

// Change is an apply/rollback pair over local state.
type Change struct {
	Apply    func()
	Rollback func()
}

// Do applies the change, runs call, and rolls the change back if call fails.
// The call's error is returned unchanged.
func Do(ctx context.Context, change Change, call func(ctx context.Context) error) error {
	if change.Apply != nil {
		change.Apply()
	}
	if err := call(ctx); err != nil {
		if change.Rollback != nil {
			change.Rollback()
		}
		return err
	}
	return nil
}

// Snapshot builds a Change over the value locate points at. The value is saved when
// Snapshot is called and written back on rollback. Every step runs under l when it is
// non-nil, and locate may return nil once the value is gone, which makes that step a no-op.
func Snapshot[T any](l sync.Locker, locate func() *T, apply func(*T)) Change {
	lock := func() func() {
		if l == nil {
			return func() {}
		}
		l.Lock()
		return l.Unlock
	}

	var saved T
	var found bool
	unlock := lock()
	if target := locate(); target != nil {
		saved, found = *target, true
	}
	unlock()

	return Change{
		Apply: func() {
			defer lock()()
			if target := locate(); target != nil {
				apply(target)
			}
		},
		Rollback: func() {
			defer lock()()
			if target := locate(); target != nil && found {
				*target = saved
			}
		},
	}
}
