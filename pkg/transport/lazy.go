package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Factory builds a Transport.
type Factory func() (Transport, error)

// Lazy owns the process-wide transport. The transport is built on first use;
// if building fails the failure is logged once and an [Unavailable] stub is
// used instead, so callers always get a non-nil Transport.
type Lazy struct {
	build Factory

	once sync.Once
	t    Transport
}

// NewLazy returns a Lazy that calls build on the first Get.
func NewLazy(build Factory) *Lazy {
	return &Lazy{build: build}
}

// Get returns the transport, building it if necessary.
func (l *Lazy) Get() Transport {
	l.once.Do(func() {
		if l.build == nil {
			l.t = Unavailable{Reason: fmt.Errorf("no transport configured")}
			return
		}
		t, err := l.build()
		if err != nil || t == nil {
			if err == nil {
				err = fmt.Errorf("factory returned nil")
			}
			slog.Warn("call transport unavailable, calls will fail to start", "err", err)
			l.t = Unavailable{Reason: err}
			return
		}
		l.t = t
	})
	return l.t
}

// Unavailable is a Transport whose Start always fails. It stands in for a
// transport that could not be constructed.
type Unavailable struct {
	Reason error
}

// Start returns an error wrapping [ErrUnavailable].
func (u Unavailable) Start(context.Context, Target, map[string]string) error {
	if u.Reason != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, u.Reason)
	}
	return ErrUnavailable
}

// Stop is a no-op.
func (Unavailable) Stop(context.Context) error { return nil }

// Subscribe registers nothing; Unavailable never emits events.
func (Unavailable) Subscribe(Handler) func() { return func() {} }

var (
	_ Transport = Unavailable{}
)
