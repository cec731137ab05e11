// Package alert provides best-effort expiry alerts.
package alert

import (
	"errors"
	"io"
)

// ErrUnsupported reports that the host cannot produce an alert of this kind.
var ErrUnsupported = errors.New("alert: unsupported")

// Alerter emits a short alert. Failures are reported but never fatal.
type Alerter interface {
	Alert() error
}

// Nop is an Alerter that does nothing.
type Nop struct{}

// Alert implements Alerter.
func (Nop) Alert() error { return nil }

// Bell rings the terminal bell.
type Bell struct {
	W io.Writer
}

// Alert implements Alerter.
func (b Bell) Alert() error {
	if b.W == nil {
		return ErrUnsupported
	}
	_, err := io.WriteString(b.W, "\a")
	return err
}

// Multi runs every alerter and joins their errors.
type Multi []Alerter

// Alert implements Alerter.
func (m Multi) Alert() error {
	var errs []error
	for _, a := range m {
		if a == nil {
			continue
		}
		if err := a.Alert(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to Alerter.
type Func func() error

// Alert implements Alerter.
func (f Func) Alert() error { return f() }

// Async runs A on its own goroutine so a slow player never blocks the
// caller's event loop. Errors go to OnError when set.
type Async struct {
	A       Alerter
	OnError func(error)
}

// Alert implements Alerter. It always returns nil.
func (a Async) Alert() error {
	if a.A == nil {
		return nil
	}
	go func() {
		if err := a.A.Alert(); err != nil && a.OnError != nil {
			a.OnError(err)
		}
	}()
	return nil
}
