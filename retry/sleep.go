package retry

import (
	"fmt"
	"time"
)

// Sleep blocks the calling goroutine for d. It returns immediately when d is
// zero or negative.
func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	<-timer.C
}

// Notify returns an observer that calls each fn in order. Nil entries are
// skipped.
func Notify(fns ...OnRetryFunc) OnRetryFunc {
	return func(err error, attempt int, wait time.Duration) {
		for _, fn := range fns {
			if fn != nil {
				fn(err, attempt, wait)
			}
		}
	}
}

// PanicError is the attempt error recorded when the operation panics with a
// value that is not an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprint(e.Value) }

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &PanicError{Value: r}
}
