package future

// Value is a write-once slot. The zero value is an unset Value.
type Value[T any] struct {
	value   T
	known   bool
	waiting []func(T)
}

// Set stores v and runs every pending continuation in registration order.
// It returns false, leaving the stored value untouched, if the Value was
// already set.
func (f *Value[T]) Set(v T) bool {
	if f.known {
		return false
	}
	f.value = v
	f.known = true
	waiting := f.waiting
	f.waiting = nil
	for _, fn := range waiting {
		fn(v)
	}
	return true
}

// Get returns the value and whether it is known.
func (f *Value[T]) Get() (T, bool) {
	return f.value, f.known
}

// Known reports whether Set has been called.
func (f *Value[T]) Known() bool {
	return f.known
}

// Then runs fn with the value once it is known. If it already is, fn runs
// immediately.
func (f *Value[T]) Then(fn func(T)) {
	if f.known {
		fn(f.value)
		return
	}
	f.waiting = append(f.waiting, fn)
}

// Signal is a Value that carries no data.
type Signal = Value[struct{}]

// Fire sets a Signal.
func Fire(s *Signal) bool {
	return s.Set(struct{}{})
}

// Waiter is anything a continuation can be attached to regardless of its
// payload.
type Waiter interface {
	after(fn func())
}

func (f *Value[T]) after(fn func()) {
	f.Then(func(T) { fn() })
}

// All runs fn once every waiter is known. With no waiters fn runs at once.
func All(fn func(), waiters ...Waiter) {
	remaining := len(waiters)
	if remaining == 0 {
		fn()
		return
	}
	for _, w := range waiters {
		w.after(func() {
			remaining--
			if remaining == 0 {
				fn()
			}
		})
	}
}
