package relay

import "log/slog"

type Option func(*Relay)

func WithLogger(log *slog.Logger) Option {
	return func(r *Relay) {
		r.log = log
	}
}

// WithKeyPair replaces the envelope key generated by New.
func WithKeyPair(keys KeyPair) Option {
	return func(r *Relay) {
		r.keys = keys
	}
}

// WithFrameBuffer sets how many frames readers may queue before blocking.
func WithFrameBuffer(n int) Option {
	return func(r *Relay) {
		r.frames = make(chan Frame, n)
	}
}
