package discovery

import (
	"log/slog"
	"time"
)

type option func(Discover) Discover

// WithPort sets the UDP port of the multicast group.
func WithPort(port uint16) option {
	return func(d Discover) Discover {
		d.port = port
		return d
	}
}

func WithInterval(interval time.Duration) option {
	return func(d Discover) Discover {
		d.interval = interval
		return d
	}
}

func WithLogger(log *slog.Logger) option {
	return func(d Discover) Discover {
		d.log = log
		return d
	}
}
