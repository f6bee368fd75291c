package network

import (
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net"
	"time"

	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

type Option func(*Signaling)

// WithListener makes the peer serve incoming guests on l. Only a hub needs
// one.
func WithListener(l net.Listener) Option {
	return func(s *Signaling) { s.listener = l }
}

func WithDirectory(d Directory) Option {
	return func(s *Signaling) { s.directory = d }
}

// WithIdentity fixes the identity instead of drawing a random one.
func WithIdentity(id relay.PeerID) Option {
	return func(s *Signaling) { s.id = id }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Signaling) { s.log = log }
}

// WithWriteTimeout bounds how long a send may wait for a slow peer before
// the connection is dropped.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Signaling) { s.writeWait = d }
}

// WithCertificate serves and dials over TLS with cert.
func WithCertificate(cert tls.Certificate) Option {
	return func(s *Signaling) {
		if s.tlsConfig == nil {
			s.tlsConfig = &tls.Config{}
		}
		s.tlsConfig.Certificates = append(s.tlsConfig.Certificates, cert)
		s.dialer.TLSClientConfig = s.tlsConfig
	}
}

// WithLimitedCAs trusts only the certificates in certPool, both as a client
// and for the guests connecting to a hub.
func WithLimitedCAs(certPool *x509.CertPool) Option {
	return func(s *Signaling) {
		if s.tlsConfig == nil {
			s.tlsConfig = &tls.Config{}
		}
		s.tlsConfig.RootCAs = certPool
		s.tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
		s.tlsConfig.ClientCAs = certPool
		s.dialer.TLSClientConfig = s.tlsConfig
	}
}
