// Package discovery announces tables on the LAN with UDP multicast and keeps
// a directory of the tables heard of.
package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/luca-patrignani/mental-poker-holdem/relay"
)

const multicastIpAddress = "239.0.0.1"

// keyLen is the length of the random prefix a Discover puts in front of its
// own announcements to recognize them when they loop back.
const keyLen = 8

// Announcement advertises a hub: its identity and where it serves guests.
type Announcement struct {
	ID      relay.PeerID `json:"id"`
	Address string       `json:"address"`
	Name    string       `json:"name,omitempty"`
}

// Entry is an announcement heard from another peer.
type Entry struct {
	Announcement
	Time time.Time
}

// Discover announces the local table, if any, and listens for the others.
type Discover struct {
	Entries  chan Entry
	port     uint16
	interval time.Duration
	log      *slog.Logger
	key      string

	mu       sync.Mutex
	info     []byte
	conn     *net.UDPConn
	sendConn *net.UDPConn
}

func New(opts ...option) *Discover {
	d := Discover{
		Entries:  make(chan Entry, 100),
		port:     53550,
		interval: time.Second,
		log:      slog.Default(),
		key:      fmt.Sprintf("%08x", rand.Uint32()),
	}
	for _, opt := range opts {
		d = opt(d)
	}
	return &d
}

// Announce sets what is advertised from now on. Without a call to Announce
// the Discover only listens.
func (d *Discover) Announce(a Announcement) error {
	info, err := json.Marshal(a)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.info = info
	return nil
}

// Start joins the multicast group and starts announcing and listening.
func (d *Discover) Start() error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", multicastIpAddress, d.port))
	if err != nil {
		return err
	}
	d.conn, err = net.ListenMulticastUDP("udp", nil, addr)
	if err != nil {
		return err
	}
	d.sendConn, err = net.DialUDP("udp", nil, addr)
	if err != nil {
		return errors.Join(err, d.conn.Close())
	}
	go d.listen()
	go d.announce()
	return nil
}

func (d *Discover) Close() error {
	var err1, err2 error
	if d.conn != nil {
		err1 = d.conn.Close()
	}
	if d.sendConn != nil {
		err2 = d.sendConn.Close()
	}
	return errors.Join(err1, err2)
}

func (d *Discover) listen() {
	buffer := make([]byte, 1024)
	for {
		n, _, err := d.conn.ReadFromUDP(buffer)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				d.log.Error("discovery listener stopped", "err", err)
			}
			close(d.Entries)
			return
		}
		entry, ok := d.parse(buffer[:n])
		if !ok {
			continue
		}
		select {
		case d.Entries <- entry:
		default:
			d.log.Debug("discovery entry dropped, nobody is reading")
		}
	}
}

func (d *Discover) announce() {
	for {
		d.mu.Lock()
		info := d.info
		d.mu.Unlock()
		if info != nil {
			if _, err := d.sendConn.Write(append([]byte(d.key), info...)); err != nil {
				if !errors.Is(err, net.ErrClosed) {
					d.log.Error("discovery announcer stopped", "err", err)
				}
				return
			}
		}
		time.Sleep(d.interval)
	}
}

// parse decodes a datagram, discarding our own and malformed ones.
func (d *Discover) parse(message []byte) (Entry, bool) {
	if len(message) <= keyLen || string(message[:keyLen]) == d.key {
		return Entry{}, false
	}
	var a Announcement
	if err := json.Unmarshal(message[keyLen:], &a); err != nil || a.ID == "" || a.Address == "" {
		d.log.Debug("ignoring malformed announcement", "err", err)
		return Entry{}, false
	}
	return Entry{Announcement: a, Time: time.Now()}, true
}
