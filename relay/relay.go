// Package relay sits between an RMX jam server and a local client and
// remaps the MIDI notes the client hears into another key.
//
// Messages from the jam to the client have their notes remapped. Messages
// from the client go to the jam untouched.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/rtt"
	"github.com/rapidmidiex/modeshift/transform"
	"github.com/rapidmidiex/modeshift/wsmsg"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DisplayName = "modeshift"

type (
	Options struct {
		// Upstream is the jam server base URL, ex: "wss://rmx.fly.dev/ws".
		// The path of each incoming request is appended to it.
		Upstream string
		// Announce sends the client a chat message describing the remap
		// when it connects.
		Announce bool
		Dialer   *websocket.Dialer
	}

	Relay struct {
		remapper *transform.Remapper
		opts     Options
		id       uuid.UUID
		upgrader websocket.Upgrader
		latency  *rtt.Window
		log      *logrus.Entry
	}
)

func New(r *transform.Remapper, opts Options) *Relay {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	id := uuid.New()
	return &Relay{
		remapper: r,
		opts:     opts,
		id:       id,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		latency: rtt.NewWindow(256),
		log: logrus.WithFields(logrus.Fields{
			"relay": id.String(),
			"remap": r.Describe(),
		}),
	}
}

// ID is the user ID the relay signs its own messages with.
func (rl *Relay) ID() uuid.UUID { return rl.id }

// Latency reports how long remapping took for recent messages.
func (rl *Relay) Latency() rtt.Stats { return rl.latency.Stats() }

// ServeHTTP upgrades the client connection, dials the jam server and relays
// until either side goes away or the request context is done. Give the
// http.Server a BaseContext to end sessions on shutdown.
func (rl *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	target := strings.TrimRight(rl.opts.Upstream, "/") + req.URL.Path
	upstream, _, err := rl.opts.Dialer.DialContext(req.Context(), target, nil)
	if err != nil {
		rl.log.WithError(err).WithField("upstream", target).Error("dial jam")
		http.Error(w, "jam unavailable", http.StatusBadGateway)
		return
	}

	client, err := rl.upgrader.Upgrade(w, req, nil)
	if err != nil {
		upstream.Close()
		rl.log.WithError(err).Warn("upgrade client")
		return
	}

	log := rl.log.WithField("upstream", target)
	log.Info("client connected")
	if err := rl.Run(req.Context(), upstream, client); err != nil {
		log.WithError(err).Info("relay closed")
	}
	stats := rl.Latency()
	log.WithFields(logrus.Fields{
		"messages": stats.Count,
		"avg":      stats.Avg,
		"max":      stats.Max,
	}).Info("client disconnected")
}

// Run relays between the two connections until one of them fails or ctx is
// done. Both connections are closed on return.
func (rl *Relay) Run(ctx context.Context, upstream, client *websocket.Conn) error {
	if rl.opts.Announce {
		if err := rl.announce(client); err != nil {
			upstream.Close()
			client.Close()
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		upstream.Close()
		client.Close()
		return nil
	})
	g.Go(func() error {
		return rl.pipe(upstream, client, true)
	})
	g.Go(func() error {
		return rl.pipe(client, upstream, false)
	})

	err := g.Wait()
	if isClosed(err) {
		return nil
	}
	return err
}

func (rl *Relay) announce(client *websocket.Conn) error {
	env, err := wsmsg.New(wsmsg.TEXT, rl.id, wsmsg.TextMsg{
		DisplayName: DisplayName,
		Body:        "notes remapped " + rl.remapper.Describe(),
	})
	if err != nil {
		return fmt.Errorf("announce: %w", err)
	}
	if err := client.WriteJSON(env); err != nil {
		return fmt.Errorf("announce: %w", err)
	}
	return nil
}

// pipe copies messages from src to dst. It always returns an error, a
// closed connection included, so the errgroup cancels the other direction.
func (rl *Relay) pipe(src, dst *websocket.Conn, remap bool) error {
	for {
		typ, data, err := src.ReadMessage()
		if err != nil {
			return fmt.Errorf("readMessage: %w", err)
		}

		if remap && typ == websocket.TextMessage {
			var ok bool
			if data, ok, err = rl.forward(data); err != nil {
				return err
			}
			if !ok {
				continue
			}
		}

		if err := dst.WriteMessage(typ, data); err != nil {
			return fmt.Errorf("writeMessage: %w", err)
		}
	}
}

// forward returns the bytes to send on for a message from the jam. Only
// readable MIDI envelopes are rewritten; anything else, including envelope
// types this relay does not know, goes through as it came. It reports
// false when the message should be dropped.
func (rl *Relay) forward(data []byte) ([]byte, bool, error) {
	var env wsmsg.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		rl.log.WithError(err).Debug("passing through unknown message")
		return data, true, nil
	}
	if env.Typ != wsmsg.MIDI {
		return data, true, nil
	}

	start := time.Now()
	ok, err := rl.remap(&env)
	if err != nil {
		rl.log.WithError(err).Warn("passing through unreadable MIDI message")
		return data, true, nil
	}
	rl.latency.Add(time.Since(start))
	if !ok {
		return nil, false, nil
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, false, fmt.Errorf("marshal envelope: %w", err)
	}
	return out, true, nil
}

// remap rewrites the note of a MIDI envelope in place. It reports false
// when the remapped note no longer fits the MIDI range and the message
// should be dropped.
func (rl *Relay) remap(env *wsmsg.Envelope) (bool, error) {
	var msg wsmsg.MIDIMsg
	if err := env.Unwrap(&msg); err != nil {
		return false, fmt.Errorf("unmarshal MIDIMsg: %w", err)
	}
	ev := rl.remapper.Transform([]transform.Event{msg.Event()})[0]
	if !pitch.InRange(ev.Pitch) {
		rl.log.WithFields(logrus.Fields{
			"from": msg.Number,
			"to":   ev.Pitch,
		}).Warn("remapped note out of range, dropped")
		return false, nil
	}
	out := wsmsg.FromEvent(ev)
	rl.log.WithFields(logrus.Fields{
		"from": msg.Number,
		"to":   out.Number,
	}).Debug("note remapped")
	if err := env.SetPayload(out); err != nil {
		return false, fmt.Errorf("marshal MIDIMsg: %w", err)
	}
	return true, nil
}

// isClosed reports whether err is an orderly shutdown of either side.
func isClosed(err error) bool {
	if err == nil || errors.Is(err, net.ErrClosed) {
		return true
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}
