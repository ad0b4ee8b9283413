package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/relay"
	"github.com/rapidmidiex/modeshift/scale"
	"github.com/rapidmidiex/modeshift/transform"
	"github.com/rapidmidiex/modeshift/wsmsg"
	"github.com/stretchr/testify/require"
)

type jam struct {
	srv      *httptest.Server
	paths    chan string
	received chan wsmsg.Envelope
}

// newJam starts a fake jam server that sends msgs to every client and then
// reports whatever the client sends back.
func newJam(t *testing.T, msgs ...any) *jam {
	t.Helper()
	j := &jam{
		paths:    make(chan string, 1),
		received: make(chan wsmsg.Envelope, 8),
	}
	upgrader := websocket.Upgrader{}
	j.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		j.paths <- r.URL.Path
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for _, m := range msgs {
			if err := ws.WriteJSON(m); err != nil {
				return
			}
		}
		for {
			var env wsmsg.Envelope
			if err := ws.ReadJSON(&env); err != nil {
				return
			}
			j.received <- env
		}
	}))
	t.Cleanup(j.srv.Close)
	return j
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func midiEnvelope(t *testing.T, state wsmsg.NoteState, number int) wsmsg.Envelope {
	t.Helper()
	env, err := wsmsg.New(wsmsg.MIDI, uuid.New(), wsmsg.MIDIMsg{State: state, Number: number, Velocity: 100})
	require.NoError(t, err)
	return env
}

func readMIDI(t *testing.T, ws *websocket.Conn) (wsmsg.Envelope, wsmsg.MIDIMsg) {
	t.Helper()
	var env wsmsg.Envelope
	require.NoError(t, ws.ReadJSON(&env))
	require.Equal(t, wsmsg.MIDI, env.Typ)
	var msg wsmsg.MIDIMsg
	require.NoError(t, env.Unwrap(&msg))
	return env, msg
}

func startRelay(t *testing.T, upstream string, from, to transform.Key) (*relay.Relay, *websocket.Conn) {
	t.Helper()
	r, err := transform.New(scale.Default(), from, to, transform.WithNoteOff(true))
	require.NoError(t, err)
	rl := relay.New(r, relay.Options{Upstream: upstream, Announce: true})
	srv := httptest.NewServer(rl)
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"/jam/abc", nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello wsmsg.Envelope
	require.NoError(t, ws.ReadJSON(&hello))
	require.Equal(t, wsmsg.TEXT, hello.Typ)
	require.Equal(t, rl.ID(), hello.UserID)
	return rl, ws
}

func TestRelay(t *testing.T) {
	ionianC := transform.Key{Scale: "Ionian", Root: pitch.C}

	t.Run("remaps notes from the jam and passes the rest through", func(t *testing.T) {
		on := midiEnvelope(t, wsmsg.NOTE_ON, 64)
		off := midiEnvelope(t, wsmsg.NOTE_OFF, 64)
		text, err := wsmsg.New(wsmsg.TEXT, uuid.New(), wsmsg.TextMsg{DisplayName: "ann", Body: "hello"})
		require.NoError(t, err)

		j := newJam(t, on, off, text)
		rl, ws := startRelay(t, wsURL(j.srv), ionianC, transform.Key{Scale: "Aeolian", Root: pitch.C})
		require.Equal(t, "/jam/abc", <-j.paths)

		env, msg := readMIDI(t, ws)
		require.Equal(t, on.ID, env.ID)
		require.Equal(t, on.UserID, env.UserID)
		require.Equal(t, wsmsg.MIDIMsg{State: wsmsg.NOTE_ON, Number: 63, Velocity: 100}, msg)

		_, msg = readMIDI(t, ws)
		require.Equal(t, wsmsg.NOTE_OFF, msg.State)
		require.Equal(t, 63, msg.Number)

		var gotText wsmsg.Envelope
		require.NoError(t, ws.ReadJSON(&gotText))
		require.Equal(t, text.ID, gotText.ID)
		require.JSONEq(t, string(text.Payload), string(gotText.Payload))

		// The client's own notes reach the jam untouched.
		mine := midiEnvelope(t, wsmsg.NOTE_ON, 64)
		require.NoError(t, ws.WriteJSON(mine))
		select {
		case got := <-j.received:
			require.Equal(t, mine.ID, got.ID)
			require.JSONEq(t, string(mine.Payload), string(got.Payload))
		case <-time.After(5 * time.Second):
			t.Fatal("jam did not receive the client message")
		}

		require.Equal(t, 2, rl.Latency().Count)
	})

	t.Run("drops notes that leave the MIDI range", func(t *testing.T) {
		j := newJam(t,
			midiEnvelope(t, wsmsg.NOTE_ON, 127),
			midiEnvelope(t, wsmsg.NOTE_ON, 60),
		)
		_, ws := startRelay(t, wsURL(j.srv), ionianC, transform.Key{Scale: "Ionian", Root: pitch.B})

		_, msg := readMIDI(t, ws)
		require.Equal(t, 71, msg.Number)
	})

	t.Run("passes through envelope types it does not know", func(t *testing.T) {
		state := json.RawMessage(`{"id":"` + uuid.NewString() + `","type":"jam_state","userId":"` + uuid.NewString() + `","payload":{"bpm":120}}`)
		j := newJam(t, state, midiEnvelope(t, wsmsg.NOTE_ON, 64))
		_, ws := startRelay(t, wsURL(j.srv), ionianC, transform.Key{Scale: "Aeolian", Root: pitch.C})

		typ, data, err := ws.ReadMessage()
		require.NoError(t, err)
		require.Equal(t, websocket.TextMessage, typ)
		require.JSONEq(t, string(state), string(data))

		_, msg := readMIDI(t, ws)
		require.Equal(t, 63, msg.Number)
	})

	t.Run("ends the session when the request context is done", func(t *testing.T) {
		j := newJam(t)
		r, err := transform.New(scale.Default(), ionianC, ionianC)
		require.NoError(t, err)
		rl := relay.New(r, relay.Options{Upstream: wsURL(j.srv)})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rl.ServeHTTP(w, req.WithContext(ctx))
		}))
		defer srv.Close()

		ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"/jam/abc", nil)
		require.NoError(t, err)
		defer ws.Close()
		<-j.paths

		cancel()
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, _, err = ws.ReadMessage()
		require.Error(t, err)
		var nerr interface{ Timeout() bool }
		if errors.As(err, &nerr) {
			require.False(t, nerr.Timeout(), "relay kept the session open")
		}
	})

	t.Run("reports a bad gateway when the jam is down", func(t *testing.T) {
		r, err := transform.New(scale.Default(), ionianC, ionianC)
		require.NoError(t, err)
		srv := httptest.NewServer(relay.New(r, relay.Options{Upstream: "ws://127.0.0.1:1"}))
		defer srv.Close()

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+"/jam/x", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}
