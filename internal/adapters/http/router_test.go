package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Rendezvous/internal/app"
	"github.com/dkeye/Rendezvous/internal/app/orch"
	"github.com/dkeye/Rendezvous/internal/config"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:              "test",
		Port:              5000,
		Secret:            "test-secret",
		ReadLimit:         1 << 16,
		PingPeriod:        time.Second,
		PongWait:          2 * time.Second,
		WriteWait:         time.Second,
		SendBuffer:        32,
		MaxProtocolErrors: 2,
		DefaultTopology:   "mesh",
	}
}

type testServer struct {
	*httptest.Server
	reg *app.Registry
	lc  *app.Lifecycle
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := app.NewRegistry(app.SimplePolicy{})
	rooms := app.NewRoomManager()
	lc := app.NewLifecycle(reg, rooms)
	o := orch.New(reg, rooms, lc, domain.TopologyMesh)
	ice := []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}

	srv := httptest.NewServer(SetupRouter(context.Background(), testConfig(), o, ice))
	t.Cleanup(func() {
		reg.CloseAll()
		srv.Close()
	})
	return &testServer{Server: srv, reg: reg, lc: lc}
}

type wsEvent struct {
	Type       string          `json:"type"`
	RoomID     string          `json:"roomId"`
	ID         string          `json:"id"`
	Members    []domain.Member `json:"members"`
	SenderID   string          `json:"senderId"`
	SignalType string          `json:"signalType"`
	Code       string          `json:"code"`
	Payload    json.RawMessage `json:"payload"`
	raw        string
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func (s *testServer) dial(t *testing.T) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	c := &wsClient{t: t, conn: conn}
	welcome := c.read()
	require.Equal(t, "welcome", welcome.Type)
	require.NotEmpty(t, welcome.ID)
	c.id = welcome.ID
	return c
}

func (c *wsClient) send(msg string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func (c *wsClient) read() wsEvent {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	var ev wsEvent
	require.NoError(c.t, json.Unmarshal(data, &ev))
	ev.raw = string(data)
	return ev
}

func (c *wsClient) expect(typ string) wsEvent {
	c.t.Helper()
	ev := c.read()
	require.Equal(c.t, typ, ev.Type, ev.raw)
	return ev
}

func TestSignalingFlow(t *testing.T) {
	s := newTestServer(t)
	a := s.dial(t)
	b := s.dial(t)
	assert.NotEqual(t, a.id, b.id)

	a.send(`{"kind":"join","roomId":"R"}`)
	joined := a.expect("joined")
	assert.Equal(t, "R", joined.RoomID)
	assert.Empty(t, joined.Members)

	b.send(`{"kind":"join","roomId":"R"}`)
	joined = b.expect("joined")
	require.Len(t, joined.Members, 1)
	assert.Equal(t, domain.ConnID(a.id), joined.Members[0].ID)
	assert.Equal(t, b.id, a.expect("member-joined").ID)

	payload := `{"candidate":"candidate:0 1 UDP 2122194687 192.168.1.2 54321 typ host","sdpMid":"0","sdpMLineIndex":0}`
	a.send(`{"kind":"signal","targetId":"` + b.id + `","signalType":"candidate","senderId":"forged","payload":` + payload + `}`)
	sig := b.expect("signal")
	assert.Equal(t, a.id, sig.SenderID)
	assert.Equal(t, "candidate", sig.SignalType)
	assert.Equal(t, payload, string(sig.Payload))

	a.send(`{"kind":"whoami"}`)
	who := a.expect("whoami")
	assert.Equal(t, a.id, who.ID)
	assert.Equal(t, "R", who.RoomID)

	require.NoError(t, b.conn.Close())
	assert.Equal(t, b.id, a.expect("member-left").ID)

	a.send(`{"kind":"leave"}`)
	assert.Equal(t, "R", a.expect("left").RoomID)
	assert.Eventually(t, func() bool { return s.lc.ActiveSessions() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroadcastOverWebSocket(t *testing.T) {
	s := newTestServer(t)
	v := s.dial(t)
	b := s.dial(t)

	v.send(`{"type":"viewer","sessionId":"S"}`)
	v.expect("joined")

	v.send(`{"kind":"signal","signalType":"offer","payload":{"type":"offer","sdp":"v=0"}}`)
	v.expect("no-target")

	b.send(`{"kind":"join","roomId":"S","role":"broadcaster"}`)
	b.expect("joined")
	v.expect("member-joined")

	b2 := s.dial(t)
	b2.send(`{"kind":"join","roomId":"S","role":"broadcaster"}`)
	assert.Equal(t, "duplicate-role", b2.expect("error").Code)

	require.NoError(t, b.conn.Close())
	assert.Equal(t, "S", v.expect("broadcaster-gone").RoomID)
}

func TestMalformedMessagesCloseConnection(t *testing.T) {
	s := newTestServer(t)
	c := s.dial(t)

	c.send(`{"kind":"dance"}`)
	assert.Equal(t, "unknown-kind", c.expect("error").Code)

	c.send(`{"kind":"ping"}`)
	c.expect("pong")

	c.send(`not json`)
	assert.Equal(t, "bad-json", c.expect("error").Code)
	c.send(`{}`)

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		assert.True(t, websocket.IsCloseError(err, websocket.CloseProtocolError), err.Error())
		break
	}
	assert.Eventually(t, func() bool { return s.reg.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCreateSession(t *testing.T) {
	s := newTestServer(t)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	get := func(path string, out any) int {
		resp, err := client.Get(s.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		if out != nil {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
		}
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusNotFound, get("/api/sessions/last", nil))

	var first, second struct {
		SessionID string `json:"sessionId"`
	}
	require.Equal(t, http.StatusOK, get("/create-session", &first))
	require.Equal(t, http.StatusOK, get("/create-session", &second))
	assert.NotEqual(t, first.SessionID, second.SessionID)

	var last struct {
		SessionID string `json:"sessionId"`
	}
	require.Equal(t, http.StatusOK, get("/api/sessions/last", &last))
	assert.Equal(t, second.SessionID, last.SessionID)

	var health struct {
		Status         string `json:"status"`
		ActiveSessions int    `json:"activeSessions"`
	}
	require.Equal(t, http.StatusOK, get("/", &health))
	assert.Equal(t, 0, health.ActiveSessions, "creating a session id does not open a room")
}

func TestRoomAndICEEndpoints(t *testing.T) {
	s := newTestServer(t)
	c := s.dial(t)
	c.send(`{"kind":"join","roomId":"lobby"}`)
	c.expect("joined")

	resp, err := http.Get(s.URL + "/api/rooms/lobby")
	require.NoError(t, err)
	var info struct {
		ID          string `json:"id"`
		Topology    string `json:"topology"`
		MemberCount int    `json:"memberCount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	_ = resp.Body.Close()
	assert.Equal(t, "lobby", info.ID)
	assert.Equal(t, "mesh", info.Topology)
	assert.Equal(t, 1, info.MemberCount)

	resp, err = http.Get(s.URL + "/api/rooms/nope")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(s.URL + "/api/ice-servers")
	require.NoError(t, err)
	var ice struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ice))
	_ = resp.Body.Close()
	require.Len(t, ice.ICEServers, 1)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, ice.ICEServers[0].URLs)
}
