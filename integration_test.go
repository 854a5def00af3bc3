package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// ---------- helpers ----------

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

type testServer struct {
	srv   *httptest.Server
	wsURL string
	game  *Game
	hub   *Hub
}

// startTestServer spins up an httptest.Server with a Game and Hub. The
// physics loop is not started; tests drive ticks themselves when needed.
func startTestServer(t *testing.T, cfg *Config, admin func(*Game, *Hub) *Admin) *testServer {
	t.Helper()

	// Create a temp client dir with a minimal index.html
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<html>test</html>"), 0o644)
	cfg.Server.ClientDir = tmpDir

	game := NewGame(cfg, GameOptions{Seed: 1})
	hub := NewHub(game, cfg.Server, nil)
	go hub.Run()

	var a *Admin
	if admin != nil {
		a = admin(game, hub)
	}
	srv := httptest.NewServer(SetupRoutes(hub, a, cfg))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return &testServer{
		srv:   srv,
		wsURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		game:  game,
		hub:   hub,
	}
}

// dialWS opens a WebSocket connection to the test server.
func dialWS(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial WS: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEnvelope reads one message from the WebSocket. Binary frames are
// msgpack-encoded GameState.
func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read WS: %v", err)
	}
	if msgType == websocket.BinaryMessage {
		var gs GameState
		if err := msgpack.Unmarshal(raw, &gs); err != nil {
			t.Fatalf("msgpack unmarshal: %v", err)
		}
		return Envelope{T: MsgState, Data: gs}
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

// readUntil skips messages until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) Envelope {
	t.Helper()
	for i := 0; i < 20; i++ {
		if env := readEnvelope(t, conn); env.T == want {
			return env
		}
	}
	t.Fatalf("no %s message received", want)
	return Envelope{}
}

// sendMsg sends a typed message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, data interface{}) {
	t.Helper()
	env := Envelope{T: msgType, Data: data}
	raw, _ := json.Marshal(env)
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write WS: %v", err)
	}
}

// dataMap extracts the Data field as map[string]interface{}.
func dataMap(t *testing.T, env Envelope) map[string]interface{} {
	t.Helper()
	raw, _ := json.Marshal(env.Data)
	var m map[string]interface{}
	json.Unmarshal(raw, &m)
	return m
}

// joinArena joins and consumes the welcome, state and join notice.
// Returns the player id.
func joinArena(t *testing.T, conn *websocket.Conn, name string) string {
	t.Helper()
	sendMsg(t, conn, MsgJoin, map[string]string{"name": name, "color": "#00FF00"})
	welcome := readEnvelope(t, conn)
	if welcome.T != MsgWelcome {
		t.Fatalf("expected welcome, got %s", welcome.T)
	}
	id, _ := dataMap(t, welcome)["yourId"].(string)
	state := readEnvelope(t, conn)
	if state.T != MsgState {
		t.Fatalf("expected state after welcome, got %s", state.T)
	}
	readUntil(t, conn, MsgNotice)
	return id
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// ---------- UUID generation tests ----------

func TestGenerateUUIDFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		id := GenerateUUID()
		if !uuidRegex.MatchString(id) {
			t.Errorf("GenerateUUID() = %q, does not match UUID v4 format", id)
		}
	}
}

func TestGenerateUUIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateUUID()
		if seen[id] {
			t.Fatalf("duplicate UUID generated: %s", id)
		}
		seen[id] = true
	}
}

// ---------- WebSocket flow ----------

func TestJoinWelcomeAndState(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	conn := dialWS(t, ts.wsURL)

	sendMsg(t, conn, MsgJoin, map[string]string{"name": "Ace", "color": "#00FF00"})
	welcome := readEnvelope(t, conn)
	if welcome.T != MsgWelcome {
		t.Fatalf("expected welcome, got %s", welcome.T)
	}
	d := dataMap(t, welcome)
	id, _ := d["yourId"].(string)
	if !uuidRegex.MatchString(id) {
		t.Errorf("player id %q is not a UUID", id)
	}
	if ws, ok := d["worldSize"].(map[string]interface{}); !ok || ws["width"] != 3000.0 {
		t.Errorf("unexpected world size %v", d["worldSize"])
	}

	state := readEnvelope(t, conn)
	if state.T != MsgState {
		t.Fatalf("expected binary state, got %s", state.T)
	}
	gs := state.Data.(GameState)
	if len(gs.Players) != 1 || gs.Players[0].ID != id {
		t.Errorf("state should contain only the new player, got %+v", gs.Players)
	}
	if ts.game.PlayerCount() != 1 {
		t.Errorf("expected 1 player, got %d", ts.game.PlayerCount())
	}
}

func TestChatRelay(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	a := dialWS(t, ts.wsURL)
	b := dialWS(t, ts.wsURL)
	joinArena(t, a, "Alice")
	joinArena(t, b, "Bob")

	sendMsg(t, a, MsgChat, map[string]string{"text": "  hi <there>  "})
	for _, conn := range []*websocket.Conn{a, b} {
		msg := readUntil(t, conn, MsgChat)
		d := dataMap(t, msg)
		if d["name"] != "Alice" || d["text"] != "hi there" {
			t.Errorf("unexpected chat %v", d)
		}
	}
}

func TestMessagesBeforeJoinIgnored(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	conn := dialWS(t, ts.wsURL)
	sendMsg(t, conn, MsgMove, map[string]float64{"x": 1, "y": 2})
	sendMsg(t, conn, MsgChat, map[string]string{"text": "anyone?"})
	conn.WriteMessage(websocket.TextMessage, []byte("{not json"))

	id := joinArena(t, conn, "Late")
	if id == "" {
		t.Fatal("join should still work after ignored messages")
	}
	if ts.game.Metrics().IntentsQueued.Load() != 0 {
		t.Error("intents before join should not be queued")
	}
}

func TestMoveIntentReachesGame(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	conn := dialWS(t, ts.wsURL)
	joinArena(t, conn, "Mover")

	sendMsg(t, conn, MsgMove, map[string]float64{"x": 10, "y": 20})
	sendMsg(t, conn, MsgMove, map[string]interface{}{"x": nil, "y": 20})
	waitFor(t, "queued intent", func() bool { return ts.game.Metrics().IntentsQueued.Load() == 1 })
}

func TestDisconnectRemovesPlayer(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	a := dialWS(t, ts.wsURL)
	b := dialWS(t, ts.wsURL)
	joinArena(t, a, "Stayer")
	joinArena(t, b, "Leaver")
	if ts.game.PlayerCount() != 2 {
		t.Fatalf("expected 2 players, got %d", ts.game.PlayerCount())
	}

	b.Close()
	waitFor(t, "player removal", func() bool { return ts.game.PlayerCount() == 1 })
	left := false
	for i := 0; i < 5 && !left; i++ {
		text, _ := dataMap(t, readUntil(t, a, MsgNotice))["text"].(string)
		left = strings.Contains(text, "Leaver left")
	}
	if !left {
		t.Error("remaining player should be told who left")
	}
	waitFor(t, "connection release", func() bool { return ts.hub.TotalConns() == 1 })
}

func TestRejoinReplacesAvatar(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	conn := dialWS(t, ts.wsURL)
	first := joinArena(t, conn, "Twice")
	second := joinArena(t, conn, "Twice")
	if first == second {
		t.Fatal("re-join should create a new player")
	}
	if ts.game.PlayerCount() != 1 {
		t.Errorf("expected the old avatar removed, got %d players", ts.game.PlayerCount())
	}
}

func TestRateLimitBansIP(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxMessagesPerSec = 5
	ts := startTestServer(t, cfg, nil)
	conn := dialWS(t, ts.wsURL)

	for i := 0; i < 10; i++ {
		raw, _ := json.Marshal(Envelope{T: MsgChat, Data: map[string]string{"text": "spam"}})
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			break
		}
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var ne interface{ Timeout() bool }
			if errors.As(err, &ne) && ne.Timeout() {
				t.Fatal("connection should be closed by the server")
			}
			break
		}
	}

	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL, nil)
	if err == nil {
		t.Fatal("banned ip should not be able to reconnect")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for a banned ip, got %v", resp)
	}
	if ts.game.Metrics().RateKicks.Load() != 1 {
		t.Error("rate kick should be counted")
	}
}

func TestConnectionCapPerIP(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxConnsPerIP = 1
	ts := startTestServer(t, cfg, nil)
	dialWS(t, ts.wsURL)
	waitFor(t, "first connection", func() bool { return ts.hub.TotalConns() == 1 })

	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL, nil)
	if err == nil {
		t.Fatal("second connection from the same ip should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", resp)
	}
}

func TestCrossOriginRejected(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	hdr := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(ts.wsURL, hdr); err == nil {
		t.Error("foreign origin should be refused")
	}
}

func TestKickedClientGetsErrorThenClose(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	conn := dialWS(t, ts.wsURL)
	id := joinArena(t, conn, "Cheater")

	now := time.Now()
	for i := 0; i < ts.game.cfg.AntiCheat.MaxWarnings; i++ {
		ts.game.mu.Lock()
		p, ok := ts.game.store.Player(id)
		if ok {
			p.AimX, p.AimY = p.X+1000, p.Y
			p.VX = 100
		}
		ts.game.mu.Unlock()
		now = now.Add(ts.game.cfg.TickDuration())
		out, clients := ts.game.step(now)
		ts.game.deliver(out, clients)
	}

	readUntil(t, conn, MsgError)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			t.Errorf("expected policy violation close, got %v", err)
		}
		break
	}
}

// ---------- HTTP routes ----------

func TestHealthz(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	resp, err := http.Get(ts.srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if resp.StatusCode != http.StatusOK || body["ok"] != true {
		t.Errorf("unexpected health response %d %v", resp.StatusCode, body)
	}
}

func TestInviteQRCode(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	resp, err := http.Get(ts.srv.URL + "/invite.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("body is not a PNG")
	}
}

func TestInviteURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://arena.local:3000/invite.png", nil)
	if got := InviteURL("", r); got != "http://arena.local:3000/" {
		t.Errorf("unexpected url %s", got)
	}
	if got := InviteURL("https://play.example/", r); got != "https://play.example/" {
		t.Errorf("public url should win, got %s", got)
	}
}

func TestStaticFilesNoCache(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	resp, err := http.Get(ts.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Error("static files should be served with no-cache")
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "test") {
		t.Errorf("unexpected index body %q", body)
	}
}

func TestAdminNotMountedWithoutAdmin(t *testing.T) {
	ts := startTestServer(t, testConfig(), nil)
	resp, err := http.Post(ts.srv.URL+"/admin/login", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Error("admin api should not be served")
	}
}
