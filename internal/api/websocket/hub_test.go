package websocket

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KevinKickass/OpenPowerCore/internal/auth"
	"github.com/KevinKickass/OpenPowerCore/internal/board"
	"github.com/KevinKickass/OpenPowerCore/internal/config"
	"github.com/KevinKickass/OpenPowerCore/internal/hotplug"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

type fakeSnapshots struct{}

func (fakeSnapshots) DumpState(string) ([]board.InterfaceSnapshot, error) {
	return []board.InterfaceSnapshot{{ID: 1, Name: "apb1"}}, nil
}

func startHub(t *testing.T, authService *auth.AuthService) (*Hub, string) {
	t.Helper()
	hub := NewHub(zaptest.NewLogger(t), authService)
	hub.SetSnapshotProvider(fakeSnapshots{})
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r)
	}))
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// readMessages splits coalesced frames into individual messages.
func readMessages(t *testing.T, conn *websocket.Conn) []Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out []Message
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, msg)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubSnapshotAndBroadcast(t *testing.T) {
	hub, url := startHub(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgs := readMessages(t, conn)
	if msgs[0].Type != MessageTypeSnapshot {
		t.Fatalf("expected snapshot first, got %s", msgs[0].Type)
	}
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.HotplugListener()(board.HotplugEvent{
		ID:        uuid.New(),
		Interface: "spring1",
		From:      hotplug.StateUnplugged,
		To:        hotplug.StatePlugged,
		Timestamp: time.Now(),
	})

	msgs = readMessages(t, conn)
	if msgs[0].Type != MessageTypeHotplug {
		t.Fatalf("expected hotplug, got %s", msgs[0].Type)
	}
	data, _ := json.Marshal(msgs[0].Data)
	if !strings.Contains(string(data), `"to":"plugged"`) {
		t.Errorf("unexpected hotplug payload %s", data)
	}

	if err := conn.WriteJSON(map[string]string{"type": "snapshot"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msgs := readMessages(t, conn); msgs[0].Type != MessageTypeSnapshot {
		t.Errorf("expected snapshot on request, got %s", msgs[0].Type)
	}

	conn.Close()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
}

func TestHubRequiresAuth(t *testing.T) {
	token, hash, err := auth.GenerateServiceToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	authService := auth.NewAuthService(config.AuthConfig{
		Enabled:       true,
		ServiceTokens: []config.ServiceTokenConfig{{Name: "ci", TokenHash: hash, Role: config.RoleViewer}},
	}, zaptest.NewLogger(t))
	hub, url := startHub(t, authService)

	t.Run("rejects non-auth first message", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		conn.WriteJSON(map[string]string{"type": "snapshot"})
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var reply map[string]interface{}
		if err := conn.ReadJSON(&reply); err != nil {
			t.Fatalf("read: %v", err)
		}
		if reply["type"] != "auth_failed" {
			t.Errorf("expected auth_failed, got %v", reply)
		}
	})

	t.Run("accepts service token", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		conn.WriteJSON(map[string]string{"type": "auth", "token": token})
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Contains(data, []byte(`"auth_success"`)) {
			t.Errorf("expected auth_success, got %s", data)
		}
		waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	})
}
