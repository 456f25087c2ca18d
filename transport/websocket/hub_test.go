package websocket

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/flipmatch/flipmatch/game/engine"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.games == nil {
		t.Error("Hub games map is nil")
	}
	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}
	if hub.register == nil {
		t.Error("Hub register channel is nil")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel is nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := &Client{
		hub:    hub,
		gameID: "abc12345",
		send:   make(chan []byte, 256),
	}

	hub.registerClient(client)

	if _, exists := hub.games["abc12345"]; !exists {
		t.Error("Game subscriber set was not created")
	}
	if !hub.games["abc12345"][client] {
		t.Error("Client was not registered for the game")
	}
	if len(hub.games["abc12345"]) != 1 {
		t.Errorf("Expected 1 client for the game, got %d", len(hub.games["abc12345"]))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	client := &Client{
		hub:    hub,
		gameID: "abc12345",
		send:   make(chan []byte, 256),
	}

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.games["abc12345"]; exists {
		t.Error("Empty game subscriber set should be pruned")
	}

	// The send channel must be closed so the write pump exits.
	if _, open := <-client.send; open {
		t.Error("Client send channel should be closed")
	}
}

func TestHubBroadcastGame(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	watcher := &Client{hub: hub, gameID: "abc12345", send: make(chan []byte, 256)}
	other := &Client{hub: hub, gameID: "zzz99999", send: make(chan []byte, 256)}
	hub.registerClient(watcher)
	hub.registerClient(other)

	sess, err := engine.NewSession(2, 2, "eighties", engine.VisibilityPublic, 10)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	sess.ID = "abc12345"

	hub.broadcastMessage(&Message{GameID: sess.ID, Event: "game_update", Game: sess})

	select {
	case data := <-watcher.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to decode broadcast frame: %v", err)
		}
		if msg.Event != "game_update" {
			t.Errorf("Expected game_update event, got %s", msg.Event)
		}
		if msg.Game == nil || msg.Game.ID != "abc12345" {
			t.Error("Broadcast frame missing the session payload")
		}
	default:
		t.Fatal("Watcher did not receive the broadcast")
	}

	select {
	case <-other.send:
		t.Error("Client of another game received the broadcast")
	default:
	}
}

func TestHubBroadcastLobbyReachesEveryone(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	lobby := &Client{hub: hub, gameID: "", send: make(chan []byte, 256)}
	inGame := &Client{hub: hub, gameID: "abc12345", send: make(chan []byte, 256)}
	hub.registerClient(lobby)
	hub.registerClient(inGame)

	hub.broadcastMessage(&Message{Event: "lobby_update", Games: []engine.Summary{{ID: "abc12345", Size: "4x4"}}})

	for name, c := range map[string]*Client{"lobby": lobby, "inGame": inGame} {
		select {
		case data := <-c.send:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("Failed to decode frame for %s: %v", name, err)
			}
			if msg.Event != "lobby_update" || len(msg.Games) != 1 {
				t.Errorf("%s received malformed lobby frame: %+v", name, msg)
			}
		default:
			t.Errorf("%s did not receive the lobby broadcast", name)
		}
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	slow := &Client{hub: hub, gameID: "abc12345", send: make(chan []byte)} // unbuffered, always full
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{GameID: "abc12345", Event: "game_update"})

	if _, exists := hub.games["abc12345"]; exists {
		t.Error("Slow client should have been dropped and the set pruned")
	}
}
