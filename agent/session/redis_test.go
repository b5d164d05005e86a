package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUpstashRedisStoreRedisKeyUsesPrefix(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{keyPrefix: defaultKeyPrefix}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "cierre:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "cierre:session:abc")
	}
}

func TestUpstashRedisStoreRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	if _, err := store.redisKey("   "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestUpstashRedisStoreAppendPushesToList(t *testing.T) {
	t.Parallel()

	var commands [][]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var cmd []any
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			t.Errorf("decode command: %v", err)
		}
		commands = append(commands, cmd)
		fmt.Fprint(w, `{"result":1}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(0),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	msg := UserMessage("hola", time.Now())
	if err := store.Append(context.Background(), "session-1", msg); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if len(commands) != 1 {
		t.Fatalf("got %d commands, want 1 (ttl disabled)", len(commands))
	}
	cmd := commands[0]
	if len(cmd) != 3 {
		t.Fatalf("unexpected command shape: %#v", cmd)
	}
	if cmd[0] != "RPUSH" {
		t.Fatalf("command[0] = %v, want RPUSH", cmd[0])
	}
	if cmd[1] != "cierre:session:session-1" {
		t.Fatalf("command[1] = %v, want cierre:session:session-1", cmd[1])
	}

	var stored Message
	if err := json.Unmarshal([]byte(cmd[2].(string)), &stored); err != nil {
		t.Fatalf("unmarshal pushed message: %v", err)
	}
	if stored.Role != RoleUser || stored.Content != "hola" {
		t.Fatalf("pushed message = %+v", stored)
	}
}

func TestUpstashRedisStoreAppendSetsTTL(t *testing.T) {
	t.Parallel()

	var commands [][]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var cmd []any
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			t.Errorf("decode command: %v", err)
		}
		commands = append(commands, cmd)
		fmt.Fprint(w, `{"result":1}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(time.Hour),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	if err := store.Append(context.Background(), "session-1", UserMessage("hola", time.Now())); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if len(commands) != 2 {
		t.Fatalf("got %d commands, want RPUSH + EXPIRE", len(commands))
	}
	if commands[1][0] != "EXPIRE" {
		t.Fatalf("command[1][0] = %v, want EXPIRE", commands[1][0])
	}
	if commands[1][2] != float64(3600) {
		t.Fatalf("ttl seconds = %v, want 3600", commands[1][2])
	}
}

func TestUpstashRedisStoreHistoryDecodesMessages(t *testing.T) {
	t.Parallel()

	first, _ := json.Marshal(UserMessage("hola", time.Now()))
	second, _ := json.Marshal(AssistantMessage("buenas", time.Now()))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		payload, _ := json.Marshal(map[string]any{
			"result": []string{string(first), string(second)},
		})
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	got, err := store.History(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("History() = %d messages, want 2", len(got))
	}
	if got[0].Role != RoleUser || got[0].Content != "hola" {
		t.Fatalf("History()[0] = %+v", got[0])
	}
	if got[1].Role != RoleAssistant || got[1].Content != "buenas" {
		t.Fatalf("History()[1] = %+v", got[1])
	}
}

func TestUpstashRedisStoreSurfacesRedisError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGTYPE"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	if _, err := store.History(context.Background(), "session-1"); err == nil {
		t.Fatal("History() expected error, got nil")
	}
}

func TestNewUpstashRedisStoreValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "", Token: "t"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "https://example.upstash.io", Token: ""}); err == nil {
		t.Fatal("expected error for missing token")
	}
}
