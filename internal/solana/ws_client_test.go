package solana

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// confirmServer upgrades one connection and answers every
// signatureSubscribe with a subscription id followed by a notification
// built by notify.
func confirmServer(t *testing.T, notify func(signature string) interface{}) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		subID := int64(0)
		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Method != "signatureSubscribe" {
				continue
			}
			subID++

			sig, _ := req.Params[0].(string)

			// Subscribe response first, then the notification.
			resp := map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  subID,
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}

			value := notify(sig)
			if value == nil {
				continue
			}
			notification := map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "signatureNotification",
				"params": map[string]interface{}{
					"subscription": subID,
					"result":       map[string]interface{}{"value": value},
				},
			}
			if err := conn.WriteJSON(notification); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_AwaitConfirmation(t *testing.T) {
	server := confirmServer(t, func(string) interface{} {
		return map[string]interface{}{"err": nil}
	})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.AwaitConfirmation(ctx, "sig1"); err != nil {
		t.Fatalf("AwaitConfirmation: %v", err)
	}
}

func TestWSClient_AwaitConfirmation_TransactionFailed(t *testing.T) {
	server := confirmServer(t, func(string) interface{} {
		return map[string]interface{}{
			"err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
		}
	})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = client.AwaitConfirmation(ctx, "sig1")
	if err == nil || !strings.Contains(err.Error(), "transaction failed") {
		t.Fatalf("expected transaction failed error, got %v", err)
	}
}

func TestWSClient_AwaitConfirmation_SubscribeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]interface{}{"code": -32602, "message": "invalid signature"},
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = client.AwaitConfirmation(ctx, "notasig")
	if err == nil || !strings.Contains(err.Error(), "invalid signature") {
		t.Fatalf("expected subscribe error, got %v", err)
	}
}

func TestWSClient_AwaitConfirmation_ContextCancelled(t *testing.T) {
	// Never notify: the waiter must unblock via its context.
	server := confirmServer(t, func(string) interface{} { return nil })
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = client.AwaitConfirmation(ctx, "sig1")
	if err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestWSClient_CloseUnblocksWaiters(t *testing.T) {
	server := confirmServer(t, func(string) interface{} { return nil })
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- client.AwaitConfirmation(context.Background(), "sig1")
	}()

	// Give the waiter a moment to subscribe before tearing down.
	time.Sleep(100 * time.Millisecond)
	client.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error after Close, got nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiter did not unblock after Close")
	}
}

func TestWSClient_AwaitAfterClose(t *testing.T) {
	server := confirmServer(t, func(string) interface{} { return nil })
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	client.Close()

	if err := client.AwaitConfirmation(context.Background(), "sig1"); err == nil {
		t.Fatal("expected error on a closed client, got nil")
	}
}

func TestWSClient_CustomConfig(t *testing.T) {
	server := confirmServer(t, func(string) interface{} {
		return map[string]interface{}{"err": nil}
	})
	defer server.Close()

	config := &WSConfig{
		HandshakeTimeout: 2 * time.Second,
		WriteTimeout:     2 * time.Second,
	}
	client, err := NewWSClient(context.Background(), wsURL(server), config)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	if client.config.HandshakeTimeout != 2*time.Second {
		t.Errorf("HandshakeTimeout = %v", client.config.HandshakeTimeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.AwaitConfirmation(ctx, "sig1"); err != nil {
		t.Fatalf("AwaitConfirmation: %v", err)
	}
}
