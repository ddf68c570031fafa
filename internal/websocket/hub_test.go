package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func TestHub_BroadcastAndReplay(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	first := NewClient(h, nil)
	if !h.Add(first) {
		t.Fatal("hub refused client")
	}

	msg, err := NewMessage(ActionAggregations, []int{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Broadcast(ActionAggregations, msg)

	var got Message
	if err := json.Unmarshal(receive(t, first), &got); err != nil {
		t.Fatalf("decoding message: %v", err)
	}
	if got.Action != ActionAggregations {
		t.Errorf("action = %q, want %q", got.Action, ActionAggregations)
	}

	// A client joining later receives the latest snapshot immediately.
	second := NewClient(h, nil)
	h.Add(second)
	if replay := receive(t, second); string(replay) != string(msg) {
		t.Errorf("replay = %s, want %s", replay, msg)
	}
}

func TestHub_ErrorsAreNotReplayed(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	h.Broadcast(ActionError, NewErrorMessage("query failed"))

	c := NewClient(h, nil)
	h.Add(c)
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected replay %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RemoveClosesSend(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	c := NewClient(h, nil)
	h.Add(c)
	h.Remove(c)

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close")
	}
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	h := NewHub()
	go h.Run()
	h.Stop()

	done := make(chan struct{})
	go func() {
		c := NewClient(h, nil)
		h.Add(c)
		h.Broadcast(ActionRecentEvents, []byte("{}"))
		h.Remove(c)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub operations blocked after Stop")
	}
}

func TestNewErrorMessage(t *testing.T) {
	var m struct {
		Action  string            `json:"action"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(NewErrorMessage("boom"), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Action != ActionError || m.Payload["error"] != "boom" {
		t.Errorf("unexpected message %+v", m)
	}
}
