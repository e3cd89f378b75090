package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"concord/internal/event"
)

func drain(s *session) []string {
	var out []string
	for {
		select {
		case payload := <-s.queue:
			out = append(out, string(payload))
		default:
			return out
		}
	}
}

func TestEnqueueKeepsOrder(t *testing.T) {
	s := &session{queue: make(chan []byte, queueDepth)}

	for i := 0; i < queueDepth; i++ {
		s.enqueue([]byte(fmt.Sprintf("p%d", i)))
	}
	got := drain(s)
	if len(got) != queueDepth {
		t.Fatalf("got %d payloads, want %d", len(got), queueDepth)
	}
	for i, payload := range got {
		if payload != fmt.Sprintf("p%d", i) {
			t.Fatalf("payload %d = %q", i, payload)
		}
	}
}

func TestEnqueueOverflowShedsOldest(t *testing.T) {
	s := &session{queue: make(chan []byte, queueDepth)}

	for i := 0; i < queueDepth; i++ {
		s.enqueue([]byte(fmt.Sprintf("p%d", i)))
	}
	// One past the depth: the oldest payload goes, a slow-client notice
	// takes a slot, the new payload is shed.
	s.enqueue([]byte("overflow"))

	got := drain(s)
	if len(got) != queueDepth {
		t.Fatalf("got %d payloads, want %d", len(got), queueDepth)
	}
	if got[0] != "p1" {
		t.Fatalf("oldest payload not shed, head = %q", got[0])
	}
	for _, payload := range got {
		if payload == "overflow" || payload == "p0" {
			t.Fatalf("%q should have been shed", payload)
		}
	}

	var env event.Envelope
	if err := json.Unmarshal([]byte(got[len(got)-1]), &env); err != nil {
		t.Fatalf("tail not an envelope: %v", err)
	}
	if env.Event != event.Error {
		t.Fatalf("tail event = %q, want Error", env.Event)
	}
	var ee event.ErrorEntity
	if err := json.Unmarshal(env.Entity, &ee); err != nil {
		t.Fatalf("entity: %v", err)
	}
	if ee.Message != "slow client" {
		t.Fatalf("message = %q", ee.Message)
	}
}

func TestEnqueueRecoversAfterDrain(t *testing.T) {
	s := &session{queue: make(chan []byte, queueDepth)}

	for i := 0; i < queueDepth+3; i++ {
		s.enqueue([]byte(fmt.Sprintf("p%d", i)))
	}
	drain(s)

	// Once drained the queue accepts payloads again without dropping.
	s.enqueue([]byte("fresh"))
	got := drain(s)
	if len(got) != 1 || got[0] != "fresh" {
		t.Fatalf("queue did not recover: %v", got)
	}
}

func TestSubprotocolToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Authorization, abc123", "abc123", true},
		{"Authorization,abc123", "abc123", true},
		{"Authorization , abc123 ", "abc123", true},
		{"Authorization", "", false},
		{"abc123", "", false},
		{"Bearer, abc123", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/socket", nil)
		if tc.header != "" {
			r.Header.Set("Sec-WebSocket-Protocol", tc.header)
		}
		token, ok := subprotocolToken(r)
		if ok != tc.ok || token != tc.token {
			t.Errorf("subprotocolToken(%q) = %q, %v; want %q, %v", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}
