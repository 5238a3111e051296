package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ChatRelay/global/config"
	"ChatRelay/module/user/model"
	"ChatRelay/tools/errs"
)

// fakeStore is an in-memory credential store for router tests.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*model.User
	bound   map[string]string // userID -> connID
	cleared []string
}

func newFakeStore(users ...*model.User) *fakeStore {
	s := &fakeStore{
		users: make(map[string]*model.User),
		bound: make(map[string]string),
	}
	for _, u := range users {
		s.users[u.UserID] = u
	}
	return s
}

func (s *fakeStore) FindByID(_ context.Context, userID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) BindConn(_ context.Context, userID, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound[userID] = connID
	return nil
}

func (s *fakeStore) ClearConn(_ context.Context, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, connID)
	return nil
}

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		AuthTimeout:   time.Second,
		OfflinePolicy: config.OfflineDrop,
		SendQueue:     8,
	}
}

func testUser(id, username string) *model.User {
	return &model.User{UserID: id, Username: username}
}

// directPayload builds a one-one-message data field in the wire shape:
// a JSON-encoded string holding the message object.
func directPayload(t *testing.T, fields map[string]string) json.RawMessage {
	t.Helper()
	inner, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		t.Fatalf("wrap payload: %v", err)
	}
	return outer
}

func recvFrame(t *testing.T, c *Client) *Frame {
	t.Helper()
	select {
	case b := <-c.Send:
		var f Frame
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("unmarshal outbound frame: %v", err)
		}
		return &f
	case <-time.After(time.Second):
		t.Fatalf("no frame received on conn %s within 1s", c.ConnID)
		return nil
	}
}

func recvError(t *testing.T, c *Client) string {
	t.Helper()
	f := recvFrame(t, c)
	if f.Event != EventError {
		t.Fatalf("event = %q, want %q (data=%s)", f.Event, EventError, f.Data)
	}
	var p ErrorPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	return p.Message
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case b := <-c.Send:
		t.Fatalf("unexpected frame on conn %s: %s", c.ConnID, b)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDirectDelivery(t *testing.T) {
	store := newFakeStore(testUser("u1", "alice"), testUser("u2", "bob"))
	g := NewGateway(testGatewayConfig(), store, nil, nil)

	sender := NewClient("conn-1", "u1", nil, 8)
	recipient := NewClient("conn-2", "u2", nil, 8)
	g.Registry().Register(sender)
	g.Registry().Register(recipient)

	g.handleDirect(sender, directPayload(t, map[string]string{
		"recieverId": "u2",
		"senderId":   "u1",
		"message":    "hello bob",
	}))

	f := recvFrame(t, recipient)
	if f.Event != EventReply {
		t.Fatalf("event = %q, want reply", f.Event)
	}
	var out DeliveredMessage
	if err := json.Unmarshal(f.Data, &out); err != nil {
		t.Fatalf("unmarshal delivered message: %v", err)
	}
	if out.ID == "" {
		t.Errorf("delivered message has no id")
	}
	if out.CreatedAt.IsZero() {
		t.Errorf("delivered message has no timestamp")
	}
	if out.Text != "hello bob" {
		t.Errorf("text = %q", out.Text)
	}
	if out.Sender.ID != "u1" {
		t.Errorf("sender id = %q, want u1", out.Sender.ID)
	}
	if out.Sender.Avatar == "" {
		t.Errorf("sender avatar missing")
	}

	assertSilent(t, sender)
}

func TestDirectSenderIDFallsBackToConnection(t *testing.T) {
	store := newFakeStore(testUser("u1", "alice"), testUser("u2", "bob"))
	g := NewGateway(testGatewayConfig(), store, nil, nil)

	sender := NewClient("conn-1", "u1", nil, 8)
	recipient := NewClient("conn-2", "u2", nil, 8)
	g.Registry().Register(sender)
	g.Registry().Register(recipient)

	g.handleDirect(sender, directPayload(t, map[string]string{
		"recieverId": "u2",
		"message":    "no senderId field",
	}))

	f := recvFrame(t, recipient)
	var out DeliveredMessage
	if err := json.Unmarshal(f.Data, &out); err != nil {
		t.Fatalf("unmarshal delivered message: %v", err)
	}
	if out.Sender.ID != "u1" {
		t.Errorf("sender id = %q, want authenticated identity u1", out.Sender.ID)
	}
}

func TestDirectNoRecipient(t *testing.T) {
	store := newFakeStore(testUser("u1", "alice"))
	g := NewGateway(testGatewayConfig(), store, nil, nil)
	sender := NewClient("conn-1", "u1", nil, 8)
	g.Registry().Register(sender)

	g.handleDirect(sender, directPayload(t, map[string]string{"message": "hi"}))

	if msg := recvError(t, sender); msg != "No recipient specified." {
		t.Errorf("error = %q", msg)
	}
	assertSilent(t, sender)
}

func TestDirectUnknownRecipient(t *testing.T) {
	store := newFakeStore(testUser("u1", "alice"))
	g := NewGateway(testGatewayConfig(), store, nil, nil)
	sender := NewClient("conn-1", "u1", nil, 8)
	other := NewClient("conn-2", "u3", nil, 8)
	g.Registry().Register(sender)
	g.Registry().Register(other)

	g.handleDirect(sender, directPayload(t, map[string]string{
		"recieverId": "nobody",
		"message":    "hi",
	}))

	if msg := recvError(t, sender); msg != "Recipient not found." {
		t.Errorf("error = %q", msg)
	}
	assertSilent(t, sender)
	assertSilent(t, other)
}

func TestDirectOfflineRecipientDropPolicy(t *testing.T) {
	// u2 exists but has no live connection; default policy drops.
	store := newFakeStore(testUser("u1", "alice"), testUser("u2", "bob"))
	g := NewGateway(testGatewayConfig(), store, nil, nil)
	sender := NewClient("conn-1", "u1", nil, 8)
	g.Registry().Register(sender)

	g.handleDirect(sender, directPayload(t, map[string]string{
		"recieverId": "u2",
		"message":    "into the void",
	}))

	assertSilent(t, sender)
}

func TestDirectOfflineRecipientNotifyPolicy(t *testing.T) {
	store := newFakeStore(testUser("u1", "alice"), testUser("u2", "bob"))
	cfg := testGatewayConfig()
	cfg.OfflinePolicy = config.OfflineNotify
	g := NewGateway(cfg, store, nil, nil)
	sender := NewClient("conn-1", "u1", nil, 8)
	g.Registry().Register(sender)

	g.handleDirect(sender, directPayload(t, map[string]string{
		"recieverId": "u2",
		"message":    "anyone home",
	}))

	if msg := recvError(t, sender); msg != "Recipient offline." {
		t.Errorf("error = %q", msg)
	}
}

func TestDirectMalformedThenValid(t *testing.T) {
	store := newFakeStore(testUser("u1", "alice"), testUser("u2", "bob"))
	g := NewGateway(testGatewayConfig(), store, nil, nil)
	sender := NewClient("conn-1", "u1", nil, 8)
	recipient := NewClient("conn-2", "u2", nil, 8)
	g.Registry().Register(sender)
	g.Registry().Register(recipient)

	g.handleDirect(sender, json.RawMessage(`"{\"recieverId\": truncated`))
	if msg := recvError(t, sender); msg != "Error processing message." {
		t.Errorf("error = %q", msg)
	}

	// The connection survives malformed input: a following valid
	// message still goes through.
	g.handleDirect(sender, directPayload(t, map[string]string{
		"recieverId": "u2",
		"message":    "still here",
	}))
	f := recvFrame(t, recipient)
	if f.Event != EventReply {
		t.Errorf("event = %q, want reply", f.Event)
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	store := newFakeStore(testUser("u1", "a"), testUser("u2", "b"), testUser("u3", "c"))
	g := NewGateway(testGatewayConfig(), store, nil, nil)
	a := NewClient("conn-a", "u1", nil, 8)
	b := NewClient("conn-b", "u2", nil, 8)
	c := NewClient("conn-c", "u3", nil, 8)
	g.Registry().Register(a)
	g.Registry().Register(b)
	g.Registry().Register(c)

	g.handleBroadcast(a, directPayload(t, map[string]string{"message": "hi all"}))

	for _, target := range []*Client{b, c} {
		f := recvFrame(t, target)
		if f.Event != EventReply {
			t.Fatalf("event on %s = %q, want reply", target.ConnID, f.Event)
		}
		var text string
		if err := json.Unmarshal(f.Data, &text); err != nil {
			t.Fatalf("unmarshal broadcast payload: %v", err)
		}
		if text != "hi all" {
			t.Errorf("payload on %s = %q", target.ConnID, text)
		}
	}
	assertSilent(t, a)
}

func TestBroadcastIncludesSenderWhenConfigured(t *testing.T) {
	store := newFakeStore(testUser("u1", "a"), testUser("u2", "b"))
	cfg := testGatewayConfig()
	cfg.BroadcastSelf = true
	g := NewGateway(cfg, store, nil, nil)
	a := NewClient("conn-a", "u1", nil, 8)
	b := NewClient("conn-b", "u2", nil, 8)
	g.Registry().Register(a)
	g.Registry().Register(b)

	g.handleBroadcast(a, directPayload(t, map[string]string{"message": "echo me"}))

	for _, target := range []*Client{a, b} {
		if f := recvFrame(t, target); f.Event != EventReply {
			t.Fatalf("event on %s = %q, want reply", target.ConnID, f.Event)
		}
	}
}

func TestBroadcastMalformed(t *testing.T) {
	store := newFakeStore(testUser("u1", "a"))
	g := NewGateway(testGatewayConfig(), store, nil, nil)
	a := NewClient("conn-a", "u1", nil, 8)
	g.Registry().Register(a)

	g.handleBroadcast(a, json.RawMessage(`"not json at all`))

	if msg := recvError(t, a); msg != "Error processing group message." {
		t.Errorf("error = %q", msg)
	}
}
