package chat

import (
	"encoding/json"
	"testing"
)

func TestParseFrameKnownEvents(t *testing.T) {
	for _, event := range []string{EventDirect, EventGroup} {
		raw := `{"event":"` + event + `","data":"{}"}`
		f, err := ParseFrame([]byte(raw))
		if err != nil {
			t.Fatalf("ParseFrame(%s): %v", event, err)
		}
		if f.Event != event {
			t.Errorf("event = %q, want %q", f.Event, event)
		}
	}
}

func TestParseFrameRejectsUnknownEvent(t *testing.T) {
	if _, err := ParseFrame([]byte(`{"event":"presence","data":"{}"}`)); err == nil {
		t.Fatalf("expected unknown event to be rejected")
	}
}

func TestParseFrameRejectsGarbage(t *testing.T) {
	if _, err := ParseFrame([]byte(`this is not json`)); err == nil {
		t.Fatalf("expected undecodable frame to be rejected")
	}
}

func TestDecodeDirectStringWrappedPayload(t *testing.T) {
	// Clients send data as a JSON-encoded string.
	raw, _ := json.Marshal(`{"recieverId":"u2","senderId":"u1","message":"hi"}`)
	msg, err := DecodeDirect(raw)
	if err != nil {
		t.Fatalf("DecodeDirect: %v", err)
	}
	if msg.RecipientID != "u2" || msg.SenderID != "u1" || msg.Text != "hi" {
		t.Errorf("decoded %+v", msg)
	}
}

func TestDecodeDirectBareObjectPayload(t *testing.T) {
	msg, err := DecodeDirect(json.RawMessage(`{"recipientId":"u9","message":"yo"}`))
	if err != nil {
		t.Fatalf("DecodeDirect: %v", err)
	}
	if msg.RecipientID != "u9" {
		t.Errorf("RecipientID = %q, want u9", msg.RecipientID)
	}
}

func TestDecodeDirectRecieverSpellingWins(t *testing.T) {
	msg, err := DecodeDirect(json.RawMessage(`{"recieverId":"a","recipientId":"b","message":"x"}`))
	if err != nil {
		t.Fatalf("DecodeDirect: %v", err)
	}
	if msg.RecipientID != "a" {
		t.Errorf("RecipientID = %q, want a", msg.RecipientID)
	}
}

func TestDecodeDirectMissingRecipientIsNotAnError(t *testing.T) {
	// Decoding succeeds; the dispatch layer turns the empty recipient
	// into the "No recipient specified." report.
	msg, err := DecodeDirect(json.RawMessage(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("DecodeDirect: %v", err)
	}
	if msg.RecipientID != "" {
		t.Errorf("RecipientID = %q, want empty", msg.RecipientID)
	}
}

func TestDecodeDirectMalformed(t *testing.T) {
	cases := []string{
		``,
		`"not an object"`,
		`"{\"recieverId\":`,
		`42`,
	}
	for _, c := range cases {
		if _, err := DecodeDirect(json.RawMessage(c)); err == nil {
			t.Errorf("DecodeDirect(%q): expected error", c)
		}
	}
}

func TestDecodeBroadcast(t *testing.T) {
	raw, _ := json.Marshal(`{"message":"hello everyone"}`)
	msg, err := DecodeBroadcast(raw)
	if err != nil {
		t.Fatalf("DecodeBroadcast: %v", err)
	}
	if msg.Text != "hello everyone" {
		t.Errorf("Text = %q", msg.Text)
	}
}

func TestEncodeErrorShape(t *testing.T) {
	b := EncodeError("No recipient specified.")
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatalf("unmarshal error frame: %v", err)
	}
	if f.Event != EventError {
		t.Errorf("event = %q, want %q", f.Event, EventError)
	}
	var p ErrorPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if p.Message != "No recipient specified." {
		t.Errorf("message = %q", p.Message)
	}
}

func TestEncodeFrameReply(t *testing.T) {
	b, err := EncodeFrame(EventReply, "raw text")
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatalf("unmarshal reply frame: %v", err)
	}
	var text string
	if err := json.Unmarshal(f.Data, &text); err != nil {
		t.Fatalf("unmarshal reply payload: %v", err)
	}
	if text != "raw text" {
		t.Errorf("payload = %q", text)
	}
}
