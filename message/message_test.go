package message

import "testing"

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "hello")
	if msg.Role != RoleUser {
		t.Errorf("expected role %s, got %s", RoleUser, msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("expected content 'hello', got %q", msg.Content)
	}
	if msg.ID == "" {
		t.Errorf("expected generated ID")
	}
	if msg.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}
}

func TestClone(t *testing.T) {
	msg := NewMessage(RoleAssistant, "answer")
	msg.Metadata["verdict"] = "useful"

	cloned := Clone(msg)
	if cloned == msg {
		t.Fatalf("clone returned same pointer")
	}
	cloned.Metadata["verdict"] = "unsupported"
	if msg.Metadata["verdict"] != "useful" {
		t.Errorf("clone shares metadata map with original")
	}
}

func TestCloneNil(t *testing.T) {
	if Clone(nil) != nil {
		t.Errorf("expected nil clone for nil message")
	}
}

func TestCloneMessages(t *testing.T) {
	msgs := []*Message{
		NewMessage(RoleUser, "q"),
		NewMessage(RoleAssistant, "a"),
	}
	clones := CloneMessages(msgs)
	if len(clones) != 2 {
		t.Fatalf("expected 2 clones, got %d", len(clones))
	}
	for i := range clones {
		if clones[i] == msgs[i] {
			t.Errorf("clone %d shares pointer with original", i)
		}
	}
}
