package models

import (
	"testing"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Alice", "alice"},
		{"  BOB  ", "bob"},
		{"carol", "carol"},
		{"   ", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeNamesDedupesPreservingOrder(t *testing.T) {
	got := NormalizeNames([]string{"Bob", "ALICE", "bob", "  alice ", "carol"})
	want := []string{"bob", "alice", "carol"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNewEmailNormalizes(t *testing.T) {
	email, err := NewEmail([]string{" Bob ", "ALICE"}, "Carol", "hello", "body", nil)
	if err != nil {
		t.Fatal(err)
	}
	if email.From != "carol" {
		t.Fatalf("expected sender 'carol', got %q", email.From)
	}
	if len(email.To) != 2 || email.To[0] != "bob" || email.To[1] != "alice" {
		t.Fatalf("unexpected recipients: %v", email.To)
	}
	if !ValidUUID(email.ID) {
		t.Fatalf("expected a UUID id, got %q", email.ID)
	}
	if !ValidTimestamp(email.Timestamp) {
		t.Fatalf("expected a valid timestamp, got %q", email.Timestamp)
	}
}

func TestNewEmailRejectsEmptyRecipients(t *testing.T) {
	if _, err := NewEmail([]string{"  ", ""}, "alice", "s", "c", nil); err != ErrNoRecipients {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

func TestNewEmailRejectsBlankSender(t *testing.T) {
	if _, err := NewEmail([]string{"bob"}, "   ", "s", "c", nil); err != ErrNoSender {
		t.Fatalf("expected ErrNoSender, got %v", err)
	}
}

func TestNewEmailRejectsMalformedParent(t *testing.T) {
	parent := "not-a-uuid"
	if _, err := NewEmail([]string{"bob"}, "alice", "s", "c", &parent); err != ErrBadParentID {
		t.Fatalf("expected ErrBadParentID, got %v", err)
	}
}

func TestValidTimestamp(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"2026-09-01T12:00:00Z", true},
		{"2026-09-01T12:00:00", false},      // missing Z
		{"2026-09-01T12:00:00+00:00", false}, // offset instead of Z
		{"2026-09-01T12:00:00.123Z", false},  // fractional seconds
		{"2026-9-1T12:00:00Z", false},        // not zero-padded
		{"not a timestamp", false},
		{"", false},
	}
	for _, c := range cases {
		if got := ValidTimestamp(c.in); got != c.valid {
			t.Fatalf("ValidTimestamp(%q) = %v, want %v", c.in, got, c.valid)
		}
	}
}

func TestParticipantChecks(t *testing.T) {
	email, err := NewEmail([]string{"bob", "carol"}, "alice", "s", "c", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !email.IsParticipant("ALICE") {
		t.Fatal("sender should be a participant")
	}
	if !email.IsParticipant(" bob ") {
		t.Fatal("recipient should be a participant")
	}
	if email.IsParticipant("mallory") {
		t.Fatal("outsider should not be a participant")
	}
}

func TestMarkReadByIdempotent(t *testing.T) {
	email, err := NewEmail([]string{"bob"}, "alice", "s", "c", nil)
	if err != nil {
		t.Fatal(err)
	}
	email.MarkReadBy("Bob")
	email.MarkReadBy("bob")
	if len(email.ReadBy) != 1 || email.ReadBy[0] != "bob" {
		t.Fatalf("expected readBy [bob], got %v", email.ReadBy)
	}
	if !email.IsReadBy("BOB") {
		t.Fatal("expected bob to have read the email")
	}
}

func TestCloneIsDeep(t *testing.T) {
	parent := NewID()
	email, err := NewEmail([]string{"bob"}, "alice", "s", "c", &parent)
	if err != nil {
		t.Fatal(err)
	}
	clone := email.Clone()
	clone.To[0] = "mallory"
	clone.MarkReadBy("mallory")
	*clone.IsResponseTo = "mutated"

	if email.To[0] != "bob" {
		t.Fatal("clone shares the recipients slice")
	}
	if len(email.ReadBy) != 0 {
		t.Fatal("clone shares the readBy slice")
	}
	if *email.IsResponseTo != parent {
		t.Fatal("clone shares the parent pointer")
	}
}
