package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the fixed wire format for email timestamps: UTC, second
// precision, literal Z suffix. Fixed-width and zero-padded, so timestamps
// compare correctly as strings.
const TimestampLayout = "2006-01-02T15:04:05Z"

var (
	ErrNoRecipients = errors.New("email must have at least one recipient")
	ErrNoSender     = errors.New("email must have a sender")
	ErrBadParentID  = errors.New("isResponseTo is not a valid UUID")
)

// Email is the core message entity. Instances held by the store are
// normalized: names lowercase and trimmed, recipient and status lists
// deduplicated with first-occurrence order preserved.
type Email struct {
	ID           string   `json:"id"`
	To           []string `json:"to"`
	From         string   `json:"from"`
	Subject      string   `json:"subject"`
	Content      string   `json:"content"`
	Timestamp    string   `json:"timestamp"`
	IsResponseTo *string  `json:"isResponseTo"`
	ReadBy       []string `json:"readBy"`
	DeletedBy    []string `json:"deletedBy"`
}

// NewEmail builds a normalized email, assigning a fresh ID and timestamp.
// Returns an error if no valid recipient or sender remains after
// normalization, or if isResponseTo is not UUID-shaped. The reference is not
// required to resolve to a stored email.
func NewEmail(to []string, from, subject, content string, isResponseTo *string) (Email, error) {
	e := Email{
		ID:        NewID(),
		To:        NormalizeNames(to),
		From:      NormalizeName(from),
		Subject:   subject,
		Content:   content,
		Timestamp: NewTimestamp(),
		ReadBy:    []string{},
		DeletedBy: []string{},
	}
	if len(e.To) == 0 {
		return Email{}, ErrNoRecipients
	}
	if e.From == "" {
		return Email{}, ErrNoSender
	}
	if isResponseTo != nil {
		if !ValidUUID(*isResponseTo) {
			return Email{}, ErrBadParentID
		}
		parent := *isResponseTo
		e.IsResponseTo = &parent
	}
	return e, nil
}

// Clone returns a deep copy. The store hands out clones so callers can never
// mutate its internal state without going through Update.
func (e Email) Clone() Email {
	c := e
	c.To = append([]string{}, e.To...)
	c.ReadBy = append([]string{}, e.ReadBy...)
	c.DeletedBy = append([]string{}, e.DeletedBy...)
	if e.IsResponseTo != nil {
		parent := *e.IsResponseTo
		c.IsResponseTo = &parent
	}
	return c
}

// Participants returns the sender plus all recipients, deduplicated.
func (e Email) Participants() []string {
	seen := make(map[string]struct{}, len(e.To)+1)
	out := make([]string, 0, len(e.To)+1)
	for _, name := range append([]string{e.From}, e.To...) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// IsParticipant reports whether the (raw) name is the sender or a recipient.
func (e Email) IsParticipant(name string) bool {
	normalized := NormalizeName(name)
	if normalized == e.From {
		return true
	}
	return contains(e.To, normalized)
}

// IsReadBy reports whether the name has read the email.
func (e Email) IsReadBy(name string) bool {
	return contains(e.ReadBy, NormalizeName(name))
}

// IsDeletedFor reports whether the name has soft-deleted the email.
func (e Email) IsDeletedFor(name string) bool {
	return contains(e.DeletedBy, NormalizeName(name))
}

// MarkReadBy adds the name to readBy. Idempotent.
func (e *Email) MarkReadBy(name string) {
	normalized := NormalizeName(name)
	if normalized == "" || contains(e.ReadBy, normalized) {
		return
	}
	e.ReadBy = append(e.ReadBy, normalized)
}

// MarkDeletedBy adds the name to deletedBy. Idempotent.
func (e *Email) MarkDeletedBy(name string) {
	normalized := NormalizeName(name)
	if normalized == "" || contains(e.DeletedBy, normalized) {
		return
	}
	e.DeletedBy = append(e.DeletedBy, normalized)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// NormalizeName lowercases and trims a participant name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeNames normalizes a list of names, dropping empties and duplicates
// while preserving first-occurrence order.
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		normalized := NormalizeName(name)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// NewID returns a fresh v4 UUID string.
func NewID() string {
	return uuid.NewString()
}

// ValidUUID reports whether the value is syntactically a UUID.
func ValidUUID(value string) bool {
	return uuid.Validate(value) == nil
}

// NewTimestamp returns the current UTC time in the fixed wire format.
func NewTimestamp() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// ValidTimestamp reports whether the value matches the fixed wire format
// exactly: second precision and a literal Z, nothing else.
func ValidTimestamp(value string) bool {
	if !strings.HasSuffix(value, "Z") || strings.Contains(value, ".") {
		return false
	}
	_, err := time.Parse(TimestampLayout, value)
	return err == nil
}
