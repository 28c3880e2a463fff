package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/models"
)

// On-disk document names inside the data directory.
const (
	emailsFile     = "emails.json"
	quarantineFile = "quarantine.json"
)

// documentVersion is the only version either document supports.
const documentVersion = 1

// backupStampLayout is the timestamp component of backup file names. Colons
// are swapped for dashes so the name stays filesystem-safe.
const backupStampLayout = "2006-01-02T15-04-05Z"

// emailsDocument is the serialized shape of emails.json.
type emailsDocument struct {
	Version int            `json:"version"`
	Emails  []models.Email `json:"emails"`
}

// quarantineDocument is the serialized shape of quarantine.json. Entries
// loaded from disk are opaque payloads kept exactly as found; only entries
// appended by this process carry the QuarantineEntry shape.
type quarantineDocument struct {
	Version     int   `json:"version"`
	Quarantined []any `json:"quarantined"`
}

// QuarantineEntry preserves a rejected record verbatim for audit. Entries are
// never repaired or re-validated once written.
type QuarantineEntry struct {
	Original      any    `json:"original"`
	Reason        string `json:"reason"`
	QuarantinedAt string `json:"quarantined_at"`
}

// readDocument loads and decodes a JSON document. A missing file yields
// (nil, false, nil). A file that exists but does not decode to a JSON object
// is a hard failure.
func readDocument(path string) (map[string]any, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return doc, true, nil
}

// writeDocument rewrites a document in full, via a temp file and rename so a
// crash mid-write never leaves a truncated document behind.
func writeDocument(path string, doc any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// backupFile renames a document aside with a suffix and UTC timestamp, e.g.
// emails.json.old.2026-09-01T12-00-00Z. Data is never silently discarded.
func backupFile(path, suffix string) (string, error) {
	stamp := time.Now().UTC().Format(backupStampLayout)
	backup := fmt.Sprintf("%s.%s.%s", path, suffix, stamp)
	if err := os.Rename(path, backup); err != nil {
		return "", err
	}
	return backup, nil
}

// versionOK classifies a decoded version value: valid as-is, valid after
// coercing the string "1" to an integer, or unsupported.
func versionOK(version any) (valid bool, coerce bool) {
	switch v := version.(type) {
	case float64:
		return v == float64(documentVersion), false
	case string:
		return v == "1", v == "1"
	default:
		return false, false
	}
}
