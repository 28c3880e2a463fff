package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/metrics"
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/models"
)

// DefaultDataDir is used when no data directory is configured.
const DefaultDataDir = "data"

var (
	// ErrInitFailed wraps every fatal startup condition: unreadable or
	// malformed emails.json, or an emails collection that is not an array.
	// Everything else at startup self-heals.
	ErrInitFailed = errors.New("email storage initialization failed")

	// ErrNameTaken is returned by RegisterAgent for a name that has ever been
	// registered, even if its agent is gone. Names are never reused.
	ErrNameTaken = errors.New("agent name is already taken")
)

// EmailStore owns the authoritative in-memory email collection backed by two
// JSON snapshot documents on disk. Every operation, read or write, runs under
// one mutex and mutations rewrite the full document before returning, so
// callers are globally serialized and never observe a partial write. The
// store assumes it is the only process touching the data directory.
//
// Construct with New and inject wherever needed; there is deliberately no
// package-level instance.
type EmailStore struct {
	mu  sync.Mutex
	log zerolog.Logger

	dataDir        string
	emailsPath     string
	quarantinePath string

	emails map[string]*models.Email
	order  []string // insertion order of ids, kept for stable listings

	// Audit trail. Entries loaded from disk are opaque and kept verbatim;
	// entries appended by this process are QuarantineEntry values.
	quarantined []any

	// Agent directory. In-memory only: registered names do not survive a
	// process restart. usedNames is append-only so a name can never be
	// reclaimed within the lifetime of the process.
	registry      map[string]*int
	registryOrder []string
	usedNames     map[string]struct{}
}

// New constructs an empty, uninitialized store rooted at dataDir. Call
// Initialize before serving traffic.
func New(dataDir string, logger zerolog.Logger) *EmailStore {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	return &EmailStore{
		log:            logger,
		dataDir:        dataDir,
		emailsPath:     filepath.Join(dataDir, emailsFile),
		quarantinePath: filepath.Join(dataDir, quarantineFile),
		emails:         map[string]*models.Email{},
		quarantined:    []any{},
		registry:       map[string]*int{},
		usedNames:      map[string]struct{}{},
	}
}

// Initialize loads both documents, runs recovery over every email record,
// and persists the cleaned state back to disk.
//
// Only the emails document can abort startup: a parse failure, a top-level
// shape that is not an object with a version, or an emails field that is not
// an array. An unsupported version is healed by backing the file up and
// starting fresh. The quarantine document never aborts startup; any problem
// there is healed the same way.
func (s *EmailStore) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info().Str("data_dir", s.dataDir).Msg("initializing email storage")

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("%w: cannot create data directory: %v", ErrInitFailed, err)
	}

	records, err := s.loadEmailsDocumentLocked()
	if err != nil {
		return err
	}
	s.loadQuarantineDocumentLocked()
	s.recoverRecordsLocked(records)

	if err := s.saveEmailsLocked(); err != nil {
		return fmt.Errorf("%w: cannot persist emails document: %v", ErrInitFailed, err)
	}
	if err := s.saveQuarantineLocked(); err != nil {
		return fmt.Errorf("%w: cannot persist quarantine document: %v", ErrInitFailed, err)
	}

	s.log.Info().
		Int("emails", len(s.emails)).
		Int("quarantined", len(s.quarantined)).
		Msg("email storage initialized")
	return nil
}

// loadEmailsDocumentLocked returns the raw email records to validate, or a
// fatal error.
func (s *EmailStore) loadEmailsDocumentLocked() ([]any, error) {
	doc, exists, err := readDocument(s.emailsPath)
	if err != nil {
		s.log.Error().Err(err).Msg("cannot start: emails document unreadable")
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	if !exists {
		s.log.Info().Str("path", s.emailsPath).Msg("emails document missing, creating empty")
		if err := writeDocument(s.emailsPath, emailsDocument{Version: documentVersion, Emails: []models.Email{}}); err != nil {
			return nil, fmt.Errorf("%w: cannot create emails document: %v", ErrInitFailed, err)
		}
		return nil, nil
	}

	version, present := doc["version"]
	if !present {
		s.log.Error().Msg("cannot start: emails document missing 'version'")
		return nil, fmt.Errorf("%w: emails document missing 'version' field", ErrInitFailed)
	}
	valid, coerce := versionOK(version)
	if !valid {
		// Unsupported version is survivable: keep the old data aside and
		// start over empty.
		s.log.Warn().Interface("version", version).Msg("unsupported emails document version, backing up and recreating")
		if backup, err := backupFile(s.emailsPath, "old"); err == nil {
			s.log.Warn().Str("backup", backup).Msg("emails document moved aside")
		} else {
			return nil, fmt.Errorf("%w: cannot back up emails document: %v", ErrInitFailed, err)
		}
		if err := writeDocument(s.emailsPath, emailsDocument{Version: documentVersion, Emails: []models.Email{}}); err != nil {
			return nil, fmt.Errorf("%w: cannot recreate emails document: %v", ErrInitFailed, err)
		}
		return nil, nil
	}
	if coerce {
		s.log.Debug().Msg("coerced emails document version from string to integer")
	}

	rawEmails, present := doc["emails"]
	if !present {
		s.log.Debug().Msg("emails document missing 'emails' key, defaulting to empty")
		return nil, nil
	}
	records, isList := rawEmails.([]any)
	if !isList {
		s.log.Error().Msg("cannot start: 'emails' field is not an array")
		return nil, fmt.Errorf("%w: 'emails' field is not an array", ErrInitFailed)
	}
	return records, nil
}

// loadQuarantineDocumentLocked populates s.quarantined. Prior entries are
// opaque payloads and are kept exactly as found, never reshaped or
// re-validated; every failure mode heals by backup and recreation.
func (s *EmailStore) loadQuarantineDocumentLocked() {
	doc, exists, err := readDocument(s.quarantinePath)
	healed := func(reason string) {
		s.log.Warn().Str("reason", reason).Msg("quarantine document unusable, backing up and recreating")
		if _, backupErr := backupFile(s.quarantinePath, "bak"); backupErr != nil {
			s.log.Error().Err(backupErr).Msg("quarantine backup failed, recreating in place")
		}
		s.quarantined = []any{}
		if writeErr := writeDocument(s.quarantinePath, quarantineDocument{Version: documentVersion, Quarantined: []any{}}); writeErr != nil {
			s.log.Error().Err(writeErr).Msg("cannot recreate quarantine document")
		}
	}

	if err != nil {
		healed(err.Error())
		return
	}
	if !exists {
		s.log.Info().Str("path", s.quarantinePath).Msg("quarantine document missing, creating empty")
		s.quarantined = []any{}
		if err := writeDocument(s.quarantinePath, quarantineDocument{Version: documentVersion, Quarantined: []any{}}); err != nil {
			s.log.Error().Err(err).Msg("cannot create quarantine document")
		}
		return
	}

	version, present := doc["version"]
	if !present {
		healed("missing 'version' field")
		return
	}
	valid, coerce := versionOK(version)
	if !valid {
		healed(fmt.Sprintf("unsupported version: %v", version))
		return
	}
	if coerce {
		s.log.Debug().Msg("coerced quarantine document version from string to integer")
	}
	rawEntries, present := doc["quarantined"]
	if !present {
		healed("missing 'quarantined' field")
		return
	}
	entries, isList := rawEntries.([]any)
	if !isList {
		healed("'quarantined' field is not an array")
		return
	}

	s.quarantined = append([]any{}, entries...)
}

// recoverRecordsLocked validates every raw record into the live map or the
// quarantine. Duplicate ids are detected first: every record sharing an id is
// quarantined, never just the later ones.
func (s *EmailStore) recoverRecordsLocked(records []any) {
	idOccurrences := map[string]int{}
	for _, raw := range records {
		if record, isMap := raw.(map[string]any); isMap {
			if id, isString := record["id"].(string); isString && id != "" {
				idOccurrences[id]++
			}
		}
	}

	for _, raw := range records {
		record, isMap := raw.(map[string]any)
		if !isMap {
			s.quarantineLocked(raw, "record is not an object")
			continue
		}
		if id, isString := record["id"].(string); isString && idOccurrences[id] > 1 {
			s.quarantineLocked(raw, fmt.Sprintf("duplicate id: %s", id))
			continue
		}
		ok, reasons, fixed := validateEmailRecord(record)
		if !ok {
			s.quarantineLocked(raw, joinReasons(reasons))
			continue
		}
		email := emailFromRecord(fixed)
		s.putLocked(email)
	}
}

func joinReasons(reasons []string) string {
	out := ""
	for i, reason := range reasons {
		if i > 0 {
			out += "; "
		}
		out += reason
	}
	return out
}

// putLocked inserts or replaces an email, keeping insertion order stable.
func (s *EmailStore) putLocked(email models.Email) {
	if _, exists := s.emails[email.ID]; !exists {
		s.order = append(s.order, email.ID)
	}
	stored := email.Clone()
	s.emails[email.ID] = &stored
}

func (s *EmailStore) quarantineLocked(original any, reason string) {
	s.quarantined = append(s.quarantined, QuarantineEntry{
		Original:      original,
		Reason:        reason,
		QuarantinedAt: models.NewTimestamp(),
	})
	metrics.RecordsQuarantined.Inc()
	s.log.Warn().Str("reason", reason).Msg("quarantined email record")
}

// saveEmailsLocked rewrites the emails document from the in-memory map, in
// insertion order.
func (s *EmailStore) saveEmailsLocked() error {
	doc := emailsDocument{Version: documentVersion, Emails: make([]models.Email, 0, len(s.order))}
	for _, id := range s.order {
		doc.Emails = append(doc.Emails, s.emails[id].Clone())
	}
	return writeDocument(s.emailsPath, doc)
}

func (s *EmailStore) saveQuarantineLocked() error {
	return writeDocument(s.quarantinePath, quarantineDocument{Version: documentVersion, Quarantined: s.quarantined})
}

// persistEmailsLocked is saveEmailsLocked for the runtime paths, where CRUD
// operations are total: a disk failure is logged, the in-memory state stays
// authoritative.
func (s *EmailStore) persistEmailsLocked() {
	if err := s.saveEmailsLocked(); err != nil {
		s.log.Error().Err(err).Msg("failed to persist emails document")
	}
}

func (s *EmailStore) persistQuarantineLocked() {
	if err := s.saveQuarantineLocked(); err != nil {
		s.log.Error().Err(err).Msg("failed to persist quarantine document")
	}
}

// GetAll returns a snapshot of every email in insertion order. Callers get
// clones; mutations must go through Update.
func (s *EmailStore) GetAll() []models.Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Email, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.emails[id].Clone())
	}
	return out
}

// GetByID returns a clone of the email, if stored.
func (s *EmailStore) GetByID(id string) (models.Email, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email, exists := s.emails[id]
	if !exists {
		return models.Email{}, false
	}
	return email.Clone(), true
}

// Create stores the email, overwriting any existing entry with the same id,
// and persists synchronously.
func (s *EmailStore) Create(email models.Email) models.Email {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(email)
	s.persistEmailsLocked()
	s.log.Debug().Str("id", email.ID).Msg("created email")
	return email
}

// Update replaces an existing email wholesale. Reports false (and stores
// nothing) if the id is unknown.
func (s *EmailStore) Update(email models.Email) (models.Email, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emails[email.ID]; !exists {
		return models.Email{}, false
	}
	s.putLocked(email)
	s.persistEmailsLocked()
	s.log.Debug().Str("id", email.ID).Msg("updated email")
	return email, true
}

// Delete removes an email outright. Soft deletion is a visibility flag on the
// record, not this.
func (s *EmailStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emails[id]; !exists {
		return false
	}
	delete(s.emails, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.persistEmailsLocked()
	s.log.Debug().Str("id", id).Msg("deleted email")
	return true
}

// Exists reports whether an email with the id is stored.
func (s *EmailStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.emails[id]
	return exists
}

// Quarantined returns a snapshot of the quarantine audit trail. Entries
// appended during this process's lifetime are QuarantineEntry values; entries
// inherited from disk keep whatever shape they were stored with.
func (s *EmailStore) Quarantined() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any{}, s.quarantined...)
}

// AddToQuarantine records a rejected payload verbatim and persists the
// quarantine document.
func (s *EmailStore) AddToQuarantine(original any, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarantineLocked(original, reason)
	s.persistQuarantineLocked()
}

// IsNameAvailable reports whether an agent name has never been registered.
func (s *EmailStore) IsNameAvailable(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, used := s.usedNames[models.NormalizeName(name)]
	return !used
}

// RegisterAgent reserves a name permanently and records its pid, which may be
// nil for a not-yet-spawned agent. Returns ErrNameTaken if the name was ever
// used.
func (s *EmailStore) RegisterAgent(name string, pid *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := models.NormalizeName(name)
	if _, used := s.usedNames[normalized]; used {
		return fmt.Errorf("%w: %s", ErrNameTaken, normalized)
	}
	s.usedNames[normalized] = struct{}{}
	s.registry[normalized] = pid
	s.registryOrder = append(s.registryOrder, normalized)
	metrics.AgentsRegistered.Inc()
	s.log.Info().Str("name", normalized).Msg("registered agent")
	return nil
}

// UpdateAgentPID sets the pid for a registered name. Reports false if the
// name was never registered.
func (s *EmailStore) UpdateAgentPID(name string, pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := models.NormalizeName(name)
	if _, used := s.usedNames[normalized]; !used {
		return false
	}
	s.registry[normalized] = &pid
	return true
}

// Agents returns all registered agents sorted by name.
func (s *EmailStore) Agents() []models.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Agent, 0, len(s.registryOrder))
	for _, name := range s.registryOrder {
		out = append(out, models.Agent{Name: name, PID: s.registry[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AgentNames returns the registered names sorted ascending.
func (s *EmailStore) AgentNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string{}, s.registryOrder...)
	sort.Strings(out)
	return out
}
