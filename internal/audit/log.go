package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/wisdomgate/internal/model"
)

// GenesisHash is the prev_hash of the first entry in a new log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// TimestampFormat is the layout used in entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Log is an append-only JSONL log where every entry carries the SHA-256
// of the previous line.
type Log struct {
	path     string
	file     *os.File
	prevHash string
	now      func() time.Time
	mu       sync.Mutex
}

// DefaultPath returns ~/.wisdomgate/audit.jsonl.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "audit.jsonl"
	}
	return filepath.Join(home, ".wisdomgate", "audit.jsonl")
}

// Open opens or creates a log for appending, recovering the chain tail
// from the last line of an existing file.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash, err := tailHash(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &Log{path: path, file: file, prevHash: prevHash, now: time.Now}, nil
}

func tailHash(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return GenesisHash, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var last []byte
	for scanner.Scan() {
		last = append(last[:0], scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("audit: scan existing log: %w", err)
	}
	if len(last) == 0 {
		return GenesisHash, nil
	}
	return HashLine(last), nil
}

// Path returns the file the log appends to.
func (l *Log) Path() string { return l.path }

// Record appends entry, filling Timestamp when empty and always setting PrevHash.
func (l *Log) Record(entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = l.now().UTC().Format(TimestampFormat)
	}
	entry.PrevHash = l.prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.prevHash = HashLine(line)
	return nil
}

// RecordDecision appends a permission decision. registryHash identifies the
// protection registry revision that produced it.
func (l *Log) RecordDecision(requestID string, d model.PermissionDecision, registryHash string) error {
	return l.Record(EntryFor(requestID, d, registryHash))
}

// EntryFor converts a decision into an entry without writing it.
func EntryFor(requestID string, d model.PermissionDecision, registryHash string) AuditEntry {
	return AuditEntry{
		Type:         TypeDecision,
		RequestID:    requestID,
		Tradition:    d.TraditionID,
		Level:        string(d.Level),
		Decision:     d.Decision(),
		PolicyID:     d.PolicyID,
		Reason:       d.DenialReason,
		RegistryHash: registryHash,
	}
}

// RecordSharing appends the outcome of a sharing check. matched is the
// inappropriate context that was hit, if any.
func (l *Log) RecordSharing(requestID, traditionID string, valid bool, matched, registryHash string) error {
	outcome := OutcomeInvalid
	if valid {
		outcome = OutcomeValid
	}
	return l.Record(AuditEntry{
		Type:         TypeSharing,
		RequestID:    requestID,
		Tradition:    traditionID,
		Decision:     outcome,
		Reason:       matched,
		RegistryHash: registryHash,
	})
}

// RecordEnhancement appends one pipeline outcome for a requester.
func (l *Log) RecordEnhancement(requesterID string, res model.EnhancementResult, registryHash string) error {
	return l.Record(EnhancementEntry(requesterID, res, registryHash))
}

// EnhancementEntry converts a pipeline result into an entry without writing it.
func EnhancementEntry(requesterID string, res model.EnhancementResult, registryHash string) AuditEntry {
	outcome := OutcomeUnchanged
	switch {
	case res.Report.OptedOut:
		outcome = OutcomeOptedOut
	case res.Enhanced:
		outcome = OutcomeEnhanced
	}
	return AuditEntry{
		Type:         TypeEnhancement,
		RequestID:    res.RequestID,
		RequesterID:  requesterID,
		Tradition:    res.Tradition,
		Level:        string(res.Permission.Level),
		Decision:     outcome,
		Respected:    res.Report.ProtocolsRespected,
		Insights:     len(res.Report.ThematicOverlap),
		RegistryHash: registryHash,
	}
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns "sha256:<hex>" of line.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
