package audit

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const genesisInput = "toolgate-genesis"

// Record is one line of a durable audit export: an Entry wrapped in a
// sequence number and a SHA-256 hash chain. Tampering with any line
// breaks verification of every later line.
type Record struct {
	Seq      uint64 `json:"seq"`
	PrevHash string `json:"prev_hash"`
	Entry
	Hash string `json:"hash"` // SHA-256 of this record with Hash empty
}

// FileSink appends audit entries to a hash-chained JSON-Lines file. It
// is the external durability layer the in-memory Log deliberately does
// not provide; callers wire it in when exports must survive the process.
type FileSink struct {
	mu       sync.Mutex
	path     string
	seq      uint64
	prevHash string
}

// NewFileSink opens or creates a sink at path, reading the last record
// to resume the hash chain.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	s := &FileSink{
		path:     path,
		prevHash: genesisHash(),
	}

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		lines := splitLines(data)
		if len(lines) > 0 {
			var last Record
			if err := json.Unmarshal(lines[len(lines)-1], &last); err == nil {
				s.seq = last.Seq
				s.prevHash = last.Hash
			}
		}
	}

	return s, nil
}

// Append writes one entry to the sink file.
func (s *FileSink) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	rec := Record{
		Seq:      s.seq,
		PrevHash: s.prevHash,
		Entry:    e,
	}
	rec.Hash = computeHash(rec)
	s.prevHash = rec.Hash

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open audit sink: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// Path returns the sink file path.
func (s *FileSink) Path() string {
	return s.path
}

// Verify reads a sink file and checks hash-chain integrity. It returns
// nil for a valid (or empty) chain, or an error describing the first
// violation.
func Verify(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audit sink: %w", err)
	}

	lines := splitLines(data)
	expectedPrev := genesisHash()
	var prevSeq uint64

	for i, line := range lines {
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: invalid JSON: %w", i+1, err)
		}
		if rec.Seq != prevSeq+1 {
			return fmt.Errorf("line %d: sequence gap: expected %d, got %d", i+1, prevSeq+1, rec.Seq)
		}
		if rec.PrevHash != expectedPrev {
			return fmt.Errorf("line %d: prev_hash mismatch", i+1)
		}
		if computed := computeHash(rec); rec.Hash != computed {
			return fmt.Errorf("line %d: hash mismatch", i+1)
		}
		expectedPrev = rec.Hash
		prevSeq = rec.Seq
	}

	return nil
}

// Tail returns the last n records from a sink file.
func Tail(path string, n int) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit sink: %w", err)
	}

	lines := splitLines(data)
	if n < 0 {
		n = 0
	}
	if n > len(lines) {
		n = len(lines)
	}

	recs := make([]Record, 0, n)
	for _, line := range lines[len(lines)-n:] {
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func genesisHash() string {
	h := sha256.Sum256([]byte(genesisInput))
	return fmt.Sprintf("%x", h)
}

func computeHash(rec Record) string {
	rec.Hash = "" // hash is computed with this field empty
	data, _ := json.Marshal(rec)
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
