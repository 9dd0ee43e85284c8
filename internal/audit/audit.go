// Package audit records every governance decision as an append-only
// sequence of structured entries. Entries are never mutated, reordered
// or coalesced once recorded; insertion order is part of the contract.
package audit

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of audit event.
type EventType string

const (
	EventToolCallAttempt  EventType = "ToolCallAttempt"
	EventAccessDenied     EventType = "AccessDenied"
	EventAccessGranted    EventType = "AccessGranted"
	EventApprovalRequired EventType = "ApprovalRequired"
	EventPolicyViolation  EventType = "PolicyViolation"
)

// Entry is one immutable audit record.
type Entry struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"timestamp"`
	Event     EventType `json:"event_type"`
	Tool      string    `json:"tool_name"`
	Decision  string    `json:"decision"`
	RiskLevel string    `json:"risk_level"`
	Details   any       `json:"details"`
}

// New builds an entry stamped with the current UTC time and a fresh ID.
func New(event EventType, tool, decision, riskLevel string, details any) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Time:      time.Now().UTC(),
		Event:     event,
		Tool:      tool,
		Decision:  decision,
		RiskLevel: riskLevel,
		Details:   details,
	}
}

// Log is an append-only, in-memory audit log safe for concurrent
// writers. It grows monotonically and dies with the process; durability
// is layered on top via FileSink, never assumed here.
type Log struct {
	mu      sync.Mutex
	entries []Entry
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Record appends one entry.
func (l *Log) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// RecordPair appends an attempt entry and its outcome entry under a
// single lock acquisition, so the pair stays adjacent even when other
// calls are appending concurrently.
func (l *Log) RecordPair(attempt, outcome Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, attempt, outcome)
}

// Entries returns a snapshot copy in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of recorded entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// JSONL serializes the log as one JSON object per line, newline-joined
// with no trailing newline. An empty log yields the empty string, not a
// blank line; export tooling diffs against this exact shape.
func (l *Log) JSONL() string {
	entries := l.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		lines = append(lines, string(data))
	}
	return strings.Join(lines, "\n")
}
