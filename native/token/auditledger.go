package token

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
)

// Storage abstracts the subset of key-value state functionality required by
// the durable audit ledger. The backing store owns value encoding; index
// entries are RLP encoded before the append.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

var (
	auditRecordPrefix = []byte("token/audit/")
	auditIndexKey     = []byte("token/audit/index")
)

// storedAuditEvent is the persisted shape of an AuditEvent. Timestamps are
// stored as unix seconds; RLP has no signed integer support.
type storedAuditEvent struct {
	ID        string
	Kind      string
	From      string
	To        string
	Amount    uint64
	TxHash    string
	Reason    string
	Timestamp uint64
}

type auditIndexEntry struct {
	ID        string
	Timestamp uint64
}

func auditKey(id string) []byte {
	return append(append([]byte{}, auditRecordPrefix...), []byte(id)...)
}

func toStoredAudit(evt AuditEvent) storedAuditEvent {
	ts := evt.Timestamp.UTC().Unix()
	if ts < 0 {
		ts = 0
	}
	return storedAuditEvent{
		ID:        evt.ID,
		Kind:      string(evt.Kind),
		From:      evt.From,
		To:        evt.To,
		Amount:    evt.Amount,
		TxHash:    evt.TxHash,
		Reason:    evt.Reason,
		Timestamp: uint64(ts),
	}
}

func fromStoredAudit(stored *storedAuditEvent) AuditEvent {
	return AuditEvent{
		ID:        stored.ID,
		Kind:      EventKind(stored.Kind),
		From:      stored.From,
		To:        stored.To,
		Amount:    stored.Amount,
		TxHash:    stored.TxHash,
		Reason:    stored.Reason,
		Timestamp: time.Unix(int64(stored.Timestamp), 0).UTC(),
	}
}

// AuditLedger persists audit events append-only in the underlying key-value
// store. It is safe for concurrent use.
type AuditLedger struct {
	mu    sync.Mutex
	store Storage
}

// NewAuditLedger constructs an audit ledger bound to the provided storage
// backend.
func NewAuditLedger(store Storage) *AuditLedger {
	return &AuditLedger{store: store}
}

// Append stores the event, enforcing append-only semantics keyed by the
// event identifier.
func (a *AuditLedger) Append(evt AuditEvent) error {
	if a == nil || a.store == nil {
		return fmt.Errorf("audit ledger not initialised")
	}
	if strings.TrimSpace(evt.ID) == "" {
		return fmt.Errorf("audit ledger: event id required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	key := auditKey(evt.ID)
	var existing storedAuditEvent
	ok, err := a.store.KVGet(key, &existing)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("audit ledger: event %s already recorded", evt.ID)
	}
	stored := toStoredAudit(evt)
	if err := a.store.KVPut(key, stored); err != nil {
		return err
	}
	entry := auditIndexEntry{ID: stored.ID, Timestamp: stored.Timestamp}
	encoded, err := rlp.EncodeToBytes(entry)
	if err != nil {
		return err
	}
	return a.store.KVAppend(auditIndexKey, encoded)
}

// Get retrieves an event by identifier.
func (a *AuditLedger) Get(id string) (AuditEvent, bool, error) {
	if a == nil || a.store == nil {
		return AuditEvent{}, false, fmt.Errorf("audit ledger not initialised")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var stored storedAuditEvent
	ok, err := a.store.KVGet(auditKey(id), &stored)
	if err != nil || !ok {
		return AuditEvent{}, false, err
	}
	return fromStoredAudit(&stored), true, nil
}

// List returns events within the supplied unix-second timestamp range, both
// bounds inclusive, oldest first. A zero bound is open. The cursor is the ID
// of the last item from the previous page; limit caps the page size.
func (a *AuditLedger) List(startTs, endTs int64, cursor string, limit int) ([]AuditEvent, string, error) {
	if a == nil || a.store == nil {
		return nil, "", fmt.Errorf("audit ledger not initialised")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := a.loadIndex()
	if err != nil {
		return nil, "", err
	}
	filtered := make([]auditIndexEntry, 0, len(entries))
	for _, entry := range entries {
		ts := int64(entry.Timestamp)
		if startTs != 0 && ts < startTs {
			continue
		}
		if endTs != 0 && ts > endTs {
			continue
		}
		filtered = append(filtered, entry)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Timestamp == filtered[j].Timestamp {
			return filtered[i].ID < filtered[j].ID
		}
		return filtered[i].Timestamp < filtered[j].Timestamp
	})

	startIdx := 0
	if cursorID := strings.TrimSpace(cursor); cursorID != "" {
		for i, entry := range filtered {
			if entry.ID == cursorID {
				startIdx = i + 1
				break
			}
		}
	}
	pageSize := limit
	if pageSize <= 0 || startIdx+pageSize > len(filtered) {
		pageSize = len(filtered) - startIdx
	}

	out := make([]AuditEvent, 0, pageSize)
	for _, entry := range filtered[startIdx : startIdx+pageSize] {
		var stored storedAuditEvent
		ok, err := a.store.KVGet(auditKey(entry.ID), &stored)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", fmt.Errorf("audit ledger: index entry %s missing record", entry.ID)
		}
		out = append(out, fromStoredAudit(&stored))
	}
	nextCursor := ""
	if startIdx+pageSize < len(filtered) && pageSize > 0 {
		nextCursor = out[len(out)-1].ID
	}
	return out, nextCursor, nil
}

func (a *AuditLedger) loadIndex() ([]auditIndexEntry, error) {
	var raw [][]byte
	if err := a.store.KVGetList(auditIndexKey, &raw); err != nil {
		return nil, err
	}
	entries := make([]auditIndexEntry, 0, len(raw))
	for _, buf := range raw {
		var entry auditIndexEntry
		if err := rlp.DecodeBytes(buf, &entry); err != nil {
			return nil, fmt.Errorf("audit ledger: decode index entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
