package statechart

import "sync"

// HistoryStore keeps, per history state, the states captured at the last
// exit of its parent
type HistoryStore struct {
	mu      sync.RWMutex
	records map[StateID][]StateID
}

func newHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[StateID][]StateID)}
}

// Record overwrites the captured states of a history state
func (h *HistoryStore) Record(history StateID, states []StateID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[history] = append([]StateID(nil), states...)
}

// Lookup returns a copy of the captured states, or nil
func (h *HistoryStore) Lookup(history StateID) []StateID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec := h.records[history]
	if len(rec) == 0 {
		return nil
	}
	return append([]StateID(nil), rec...)
}

// Clear forgets the record of one history state
func (h *HistoryStore) Clear(history StateID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.records, history)
}

// ClearAll forgets every record
func (h *HistoryStore) ClearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.records)
}

// Len returns the number of history states with a record
func (h *HistoryStore) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
