package monitor

import "sort"

// ProcessedSet tracks calendar event IDs that already received preparation
// planning. State is explicit: callers load it, pass it around and persist
// it; the package keeps no globals.
type ProcessedSet struct {
	ids map[string]bool
}

// NewProcessedSet builds a set from known IDs.
func NewProcessedSet(ids ...string) *ProcessedSet {
	s := &ProcessedSet{ids: make(map[string]bool, len(ids))}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

// Contains reports whether id has been processed.
func (s *ProcessedSet) Contains(id string) bool {
	return s.ids[id]
}

// Add marks id as processed.
func (s *ProcessedSet) Add(id string) {
	s.ids[id] = true
}

// Len returns the number of processed IDs.
func (s *ProcessedSet) Len() int {
	return len(s.ids)
}

// IDs returns the processed IDs in stable order.
func (s *ProcessedSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
