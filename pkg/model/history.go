package model

import "github.com/samber/lo"

// MaxHistory is the upper bound of records kept in History
const MaxHistory = 200

// History is an ordered list of records, newest first
type History []*Record

// Insert returns a new History with r at the head. Entries beyond MaxHistory are dropped
// from the tail, and an older entry with the same ID is removed. h itself is not modified.
func (h History) Insert(r *Record) History {
	size := min(len(h)+1, MaxHistory)
	out := make(History, 0, size)
	out = append(out, r)
	for _, old := range h {
		if len(out) == MaxHistory {
			break
		}
		if old.ID == r.ID {
			continue
		}
		out = append(out, old)
	}
	return out
}

// Backfill returns a new History with records appended to the tail in their order.
// Records whose ID is already present are skipped, and appending stops at MaxHistory.
func (h History) Backfill(records []*Record) History {
	out := append(History{}, h...)
	for _, r := range records {
		if len(out) >= MaxHistory {
			break
		}
		if _, ok := out.Find(r.ID); ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Find returns the record with the given ID
func (h History) Find(id RecordID) (*Record, bool) {
	return lo.Find(h, func(r *Record) bool {
		return r.ID == id
	})
}

// Filter returns records of the given kind, keeping order
func (h History) Filter(kind Kind) History {
	return lo.Filter(h, func(r *Record, _ int) bool {
		return r.Kind == kind
	})
}

// Remove returns a new History without the record of the given ID
func (h History) Remove(id RecordID) History {
	return lo.Reject(h, func(r *Record, _ int) bool {
		return r.ID == id
	})
}

// Counts returns the number of records per kind. Every kind is present in the result.
func (h History) Counts() map[Kind]int {
	counts := lo.CountValuesBy(h, func(r *Record) Kind {
		return r.Kind
	})
	for _, k := range Kinds {
		if _, ok := counts[k]; !ok {
			counts[k] = 0
		}
	}
	return counts
}
