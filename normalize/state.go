package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Identified is a record with a string identifier that is unique within its
// resource type and immutable once assigned.
type Identified interface {
	GetID() string
}

// State is the normalized form of an ordered record list.
//
// Invariants: AllIDs has no duplicates, and AllIDs and the key set of ByID
// are equal.
type State[T Identified] struct {
	ByID   map[string]T `json:"byId"`
	AllIDs []string     `json:"allIds"`
}

// Empty returns a state with no records.
func Empty[T Identified]() State[T] {
	return State[T]{ByID: map[string]T{}, AllIDs: []string{}}
}

// Normalize builds a state from records. When an id repeats, the record
// keeps its first position and takes the value of the last occurrence.
func Normalize[T Identified](records []T) State[T] {
	s := State[T]{
		ByID:   make(map[string]T, len(records)),
		AllIDs: make([]string, 0, len(records)),
	}
	for _, r := range records {
		id := r.GetID()
		if _, seen := s.ByID[id]; !seen {
			s.AllIDs = append(s.AllIDs, id)
		}
		s.ByID[id] = r
	}
	return s
}

// Denormalize returns the records in AllIDs order.
func Denormalize[T Identified](s State[T]) []T {
	return SelectByIDs(s, s.AllIDs)
}

// Len returns the number of records.
func Len[T Identified](s State[T]) int {
	return len(s.AllIDs)
}

// Has reports whether id is present.
func Has[T Identified](s State[T], id string) bool {
	_, ok := s.ByID[id]
	return ok
}

// Update replaces the record for id with fn(existing). It is a no-op when id
// is absent. If fn changes the id, the original id is put back and the other
// changes are kept; a record whose id cannot be restored through its JSON
// fields leaves the state unchanged.
func Update[T Identified](s State[T], id string, fn func(T) T) State[T] {
	existing, ok := s.ByID[id]
	if !ok {
		return s
	}
	updated := fn(existing)
	if updated.GetID() != id {
		restored, ok := restoreID(existing, updated, id)
		if !ok {
			return s
		}
		updated = restored
	}
	byID := cloneMap(s.ByID)
	byID[id] = updated
	return State[T]{ByID: byID, AllIDs: s.AllIDs}
}

// Patch shallow-merges partial into the record for id using the record's
// JSON field names. Only the top-level fields named in partial change, and
// the id is never one of them.
// Records that cannot round-trip through JSON are left untouched.
func Patch[T Identified](s State[T], id string, partial map[string]any) State[T] {
	return Update(s, id, func(existing T) T {
		merged, err := mergeJSON(existing, partial)
		if err != nil {
			return existing
		}
		return merged
	})
}

// Insert appends record unless its id is already present, in which case
// the state is returned unchanged. Insert does not overwrite.
func Insert[T Identified](s State[T], record T) State[T] {
	id := record.GetID()
	if Has(s, id) {
		return s
	}
	byID := cloneMap(s.ByID)
	byID[id] = record

	allIDs := make([]string, len(s.AllIDs), len(s.AllIDs)+1)
	copy(allIDs, s.AllIDs)
	return State[T]{ByID: byID, AllIDs: append(allIDs, id)}
}

// Upsert replaces an existing record in place or appends a new one.
// Merge uses it to fold a refreshed list into a held state.
func Upsert[T Identified](s State[T], record T) State[T] {
	id := record.GetID()
	if !Has(s, id) {
		return Insert(s, record)
	}
	return Update(s, id, func(T) T { return record })
}

// Merge upserts every record in order.
func Merge[T Identified](s State[T], records []T) State[T] {
	for _, r := range records {
		s = Upsert(s, r)
	}
	return s
}

// Remove deletes id, preserving the relative order of the remaining ids.
func Remove[T Identified](s State[T], id string) State[T] {
	if !Has(s, id) {
		return s
	}
	byID := cloneMap(s.ByID)
	delete(byID, id)

	allIDs := make([]string, 0, len(s.AllIDs)-1)
	for _, existing := range s.AllIDs {
		if existing != id {
			allIDs = append(allIDs, existing)
		}
	}
	return State[T]{ByID: byID, AllIDs: allIDs}
}

// SelectByID returns the record for id.
func SelectByID[T Identified](s State[T], id string) (T, bool) {
	r, ok := s.ByID[id]
	return r, ok
}

// SelectByIDs returns the records for ids in the given order, skipping
// absent ids.
func SelectByIDs[T Identified](s State[T], ids []string) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.ByID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// SelectAll returns every record in AllIDs order.
func SelectAll[T Identified](s State[T]) []T {
	return Denormalize(s)
}

// Filter returns a state restricted to the records matching keep, in the
// original order.
func Filter[T Identified](s State[T], keep func(T) bool) State[T] {
	out := State[T]{ByID: make(map[string]T), AllIDs: make([]string, 0, len(s.AllIDs))}
	for _, id := range s.AllIDs {
		r, ok := s.ByID[id]
		if !ok || !keep(r) {
			continue
		}
		out.ByID[id] = r
		out.AllIDs = append(out.AllIDs, id)
	}
	return out
}

// Sort returns a state whose AllIDs are ordered by less. The sort is stable
// and the records themselves are shared with s.
func Sort[T Identified](s State[T], less func(a, b T) bool) State[T] {
	allIDs := make([]string, len(s.AllIDs))
	copy(allIDs, s.AllIDs)
	sort.SliceStable(allIDs, func(i, j int) bool {
		return less(s.ByID[allIDs[i]], s.ByID[allIDs[j]])
	})
	return State[T]{ByID: s.ByID, AllIDs: allIDs}
}

// Validate checks the structural invariants of s.
func Validate[T Identified](s State[T]) error {
	seen := make(map[string]struct{}, len(s.AllIDs))
	for _, id := range s.AllIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("normalize: duplicate id %q in AllIDs", id)
		}
		seen[id] = struct{}{}
		if _, ok := s.ByID[id]; !ok {
			return fmt.Errorf("normalize: id %q has no record", id)
		}
	}
	if len(s.ByID) != len(seen) {
		return errors.New("normalize: ByID has records missing from AllIDs")
	}
	for id, r := range s.ByID {
		if r.GetID() != id {
			return fmt.Errorf("normalize: record under %q reports id %q", id, r.GetID())
		}
	}
	return nil
}

func cloneMap[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeJSON[T any](existing T, partial map[string]any) (T, error) {
	var zero T

	fields, err := jsonFields(existing)
	if err != nil {
		return zero, err
	}
	for k, v := range partial {
		fields[k] = v
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return zero, err
	}
	var merged T
	if err := json.Unmarshal(raw, &merged); err != nil {
		return zero, err
	}
	return merged, nil
}

// restoreID puts id back into updated. The id fields are the top-level JSON
// fields that held id in existing and were changed in updated.
func restoreID[T Identified](existing, updated T, id string) (T, bool) {
	var zero T

	before, err := jsonFields(existing)
	if err != nil {
		return zero, false
	}
	after, err := jsonFields(updated)
	if err != nil {
		return zero, false
	}
	for k, v := range before {
		if s, isString := v.(string); isString && s == id && after[k] != v {
			after[k] = v
		}
	}
	raw, err := json.Marshal(after)
	if err != nil {
		return zero, false
	}
	var restored T
	if err := json.Unmarshal(raw, &restored); err != nil || restored.GetID() != id {
		return zero, false
	}
	return restored, true
}

func jsonFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
