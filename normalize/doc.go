// Package normalize keeps lists of identified records in normalized form: an
// id-indexed map plus an ordered id list.
//
// Every function is pure and total. Operations on absent ids are silent
// no-ops that return the input state unchanged, so UI-facing selectors never
// need error handling. Inputs are never mutated; a changed state gets its own
// map and slice.
package normalize
