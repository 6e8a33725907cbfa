// Package imei normalizes raw device identifiers and partitions them into
// request batches.
package imei

import "errors"

// MinLength is the minimum digit count for a canonical IMEI. Shorter values
// are discarded as column noise (serial fragments, row numbers).
const MinLength = 12

// ErrNoValidIdentifiers is returned when normalization yields an empty set.
var ErrNoValidIdentifiers = errors.New("imei: no valid identifiers")

// Normalize strips every non-digit character from raw and reports whether the
// remaining digit run is long enough to be an IMEI.
func Normalize(raw string) (string, bool) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) < MinLength {
		return "", false
	}
	return string(digits), true
}

// NormalizeAll normalizes raw values, drops invalid ones and collapses
// duplicates, preserving first-seen order.
func NormalizeAll(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	var ids []string
	for _, value := range raw {
		id, ok := Normalize(value)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrNoValidIdentifiers
	}
	return ids, nil
}

// Batches partitions ids into consecutive slices of at most size elements.
// Batch k holds ids[k*size : min((k+1)*size, len(ids))]; the slices share the
// backing array of ids.
func Batches(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
