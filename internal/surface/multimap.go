package surface

import "sort"

// MultiMap maps a key to every value added under it. Duplicates are kept;
// their multiplicity is the frequency later turned into probabilities.
type MultiMap struct {
	m     map[string][]string
	pairs int64
}

func NewMultiMap() *MultiMap {
	return &MultiMap{m: make(map[string][]string)}
}

// Add appends value to the sequence of key, creating the sequence when key
// is new.
func (mm *MultiMap) Add(key, value string) {
	mm.m[key] = append(mm.m[key], value)
	mm.pairs++
}

// Values returns the values of key in insertion order.
func (mm *MultiMap) Values(key string) []string {
	return mm.m[key]
}

// Keys returns every key, sorted.
func (mm *MultiMap) Keys() []string {
	keys := make([]string, 0, len(mm.m))
	for k := range mm.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of distinct keys.
func (mm *MultiMap) Len() int {
	return len(mm.m)
}

// Pairs is the number of Add calls.
func (mm *MultiMap) Pairs() int64 {
	return mm.pairs
}
