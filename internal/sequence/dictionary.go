package sequence

import "sort"

// Dictionary encodes a sequence as a table of its distinct values plus a
// compact array of per-position ranks. Pilot sequences repeat small values
// heavily, so the rank array is much narrower than the raw values.
type Dictionary struct {
	ranks *CompactVector
	table *CompactVector
}

// NewDictionary encodes values.
func NewDictionary(values []uint64) *Dictionary {
	distinct := make([]uint64, 0, len(values))
	seen := make(map[uint64]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			distinct = append(distinct, v)
		}
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })

	rank := make(map[uint64]uint64, len(distinct))
	for i, v := range distinct {
		rank[v] = uint64(i)
	}
	ranks := make([]uint64, len(values))
	for i, v := range values {
		ranks[i] = rank[v]
	}

	return &Dictionary{
		ranks: NewCompactVector(ranks),
		table: NewCompactVector(distinct),
	}
}

// NewDictionaryFromParts rebuilds a dictionary from its serialized vectors.
func NewDictionaryFromParts(ranks, table *CompactVector) *Dictionary {
	return &Dictionary{ranks: ranks, table: table}
}

// Access returns the i-th value.
func (d *Dictionary) Access(i uint64) uint64 {
	return d.table.Access(d.ranks.Access(i))
}

// Size returns the number of values.
func (d *Dictionary) Size() uint64 { return d.ranks.Size() }

// Ranks returns the rank array.
func (d *Dictionary) Ranks() *CompactVector { return d.ranks }

// Table returns the distinct-value table.
func (d *Dictionary) Table() *CompactVector { return d.table }

// NumBits returns the in-memory size in bits.
func (d *Dictionary) NumBits() uint64 {
	return d.ranks.NumBits() + d.table.NumBits()
}
