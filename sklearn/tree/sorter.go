package tree

import (
	"math"
	"sort"
	"strings"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/YuminosukeSato/treeml/pkg/errors"
)

// SortMethod selects how a node's samples are ordered by feature value.
// Both methods produce the same order: ascending value, ties by sample index.
type SortMethod int

const (
	// RadixSort is an LSD radix sort over the IEEE-754 bit patterns.
	RadixSort SortMethod = iota
	// ComparisonSort is the standard library's introsort.
	ComparisonSort
)

func (m SortMethod) String() string {
	if m == ComparisonSort {
		return "comparison"
	}
	return "radix"
}

// ParseSortMethod accepts "radix" (alias "boost") and "comparison"
// (aliases "stl", "std").
func ParseSortMethod(s string) (SortMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "radix", "boost":
		return RadixSort, nil
	case "comparison", "stl", "std":
		return ComparisonSort, nil
	}
	return RadixSort, errors.NewValidationError("sort_method", "must be radix or comparison", s)
}

// radixCutoff: ranges this short are sorted by comparison.
const radixCutoff = 32

// sampleSorter orders a node's sample range by one feature and fills the
// matching feature values. Its buffers are reused across nodes.
type sampleSorter struct {
	method SortMethod
	radix  radixBuffers
}

// sort reorders samples ascending by col[sample] and writes the sorted values
// into values, which must have the same length as samples.
func (s *sampleSorter) sort(samples []int, values []float64, col []float64) {
	for i, idx := range samples {
		values[i] = col[idx]
	}
	if s.method == ComparisonSort || len(samples) <= radixCutoff {
		sortPairs(values, samples)
		return
	}
	radixSortPairs(values, samples, &s.radix)
}

// byValue sorts values and their sample indices together.
type byValue[T constraints.Float] struct {
	values  []T
	samples []int
}

func (p byValue[T]) Len() int { return len(p.values) }

func (p byValue[T]) Less(i, j int) bool {
	vi, vj := p.values[i], p.values[j]
	return vi < vj || (vi == vj && p.samples[i] < p.samples[j])
}

func (p byValue[T]) Swap(i, j int) {
	p.values[i], p.values[j] = p.values[j], p.values[i]
	p.samples[i], p.samples[j] = p.samples[j], p.samples[i]
}

// sortPairs sorts values ascending, permuting samples alongside.
func sortPairs[T constraints.Float](values []T, samples []int) {
	sort.Sort(byValue[T]{values: values, samples: samples})
}

type radixBuffers struct {
	keys, keys2 []uint64
	idx2        []int
}

func (b *radixBuffers) grow(n int) {
	if cap(b.keys) < n {
		b.keys = make([]uint64, n)
		b.keys2 = make([]uint64, n)
		b.idx2 = make([]int, n)
	}
	b.keys, b.keys2, b.idx2 = b.keys[:n], b.keys2[:n], b.idx2[:n]
}

// floatWidth returns the size in bytes of T (4 or 8).
func floatWidth[T constraints.Float]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// radixKey maps v to an unsigned key with the same order: negative values
// have every bit flipped, non-negative values get the sign bit set.
// -0 is mapped as +0.
func radixKey[T constraints.Float](v T, width int) uint64 {
	if v == 0 {
		v = 0
	}
	if width == 4 {
		b := math.Float32bits(float32(v))
		if b&(1<<31) != 0 {
			return uint64(^b)
		}
		return uint64(b | 1<<31)
	}
	b := math.Float64bits(float64(v))
	if b&(1<<63) != 0 {
		return ^b
	}
	return b | 1<<63
}

// radixValue inverts radixKey.
func radixValue[T constraints.Float](k uint64, width int) T {
	if width == 4 {
		b := uint32(k)
		if b&(1<<31) != 0 {
			return T(math.Float32frombits(b &^ (1 << 31)))
		}
		return T(math.Float32frombits(^b))
	}
	if k&(1<<63) != 0 {
		return T(math.Float64frombits(k &^ (1 << 63)))
	}
	return T(math.Float64frombits(^k))
}

// radixSortPairs sorts NaN-free values ascending together with samples, one
// byte per pass. Runs of equal values end up ordered by sample index.
func radixSortPairs[T constraints.Float](values []T, samples []int, buf *radixBuffers) {
	n := len(values)
	if n < 2 {
		return
	}
	width := floatWidth[T]()
	buf.grow(n)
	keys, idx := buf.keys, samples
	for i, v := range values {
		keys[i] = radixKey(v, width)
	}
	keysTmp, idxTmp := buf.keys2, buf.idx2

	var count [256]int
	for pass := 0; pass < width; pass++ {
		shift := uint(pass * 8)
		count = [256]int{}
		for _, k := range keys {
			count[(k>>shift)&0xff]++
		}
		// every key shares this digit
		if count[(keys[0]>>shift)&0xff] == n {
			continue
		}
		pos := 0
		for d := range count {
			c := count[d]
			count[d] = pos
			pos += c
		}
		for i, k := range keys {
			d := (k >> shift) & 0xff
			keysTmp[count[d]] = k
			idxTmp[count[d]] = idx[i]
			count[d]++
		}
		keys, keysTmp = keysTmp, keys
		idx, idxTmp = idxTmp, idx
	}
	if &idx[0] != &samples[0] {
		copy(samples, idx)
	}

	for i := 0; i < n; {
		j := i + 1
		for j < n && keys[j] == keys[i] {
			j++
		}
		if j-i > 1 {
			sort.Ints(samples[i:j])
		}
		v := radixValue[T](keys[i], width)
		for k := i; k < j; k++ {
			values[k] = v
		}
		i = j
	}
}
