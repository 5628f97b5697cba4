package compose

import "sort"

// chunkRanges partitions each axis into [start, stop) chunk bounds. The last
// chunk of an axis may be shorter when the chunk size does not divide the
// axis length.
func chunkRanges(shape, chunks []int) [][][2]int {
	ranges := make([][][2]int, len(shape))
	for ax := range shape {
		var axisRanges [][2]int
		for start := 0; start < shape[ax]; start += chunks[ax] {
			axisRanges = append(axisRanges, [2]int{start, min(start+chunks[ax], shape[ax])})
		}
		// A zero-length axis still has one empty chunk so the plan covers it.
		if len(axisRanges) == 0 {
			axisRanges = [][2]int{{0, 0}}
		}
		ranges[ax] = axisRanges
	}
	return ranges
}

// chunkStarts extracts the sorted start coordinate of every chunk per axis,
// for binary-search lookups.
func chunkStarts(ranges [][][2]int) [][]int {
	starts := make([][]int, len(ranges))
	for ax, axisRanges := range ranges {
		starts[ax] = make([]int, len(axisRanges))
		for i, r := range axisRanges {
			starts[ax][i] = r[0]
		}
	}
	return starts
}

// chunkSpan returns the half-open range of chunk indices on one axis that a
// region [lo, hi) can overlap: the first chunk whose span may contain lo
// through the first chunk starting at or past hi.
func chunkSpan(starts []int, lo, hi int) (first, last int) {
	// First start strictly greater than lo, minus one.
	first = sort.Search(len(starts), func(i int) bool { return starts[i] > lo }) - 1
	// First start at or past hi (exclusive bound).
	last = sort.Search(len(starts), func(i int) bool { return starts[i] >= hi })
	return max(0, first), min(last, len(starts))
}

// chunksForRegions maps each chunk index (flattened row-major) to the region
// indices overlapping it, in region order. The index is built by iterating
// regions, not chunks, so cost scales with the number of chunks a region
// actually touches.
func chunksForRegions(ranges [][][2]int, regionBounds [][][2]int) map[int][]int {
	starts := chunkStarts(ranges)
	counts := make([]int, len(ranges))
	for ax := range ranges {
		counts[ax] = len(ranges[ax])
	}

	out := make(map[int][]int)
	for ri, rb := range regionBounds {
		spans := make([][2]int, len(ranges))
		for ax := range ranges {
			first, last := chunkSpan(starts[ax], rb[ax][0], rb[ax][1])
			spans[ax] = [2]int{first, last}
		}
		forEachIndex(spans, func(idx []int) {
			out[flatIndex(counts, idx)] = append(out[flatIndex(counts, idx)], ri)
		})
	}
	return out
}

// forEachIndex visits the Cartesian product of the half-open per-axis spans
// in row-major order. The idx slice is reused between calls.
func forEachIndex(spans [][2]int, fn func(idx []int)) {
	idx := make([]int, len(spans))
	for ax := range spans {
		if spans[ax][0] >= spans[ax][1] {
			return
		}
		idx[ax] = spans[ax][0]
	}
	for {
		fn(idx)
		ax := len(spans) - 1
		for ; ax >= 0; ax-- {
			idx[ax]++
			if idx[ax] < spans[ax][1] {
				break
			}
			idx[ax] = spans[ax][0]
		}
		if ax < 0 {
			return
		}
	}
}

// flatIndex converts a multi-axis chunk index to a row-major scalar.
func flatIndex(counts, idx []int) int {
	flat := 0
	for ax := range idx {
		flat = flat*counts[ax] + idx[ax]
	}
	return flat
}
