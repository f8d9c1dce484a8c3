package aggregator

// ChunkBounds splits n items into consecutive [low, high) ranges of at most size items.
func ChunkBounds(n, size int) [][2]int {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}

	bounds := make([][2]int, 0, (n+size-1)/size)
	for low := 0; low < n; low += size {
		high := low + size
		if high > n {
			high = n
		}
		bounds = append(bounds, [2]int{low, high})
	}

	return bounds
}
