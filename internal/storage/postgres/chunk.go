package postgres

// span is a half-open index range [From, To).
type span struct {
	From int
	To   int
}

// chunks splits n items into consecutive spans of at most size items.
func chunks(n, size int) []span {
	if n <= 0 {
		return nil
	}
	if size <= 0 || size > n {
		size = n
	}

	out := make([]span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, span{From: start, To: end})
	}
	return out
}
