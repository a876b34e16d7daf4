package source

// Selection names the lines a read covers: either one contiguous range or
// an arbitrary, possibly unsorted, set of indices.
type Selection struct {
	start   int
	count   int
	indices []int
}

// Range selects count lines starting at start.
func Range(start, count int) Selection {
	if count < 0 {
		count = 0
	}
	return Selection{start: start, count: count}
}

// Indices selects the given lines in the given order.
func Indices(indices ...int) Selection {
	return Selection{indices: indices, count: len(indices)}
}

// Len returns the number of lines selected.
func (s Selection) Len() int {
	return s.count
}

// Contiguous reports whether the selection is a single range.
func (s Selection) Contiguous() bool {
	return s.indices == nil
}

// At returns the line index at position i of the selection.
func (s Selection) At(i int) int {
	if s.indices != nil {
		return s.indices[i]
	}
	return s.start + i
}

// Start returns the first selected line of a contiguous selection.
func (s Selection) Start() int {
	if s.indices != nil {
		if len(s.indices) == 0 {
			return 0
		}
		return s.indices[0]
	}
	return s.start
}

// head returns the first n lines of the selection.
func (s Selection) head(n int) Selection {
	if n >= s.count {
		return s
	}
	if n < 0 {
		n = 0
	}
	if s.indices != nil {
		return Selection{indices: s.indices[:n], count: n}
	}
	return Selection{start: s.start, count: n}
}
