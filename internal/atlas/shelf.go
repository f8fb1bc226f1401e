package atlas

// shelfAllocator packs rectangles into horizontal shelves. Each shelf is as
// tall as the first item placed on it; items go left to right until the
// shelf is full, then a new shelf opens below.
//
// Callers feed items tallest first, so a later item never needs a taller
// shelf than the one it lands on.
type shelfAllocator struct {
	width   int
	height  int
	padding int
	shelves []shelf
	used    int
}

type shelf struct {
	y      int // top edge
	height int
	x      int // next free column
}

func newShelfAllocator(width, height, padding int) *shelfAllocator {
	return &shelfAllocator{
		width:   width,
		height:  height,
		padding: padding,
		shelves: make([]shelf, 0, 8),
	}
}

// allocate reserves a w x h slot and returns its top-left corner.
func (a *shelfAllocator) allocate(w, h int) (x, y int, ok bool) {
	if w > a.width || h > a.height {
		return -1, -1, false
	}

	for i := range a.shelves {
		s := &a.shelves[i]
		if h > s.height || s.x+w > a.width {
			continue
		}
		x, y = s.x, s.y
		s.x += w + a.padding
		a.used += w * h
		return x, y, true
	}

	newY := 0
	if n := len(a.shelves); n > 0 {
		last := a.shelves[n-1]
		newY = last.y + last.height + a.padding
	}
	if newY+h > a.height {
		return -1, -1, false
	}

	a.shelves = append(a.shelves, shelf{y: newY, height: h, x: w + a.padding})
	a.used += w * h
	return 0, newY, true
}

// utilization is the share of the canvas covered by allocations.
func (a *shelfAllocator) utilization() float64 {
	if a.width <= 0 || a.height <= 0 {
		return 0
	}
	return float64(a.used) / float64(a.width*a.height)
}
