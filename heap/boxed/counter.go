package boxed

// TagObserver receives lifecycle tag transitions.
type TagObserver interface {
	TagChanged(from, to Tag)
}

// TagCounter keeps per-tag live object counts. A transition decrements the
// old tag's bucket unless it was TagFree and increments the new tag's
// bucket unless it is TagFree.
//
// NOT thread-safe; attach one counter per heap.
type TagCounter struct {
	live [256]int64
}

// TagChanged implements TagObserver.
func (c *TagCounter) TagChanged(from, to Tag) {
	if from != TagFree {
		c.live[from]--
	}
	if to != TagFree {
		c.live[to]++
	}
}

// Live returns the live count for t.
func (c *TagCounter) Live(t Tag) int64 {
	return c.live[t]
}

// Total returns the sum of all live counts.
func (c *TagCounter) Total() int64 {
	var n int64
	for _, v := range c.live {
		n += v
	}
	return n
}

// Counts returns the non-zero buckets.
func (c *TagCounter) Counts() map[Tag]int64 {
	out := make(map[Tag]int64)
	for t, v := range c.live {
		if v != 0 {
			out[Tag(t)] = v
		}
	}
	return out
}
