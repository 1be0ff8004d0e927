package subtitle

// IndexForTime returns the index of the item active at time t using
// binary search. An exact containment hit wins; otherwise the result is
// the most recent item whose start precedes t, which keeps a subtitle
// on screen through the gaps between items. Returns -1 when t precedes
// the first item or the timeline is empty.
func IndexForTime(items Timeline, t float64) int {
	low, high := 0, len(items)-1
	candidate := -1

	for low <= high {
		mid := (low + high) / 2
		switch {
		case items[mid].Contains(t):
			return mid
		case t < items[mid].StartTime:
			high = mid - 1
		default:
			candidate = mid
			low = mid + 1
		}
	}

	return candidate
}

// ItemAt returns the item at index i, if i is valid.
func ItemAt(items Timeline, i int) (TimedItem, bool) {
	if i < 0 || i >= len(items) {
		return TimedItem{}, false
	}
	return items[i], true
}

// ContextAround returns the sentence at index i together with its
// neighbors, for explanation requests that want surrounding text.
func ContextAround(items Timeline, i int) (SentenceContext, bool) {
	current, ok := ItemAt(items, i)
	if !ok {
		return SentenceContext{}, false
	}

	ctx := SentenceContext{Index: i, Current: current}
	if i > 0 {
		prev := items[i-1]
		ctx.Previous = &prev
	}
	if i < len(items)-1 {
		next := items[i+1]
		ctx.Next = &next
	}
	return ctx, true
}
