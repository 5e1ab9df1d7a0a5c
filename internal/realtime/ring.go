package realtime

import "github.com/lunarush/crashcore/internal/domain"

// replayRing buffers the most recent broadcast events so reconnecting clients
// can resume from their last seen seq instead of taking a full snapshot.
type replayRing struct {
	events []domain.Event
	size   int
	next   int
	count  int
}

func newReplayRing(size int) *replayRing {
	if size <= 0 {
		size = 1024
	}
	return &replayRing{events: make([]domain.Event, size), size: size}
}

func (r *replayRing) add(ev domain.Event) {
	r.events[r.next] = ev
	r.next = (r.next + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// oldest returns the lowest seq still buffered, zero when empty.
func (r *replayRing) oldest() uint64 {
	if r.count == 0 {
		return 0
	}
	idx := (r.next - r.count + r.size) % r.size
	return r.events[idx].Seq
}

// lastOfType returns up to n most recent buffered events of one type, oldest
// first.
func (r *replayRing) lastOfType(eventType string, n int) []domain.Event {
	if n <= 0 || r.count == 0 {
		return nil
	}
	var out []domain.Event
	start := (r.next - r.count + r.size) % r.size
	for i := r.count - 1; i >= 0 && len(out) < n; i-- {
		ev := r.events[(start+i)%r.size]
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// since returns all buffered events with seq > afterSeq, in order. ok is
// false when afterSeq has already been evicted and the gap cannot be closed.
func (r *replayRing) since(afterSeq uint64) ([]domain.Event, bool) {
	if r.count == 0 {
		return nil, true
	}
	if afterSeq+1 < r.oldest() {
		return nil, false
	}

	var out []domain.Event
	start := (r.next - r.count + r.size) % r.size
	for i := 0; i < r.count; i++ {
		ev := r.events[(start+i)%r.size]
		if ev.Seq > afterSeq {
			out = append(out, ev)
		}
	}
	return out, true
}
