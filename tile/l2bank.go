package tile

import "github.com/sarchlab/coyote-go/event"

// TagArrayOutcome is the result of a tag-array lookup. The tag array itself
// (replacement policy, set/way bookkeeping) is an external collaborator per
// spec.md §1 — this package only needs to know whether a line hit, missed
// cleanly, or missed and evicted a dirty line.
type TagArrayOutcome int

// Tag-array lookup outcomes.
const (
	Hit TagArrayOutcome = iota
	Miss
	MissWithEviction
)

// TagArray is the pluggable contract a bank's lookup logic is built around.
type TagArray interface {
	// Access looks up lineAddress, installing it on a miss. It reports
	// whether an existing dirty line had to be evicted to make room, and
	// if so its address.
	Access(lineAddress uint64, isWrite bool) (outcome TagArrayOutcome, evictedAddress uint64)
}

// directMappedTagArray is the default TagArray: direct-mapped, dirty-bit
// per line, no replacement choice to make. Good enough to drive fill and
// writeback traffic without claiming fidelity to any particular real cache.
type directMappedTagArray struct {
	numSets  uint64
	lineSize uint64
	valid    []bool
	dirty    []bool
	tag      []uint64
}

// NewDirectMappedTagArray builds a direct-mapped TagArray with numSets
// lines of lineSize bytes each.
func NewDirectMappedTagArray(numSets, lineSize uint64) TagArray {
	return &directMappedTagArray{
		numSets:  numSets,
		lineSize: lineSize,
		valid:    make([]bool, numSets),
		dirty:    make([]bool, numSets),
		tag:      make([]uint64, numSets),
	}
}

func (a *directMappedTagArray) Access(lineAddress uint64, isWrite bool) (TagArrayOutcome, uint64) {
	set := (lineAddress / a.lineSize) % a.numSets
	tag := (lineAddress / a.lineSize) / a.numSets

	if a.valid[set] && a.tag[set] == tag {
		if isWrite {
			a.dirty[set] = true
		}
		return Hit, 0
	}

	var outcome TagArrayOutcome
	var evicted uint64
	if a.valid[set] && a.dirty[set] {
		outcome = MissWithEviction
		evicted = (a.tag[set]*a.numSets + set) * a.lineSize
	} else {
		outcome = Miss
	}

	a.valid[set] = true
	a.tag[set] = tag
	a.dirty[set] = isWrite
	return outcome, evicted
}

type bankCompletion struct {
	readyAt    uint64
	req        *event.CacheRequest
	wasMiss    bool
	writeback  *event.CacheRequest
	scratchpad *event.ScratchpadRequest
}

// L2Bank is the per-bank shell described in spec.md's module table: it
// looks up a line, allocates an MSHR on a miss, and schedules the fill or
// writeback that results. Scratchpad storage shares the bank but bypasses
// the tag array entirely.
type L2Bank struct {
	TileID int
	BankID int

	tile     *Tile
	geometry Geometry
	tags     TagArray

	hitLatency        uint64
	missLatency       uint64
	scratchpadLatency uint64
	maxMSHRs          int
	inFlightMisses    int

	pending []bankCompletion
}

// NewL2Bank builds an L2Bank with a direct-mapped default TagArray sized
// from geometry and conservative default latencies; use the Set* methods
// to override.
func NewL2Bank(tileID, bankID int, geometry Geometry, t *Tile) *L2Bank {
	numSets := uint64(1)
	if geometry.SetBits > 0 {
		numSets = uint64(1) << geometry.SetBits
	}
	return &L2Bank{
		TileID:            tileID,
		BankID:            bankID,
		tile:              t,
		geometry:          geometry,
		tags:              NewDirectMappedTagArray(numSets, geometry.LineSize),
		hitLatency:        10,
		missLatency:       1,
		scratchpadLatency: 1,
		maxMSHRs:          16,
	}
}

// SetTagArray overrides the default direct-mapped tag array.
func (b *L2Bank) SetTagArray(t TagArray) { b.tags = t }

// SetLatencies overrides the hit and miss-issue latencies, in cycles.
func (b *L2Bank) SetLatencies(hit, miss uint64) { b.hitLatency, b.missLatency = hit, miss }

// SetMaxMSHRs overrides the bank's own miss-tracking capacity.
func (b *L2Bank) SetMaxMSHRs(n int) { b.maxMSHRs = n }

// Submit implements Arbiter.BankReceiver: a CacheRequest the arbiter has
// just handed to this bank.
func (b *L2Bank) Submit(req *event.CacheRequest, now uint64) {
	lineSize := b.geometry.LineSize
	if lineSize == 0 {
		lineSize = 1
	}
	lineAddress := req.Address - (req.Address % lineSize)

	outcome, evictedAddress := b.tags.Access(lineAddress, req.Type == event.Store || req.Type == event.Writeback)

	switch outcome {
	case Hit:
		b.pending = append(b.pending, bankCompletion{readyAt: now + b.hitLatency, req: req})
	case Miss, MissWithEviction:
		b.inFlightMisses++
		var writeback *event.CacheRequest
		if outcome == MissWithEviction {
			writeback = b.buildWriteback(evictedAddress, now)
		}
		b.pending = append(b.pending, bankCompletion{readyAt: now + b.missLatency, req: req, wasMiss: true, writeback: writeback})
	}
}

func (b *L2Bank) buildWriteback(evictedAddress, now uint64) *event.CacheRequest {
	wb := event.NewCacheRequest(now, 0, -1, b.TileID, -1, event.RegDontCare, evictedAddress, uint32(b.geometry.LineSize), event.Writeback)
	wb.Flags.BypassL2 = true
	return wb
}

// SubmitScratchpad handles a scratchpad read/write landing on this bank's
// storage. Scratchpad traffic never consults the tag array.
func (b *L2Bank) SubmitScratchpad(req *event.ScratchpadRequest, now uint64) {
	b.pending = append(b.pending, bankCompletion{readyAt: now + b.scratchpadLatency, scratchpad: req})
}

// Tick finalizes every completion whose ready cycle has arrived, re-entering
// the tile's access director so serviced requests route back to their core
// (or onward, for a just-unblocked writeback).
func (b *L2Bank) Tick(now uint64) {
	remaining := b.pending[:0]
	for _, c := range b.pending {
		if c.readyAt > now {
			remaining = append(remaining, c)
			continue
		}

		switch {
		case c.scratchpad != nil:
			c.scratchpad.SetServiced()
			b.tile.PutAccess(c.scratchpad, now)
		case c.req != nil:
			if c.wasMiss {
				b.inFlightMisses--
			}
			c.req.SetServiced()
			b.tile.PutAccess(c.req, now)
			if c.writeback != nil {
				b.tile.PutAccess(c.writeback, now)
			}
		}
	}
	b.pending = remaining
}

// HasPendingWork reports whether the bank still holds any unfinalized
// completion, used by the orchestrator's fast-forward decision.
func (b *L2Bank) HasPendingWork() bool {
	return len(b.pending) > 0
}

// InFlightMisses returns the number of MSHRs currently allocated.
func (b *L2Bank) InFlightMisses() int { return b.inFlightMisses }
