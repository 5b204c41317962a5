package tile

import "github.com/sarchlab/coyote-go/event"

type l3Completion struct {
	readyAt   uint64
	req       *event.CacheRequest
	wasMiss   bool
	writeback *event.CacheRequest
}

// L3Bank is the optional last-level tier between a tile's L2 banks and its
// memory controller, grounded on the original's L3CacheBank: a shared,
// larger-and-slower cache sitting on the bypass-L2 traffic (writebacks and
// other requests flagged to bypass the L2 banks) that would otherwise go
// straight to memory. A nil *L3Bank on a
// Tile means the tier is absent (architecture.l3_enabled = false), and
// requests fall straight through to the memory controller as before.
type L3Bank struct {
	TileID int

	tile     *Tile
	geometry Geometry
	tags     TagArray

	hitLatency     uint64
	missLatency    uint64
	maxMSHRs       int
	inFlightMisses int

	pending []l3Completion
}

// NewL3Bank builds an L3Bank sized by its own line/size/associativity
// parameters, independent of the L2 geometry it sits behind (the original's
// L3CacheBankParameterSet defaults to a larger line size and capacity than
// DL1/DL2).
func NewL3Bank(tileID int, lineSize, sizeKB, assoc uint64, t *Tile) *L3Bank {
	if lineSize == 0 {
		lineSize = 1
	}
	numSets := uint64(1)
	if assoc > 0 && lineSize > 0 {
		total := sizeKB * 1024
		if n := total / (assoc * lineSize); n > 0 {
			numSets = n
		}
	}
	return &L3Bank{
		TileID:      tileID,
		tile:        t,
		geometry:    Geometry{LineSize: lineSize},
		tags:        NewDirectMappedTagArray(numSets, lineSize),
		hitLatency:  10,
		missLatency: 10,
		maxMSHRs:    8,
	}
}

// SetLatencies overrides the hit and miss-issue latencies, in cycles.
func (b *L3Bank) SetLatencies(hit, miss uint64) { b.hitLatency, b.missLatency = hit, miss }

// SetMaxMSHRs overrides the bank's own miss-tracking capacity.
func (b *L3Bank) SetMaxMSHRs(n int) { b.maxMSHRs = n }

// Submit handles a bypass-L2 request (a writeback, or any other request
// flagged to bypass the L2 banks) at the L3 tier.
func (b *L3Bank) Submit(req *event.CacheRequest, now uint64) {
	lineSize := b.geometry.LineSize
	lineAddress := req.Address - (req.Address % lineSize)

	isWrite := req.Type == event.Store || req.Type == event.Writeback
	if b.tile.logger != nil {
		if isWrite {
			b.tile.logger.LogLLCWrite(now, req.CoreID(), req.PC(), req.Address)
		} else {
			b.tile.logger.LogLLCRead(now, req.CoreID(), req.PC(), req.Address)
		}
	}

	outcome, evictedAddress := b.tags.Access(lineAddress, isWrite)

	switch outcome {
	case Hit:
		b.pending = append(b.pending, l3Completion{readyAt: now + b.hitLatency, req: req})
	case Miss, MissWithEviction:
		b.inFlightMisses++
		var writeback *event.CacheRequest
		if outcome == MissWithEviction {
			writeback = b.buildWriteback(evictedAddress, now)
		}
		b.pending = append(b.pending, l3Completion{readyAt: now + b.missLatency, req: req, wasMiss: true, writeback: writeback})
	}
}

func (b *L3Bank) buildWriteback(evictedAddress, now uint64) *event.CacheRequest {
	wb := event.NewCacheRequest(now, 0, -1, b.TileID, -1, event.RegDontCare, evictedAddress, uint32(b.geometry.LineSize), event.Writeback)
	wb.Flags.BypassL2 = true
	return wb
}

// Tick finalizes every completion whose ready cycle has arrived. A hit
// resolves locally; a miss is handed onward to the memory controller the way
// a bypass-L2 request would have gone without an L3 tier.
func (b *L3Bank) Tick(now uint64) {
	remaining := b.pending[:0]
	for _, c := range b.pending {
		if c.readyAt > now {
			remaining = append(remaining, c)
			continue
		}

		if c.wasMiss {
			b.inFlightMisses--
			b.tile.director.routeToMemory(c.req, now)
			if c.writeback != nil {
				b.tile.director.routeToMemory(c.writeback, now)
			}
			continue
		}

		c.req.SetServiced()
		b.tile.PutAccess(c.req, now)
	}
	b.pending = remaining
}

// HasPendingWork reports whether the bank still holds any unfinalized
// completion.
func (b *L3Bank) HasPendingWork() bool { return len(b.pending) > 0 }

// InFlightMisses returns the number of MSHRs currently allocated.
func (b *L3Bank) InFlightMisses() int { return b.inFlightMisses }
