// Package tile implements the per-tile memory-hierarchy timing model:
// routing requests to their home tile and bank (AccessDirector), arbitrating
// core/bank traffic onto the NoC and local L2 (Arbiter), and the L2 bank
// itself (spec.md §4.2, §4.3).
package tile

import (
	"strconv"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/noc"
)

// RequestLogger receives optional per-request trace callbacks. A nil
// RequestLogger disables tracing entirely, mirroring the teacher's trace_
// boolean guard pattern.
type RequestLogger interface {
	LogLocalBankRequest(cycle uint64, coreID int, pc uint32, bank int, address uint64)
	LogRemoteBankRequest(cycle uint64, coreID int, pc uint32, homeTile int, address uint64)
	LogMissServiced(cycle uint64, coreID int, pc uint32, address uint64)
	LogTileSendAck(cycle uint64, coreID int, pc uint32, sourceTile int, address uint64)

	// The four waypoint loggers below surface a CacheRequest's event.Waypoints
	// once it reaches its final ack, each called only for the waypoints that
	// were actually stamped along the way.
	LogReachArbiter(cycle uint64, coreID int, pc uint32, address uint64)
	LogReachCacheBank(cycle uint64, coreID int, pc uint32, address uint64)
	LogReachMC(cycle uint64, coreID int, pc uint32, address uint64)
	LogMCIssue(cycle uint64, coreID int, pc uint32, address uint64)

	// LogLLCRead and LogLLCWrite record an access at the optional L3 tier.
	LogLLCRead(cycle uint64, coreID int, pc uint32, address uint64)
	LogLLCWrite(cycle uint64, coreID int, pc uint32, address uint64)
}

// RequestSink receives serviced requests the tile has finished routing back
// to their originating core.
type RequestSink interface {
	NotifyAck(req *event.CacheRequest)
	NotifyScratchpadAck(req *event.ScratchpadRequest)
	// NotifyMCPUAck delivers an acknowledgement that arrived from a memory-
	// CPU wrapper over the NoC with nothing left for the tile itself to do
	// (a granted vector length, say) straight on to the orchestrator.
	NotifyMCPUAck(ev event.Event)
}

// Tile bundles the per-tile state: id, geometry, the access director,
// arbiter and L2 banks. Cores and the orchestrator drive it by calling
// PutAccess with an explicit current cycle; Tile owns no clock itself.
type Tile struct {
	ID           int
	CoresPerTile int
	BanksPerTile int

	director *AccessDirector
	arbiter  *Arbiter
	banks    []*L2Bank
	l3       *L3Bank

	sink   RequestSink
	logger RequestLogger

	countLocalRequests  uint64
	countRemoteRequests uint64
}

// NewTile builds a Tile. injector resolves NoC admission for the arbiter;
// sink receives the serviced requests this tile routes back to their cores.
func NewTile(
	id, coresPerTile, banksPerTile, numNetworks, arbiterQueueDepth int,
	geometry Geometry,
	cachePolicy CacheDataMappingPolicy,
	scratchpadPolicy ScratchpadMappingPolicy,
	injector NoCInjector,
	sink RequestSink,
	logger RequestLogger,
) *Tile {
	t := &Tile{
		ID:           id,
		CoresPerTile: coresPerTile,
		BanksPerTile: banksPerTile,
		sink:         sink,
		logger:       logger,
	}

	t.arbiter = NewArbiter(tileArbiterName(id), coresPerTile, banksPerTile, numNetworks, arbiterQueueDepth, injector)
	t.director = newAccessDirector(t, geometry, cachePolicy, scratchpadPolicy)

	t.banks = make([]*L2Bank, banksPerTile)
	for b := 0; b < banksPerTile; b++ {
		bank := NewL2Bank(id, b, geometry, t)
		t.banks[b] = bank
		t.arbiter.AddBank(b, bank)
	}

	return t
}

func tileArbiterName(id int) string {
	return "Tile" + strconv.Itoa(id)
}

// SetL3 attaches the optional last-level tier (architecture.l3_enabled). A
// nil l3 (the default) leaves bypass-L2 traffic routing straight to the
// memory controller.
func (t *Tile) SetL3(l3 *L3Bank) { t.l3 = l3 }

// Tick advances every bank's pending-completion queue and runs one round of
// arbiter-to-NoC and arbiter-to-L2 submission. The orchestrator calls this
// once per cycle as part of its per-tile phase (spec.md §4.6).
func (t *Tile) Tick(now uint64) {
	for _, bank := range t.banks {
		bank.Tick(now)
	}
	if t.l3 != nil {
		t.l3.Tick(now)
	}
	t.arbiter.SubmitToL2(now)
	t.arbiter.SubmitToNoC(now)
}

// HasPendingWork reports whether any bank, the L3 tier, or an arbiter queue
// in this tile still holds unfinished work, used by the orchestrator's
// fast-forward decision.
func (t *Tile) HasPendingWork() bool {
	for _, bank := range t.banks {
		if bank.HasPendingWork() {
			return true
		}
	}
	if t.l3 != nil && t.l3.HasPendingWork() {
		return true
	}
	return t.arbiter.HasTraffic()
}

// Arbiter exposes the tile's arbiter, e.g. for the orchestrator's per-cycle
// SubmitToNoC/SubmitToL2 phase.
func (t *Tile) Arbiter() *Arbiter { return t.arbiter }

// HasArbiterQueueFreeSlot reports whether localCore (an index in
// [0, CoresPerTile)) has room to inject another request into this tile's
// arbiter.
func (t *Tile) HasArbiterQueueFreeSlot(localCore int) bool {
	return t.arbiter.HasArbiterQueueFreeSlot(true, localCore)
}

// Bank returns the b'th local L2 bank.
func (t *Tile) Bank(b int) *L2Bank { return t.banks[b] }

// CountLocalRequests returns the number of CacheRequests whose home tile was
// this tile and whose source was also this tile.
func (t *Tile) CountLocalRequests() uint64 { return t.countLocalRequests }

// CountRemoteRequests returns the number of CacheRequests whose home tile
// was this tile but whose source was a different tile.
func (t *Tile) CountRemoteRequests() uint64 { return t.countRemoteRequests }

// PutAccess forwards a request to the access director, mirroring
// AccessDirector::putAccess's single entry point (spec.md §4.2).
func (t *Tile) PutAccess(r event.RegisterEvent, now uint64) {
	t.director.handle(r, now)
}

// HandleRemoteMessage admits a NoC message destined for this tile (a remote
// L2 request, an ack, or a memory response) back into the access director.
func (t *Tile) HandleRemoteMessage(msg *noc.Message, now uint64) {
	t.director.handleNoCMessage(msg, now)
}

func (t *Tile) issueLocalRequest(r *event.CacheRequest, now, lapse uint64) {
	t.arbiter.SubmitL2(r.CacheBank, r.CoreID()%t.CoresPerTile, r, now, lapse)
}

func (t *Tile) issueRemoteRequest(msg *noc.Message, now uint64) {
	t.arbiter.SubmitNoC(true, msg.Source, msg, now)
}

func (t *Tile) issueBankAck(r *event.CacheRequest, now uint64) {
	bank := t.banks[r.CacheBank]
	bank.Submit(r, now)
}
