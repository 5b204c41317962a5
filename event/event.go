// Package event defines the closed set of tagged event variants that flow
// between the tile, arbiter, NoC and orchestrator, and the visitor substrate
// used to dispatch them without virtual method lookup.
package event

import "sync/atomic"

// ID uniquely identifies an event for its lifetime.
type ID uint64

var idCounter uint64

// NewID returns a fresh, process-unique event id.
func NewID() ID {
	return ID(atomic.AddUint64(&idCounter, 1))
}

// Waypoints are trace-only cycle stamps. Each one is write-once: once set,
// further Set calls are ignored.
type Waypoints struct {
	reachArbiter      uint64
	reachArbiterSet   bool
	reachCacheBank    uint64
	reachCacheBankSet bool
	reachMC           uint64
	reachMCSet        bool
	mcIssue           uint64
	mcIssueSet        bool
}

// SetReachArbiter records the cycle the event reached the tile arbiter.
func (w *Waypoints) SetReachArbiter(cycle uint64) {
	if w.reachArbiterSet {
		return
	}
	w.reachArbiter, w.reachArbiterSet = cycle, true
}

// ReachArbiter returns the recorded cycle and whether it was ever set.
func (w *Waypoints) ReachArbiter() (uint64, bool) {
	return w.reachArbiter, w.reachArbiterSet
}

// SetReachCacheBank records the cycle the event reached its cache bank.
func (w *Waypoints) SetReachCacheBank(cycle uint64) {
	if w.reachCacheBankSet {
		return
	}
	w.reachCacheBank, w.reachCacheBankSet = cycle, true
}

// ReachCacheBank returns the recorded cycle and whether it was ever set.
func (w *Waypoints) ReachCacheBank() (uint64, bool) {
	return w.reachCacheBank, w.reachCacheBankSet
}

// SetReachMC records the cycle the event reached the memory controller.
func (w *Waypoints) SetReachMC(cycle uint64) {
	if w.reachMCSet {
		return
	}
	w.reachMC, w.reachMCSet = cycle, true
}

// ReachMC returns the recorded cycle and whether it was ever set.
func (w *Waypoints) ReachMC() (uint64, bool) {
	return w.reachMC, w.reachMCSet
}

// SetMCIssue records the cycle the memory controller issued the request.
func (w *Waypoints) SetMCIssue(cycle uint64) {
	if w.mcIssueSet {
		return
	}
	w.mcIssue, w.mcIssueSet = cycle, true
}

// MCIssue returns the recorded cycle and whether it was ever set.
func (w *Waypoints) MCIssue() (uint64, bool) {
	return w.mcIssue, w.mcIssueSet
}

// Event is the common interface implemented by every variant in the closed
// taxonomy (spec data model §3).
type Event interface {
	ID() ID
	Timestamp() uint64
	SetTimestamp(cycle uint64)
	Waypoints() *Waypoints
}

type eventBase struct {
	id        ID
	timestamp uint64
	waypoints Waypoints
}

func newEventBase(timestamp uint64) eventBase {
	return eventBase{id: NewID(), timestamp: timestamp}
}

func (e *eventBase) ID() ID                { return e.id }
func (e *eventBase) Timestamp() uint64     { return e.timestamp }
func (e *eventBase) SetTimestamp(t uint64) { e.timestamp = t }
func (e *eventBase) Waypoints() *Waypoints { return &e.waypoints }

// CoreEvent extends Event with the originating program counter, core and
// source tile.
type CoreEvent interface {
	Event
	PC() uint32
	CoreID() int
	SourceTile() int
	// SetSourceTile reassigns the originating tile. Used when a cache
	// bank evicts a line: the writeback it issues originates from the
	// bank's tile, not the core that first touched the line.
	SetSourceTile(tile int)
}

type coreEventBase struct {
	eventBase
	pc         uint32
	coreID     int
	sourceTile int
}

func newCoreEventBase(timestamp uint64, pc uint32, coreID, sourceTile int) coreEventBase {
	return coreEventBase{
		eventBase:  newEventBase(timestamp),
		pc:         pc,
		coreID:     coreID,
		sourceTile: sourceTile,
	}
}

func (e *coreEventBase) PC() uint32      { return e.pc }
func (e *coreEventBase) CoreID() int     { return e.coreID }
func (e *coreEventBase) SourceTile() int { return e.sourceTile }

func (e *coreEventBase) SetSourceTile(tile int) { e.sourceTile = tile }

// RegKind tags the kind of register a RegisterEvent targets.
type RegKind int

// Register kinds.
const (
	RegInteger RegKind = iota
	RegFloat
	RegVector
	RegDontCare
)

func (k RegKind) String() string {
	switch k {
	case RegInteger:
		return "integer"
	case RegFloat:
		return "float"
	case RegVector:
		return "vector"
	default:
		return "dont-care"
	}
}

// RegisterEvent extends CoreEvent with destination register identity and the
// monotonic serviced flag.
type RegisterEvent interface {
	CoreEvent
	DestReg() int
	DestRegKind() RegKind
	Serviced() bool
	// SetServiced performs the false->true transition and reports whether
	// this call is the one that made it (false if already serviced).
	SetServiced() bool
}

type registerEventBase struct {
	coreEventBase
	destReg  int
	destKind RegKind
	serviced bool
}

func newRegisterEventBase(timestamp uint64, pc uint32, coreID, sourceTile, destReg int, destKind RegKind) registerEventBase {
	return registerEventBase{
		coreEventBase: newCoreEventBase(timestamp, pc, coreID, sourceTile),
		destReg:       destReg,
		destKind:      destKind,
	}
}

func (e *registerEventBase) DestReg() int         { return e.destReg }
func (e *registerEventBase) DestRegKind() RegKind { return e.destKind }
func (e *registerEventBase) Serviced() bool       { return e.serviced }

func (e *registerEventBase) SetServiced() bool {
	if e.serviced {
		return false
	}
	e.serviced = true
	return true
}
