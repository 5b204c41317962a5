package noc

// FunctionalBackend assigns a constant per-message-type delay, ignoring
// topology entirely. This is the cheapest back end, suitable for quick
// functional validation of the memory hierarchy without modelling
// contention.
type FunctionalBackend struct {
	delays map[MessageType]uint64
	defaultDelay uint64
}

// NewFunctionalBackend builds a FunctionalBackend. Message types absent from
// delays fall back to defaultDelay.
func NewFunctionalBackend(delays map[MessageType]uint64, defaultDelay uint64) *FunctionalBackend {
	return &FunctionalBackend{delays: delays, defaultDelay: defaultDelay}
}

// PacketLatency returns the configured constant delay for msg's type.
func (b *FunctionalBackend) PacketLatency(msg *Message, now uint64) uint64 {
	if d, ok := b.delays[msg.Type]; ok {
		return d
	}
	return b.defaultDelay
}

// Tick is a no-op: the functional back end has no internal clock.
func (b *FunctionalBackend) Tick(now uint64) {}

// Coord is a 2D mesh coordinate.
type Coord struct{ X, Y int }

// manhattan returns the Manhattan distance between two coordinates.
func (c Coord) manhattan(o Coord) int {
	dx := c.X - o.X
	if dx < 0 {
		dx = -dx
	}
	dy := c.Y - o.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// SimpleMeshBackend derives latency from hop count on a configurable mesh,
// with memory CPUs placed at designated PE indices.
type SimpleMeshBackend struct {
	Injection        uint64
	LinkTraversal    uint64
	PerHopLatency    uint64
	Coords           map[int]Coord // PE index (tile id or memory-cpu id, disjoint) -> coordinate
}

// NewSimpleMeshBackend builds a SimpleMeshBackend from an explicit
// PE-index -> coordinate map, following the "configurable MCPU placement"
// requirement in spec.md §4.4.
func NewSimpleMeshBackend(injection, linkTraversal, perHop uint64, coords map[int]Coord) *SimpleMeshBackend {
	return &SimpleMeshBackend{
		Injection:     injection,
		LinkTraversal: linkTraversal,
		PerHopLatency: perHop,
		Coords:        coords,
	}
}

// PacketLatency returns injection + link_traversal + hops*per_hop_latency.
func (b *SimpleMeshBackend) PacketLatency(msg *Message, now uint64) uint64 {
	src, srcOK := b.Coords[msg.Source]
	dst, dstOK := b.Coords[msg.Destination]
	if !srcOK || !dstOK {
		panic("noc: simple mesh backend missing coordinate for source or destination PE")
	}
	hops := uint64(src.manhattan(dst))
	return b.Injection + b.LinkTraversal + hops*b.PerHopLatency
}

// Tick is a no-op: the simple mesh back end is a pure latency function.
func (b *SimpleMeshBackend) Tick(now uint64) {}

// ExternalEngine is the contract a third-party detailed network simulator
// must satisfy. Its internal scheduling is out of scope (spec.md §1); only
// this narrow injection/retirement contract is modelled here.
type ExternalEngine interface {
	// Inject hands a packet to the external engine, returning an opaque
	// handle used to query retirement.
	Inject(msg *Message, now uint64) (handle int)
	// Retired reports the cycle at which the external engine will retire
	// (deliver) the packet for handle, and whether that cycle is known yet.
	Retired(handle int) (cycle uint64, known bool)
	// Advance runs the external engine for one cycle.
	Advance(now uint64)
}

// DetailedBackend delegates packet lifetime to an external network
// simulator, enqueuing on admission and ejecting when the engine signals
// retirement.
type DetailedBackend struct {
	engine  ExternalEngine
	handles map[*Message]int
}

// NewDetailedBackend builds a DetailedBackend around an external engine.
func NewDetailedBackend(engine ExternalEngine) *DetailedBackend {
	return &DetailedBackend{engine: engine, handles: make(map[*Message]int)}
}

// UnknownLatency is the sentinel PacketLatency returns when the back end
// cannot yet report a delivery cycle for the packet. NoC schedules such a
// packet far in the future so DeliverOnePacketToDestination never
// prematurely delivers it, then calls Refresh (for back ends implementing
// LatencyRefresher) every Tick until a real latency is known.
const UnknownLatency = ^uint64(0) / 2

// PacketLatency injects msg into the external engine. If the engine already
// knows msg's retirement cycle, that latency is returned directly; otherwise
// UnknownLatency is returned and the packet's eligibility is later revised
// by Refresh.
func (b *DetailedBackend) PacketLatency(msg *Message, now uint64) uint64 {
	handle := b.engine.Inject(msg, now)
	b.handles[msg] = handle
	if cycle, known := b.engine.Retired(handle); known {
		delete(b.handles, msg)
		return cycle - now
	}
	return UnknownLatency
}

// Tick advances the external engine by one cycle.
func (b *DetailedBackend) Tick(now uint64) {
	b.engine.Advance(now)
}

// Refresh re-queries the external engine for msg's retirement cycle, once
// its handle is still outstanding (PacketLatency returned UnknownLatency for
// it). It satisfies LatencyRefresher.
func (b *DetailedBackend) Refresh(msg *Message, now uint64) (latency uint64, known bool) {
	handle, ok := b.handles[msg]
	if !ok {
		return 0, false
	}
	cycle, known := b.engine.Retired(handle)
	if !known {
		return 0, false
	}
	delete(b.handles, msg)
	if cycle < now {
		cycle = now
	}
	return cycle - now, true
}
