// Package eventmanager routes accepted events to the component that owns
// them (a tile's access director or a memory-CPU wrapper), and collects
// acknowledgements for the orchestrator to drain (spec.md §4.7).
package eventmanager

import (
	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/noc"
)

// TileSink is the narrow view of a tile the manager needs: accepting a
// core-issued cache or scratchpad request and reporting arbiter admission.
type TileSink interface {
	PutAccess(r event.RegisterEvent, now uint64)
	HasArbiterQueueFreeSlot(localCore int) bool
}

// MCPUSink is the narrow view of a memory-CPU wrapper the manager needs.
type MCPUSink interface {
	HandleNoCMessage(msg *noc.Message, now uint64)
	HasPendingWork() bool
}

// Topology maps a global core id to the tile it lives on and the
// memory-CPU tile that services its vector memory instructions. Cores are
// laid out contiguously per tile, matching the convention already used for
// local-index derivation throughout the tile package (CoreID % CoresPerTile).
type Topology struct {
	CoresPerTile int
	CoreToMCPU   func(core int) int
}

func (t Topology) tileOf(core int) int  { return core / t.CoresPerTile }
func (t Topology) localOf(core int) int { return core % t.CoresPerTile }

// Manager is the thin router between the orchestrator and the memory
// hierarchy: it forwards every accepted event to its owning collaborator
// and buffers acknowledgements until the orchestrator drains them.
type Manager struct {
	topo  Topology
	tiles map[int]TileSink
	mcpus map[int]MCPUSink

	pendingLatency []*event.InsnLatencyEvent
	serviced       []event.Event
}

// New builds a Manager for the given topology.
func New(topo Topology) *Manager {
	return &Manager{
		topo:  topo,
		tiles: make(map[int]TileSink),
		mcpus: make(map[int]MCPUSink),
	}
}

// RegisterTile attaches the sink for tile id.
func (m *Manager) RegisterTile(id int, sink TileSink) { m.tiles[id] = sink }

// RegisterMCPU attaches the memory-CPU wrapper resident at tile id.
func (m *Manager) RegisterMCPU(id int, sink MCPUSink) { m.mcpus[id] = sink }

// Submit implements orchestrator.Sink: it dispatches ev by its concrete
// type to the tile or memory-CPU wrapper that owns it. Vector memory
// instructions (MCPUInstruction, MCPUSetVVL) are delivered straight to
// their core's assigned memory-CPU wrapper rather than traveling over the
// modeled NoC: the closed message taxonomy the NoC carries is scoped to
// wire traffic between tiles and memory controllers (spec.md §4.4), and the
// original simulator dispatches these the same way, as a direct call from
// the core's execution step into the memory-CPU object.
func (m *Manager) Submit(ev event.Event, now uint64) {
	switch e := ev.(type) {
	case *event.CacheRequest:
		m.tiles[e.SourceTile()].PutAccess(e, now)
	case *event.ScratchpadRequest:
		m.tiles[e.SourceTile()].PutAccess(e, now)
	case *event.MCPUInstruction:
		m.deliverToMCPU(e.CoreID(), e, now)
	case *event.MCPUSetVVL:
		m.deliverToMCPU(e.CoreID(), e, now)
	case *event.InsnLatencyEvent:
		m.pendingLatency = append(m.pendingLatency, e)
	}
}

func (m *Manager) deliverToMCPU(core int, payload interface{}, now uint64) {
	target := m.topo.CoreToMCPU(core)
	m.mcpus[target].HandleNoCMessage(&noc.Message{Payload: payload}, now)
}

// HasArbiterQueueFreeSlot implements orchestrator.ArbiterQuery.
func (m *Manager) HasArbiterQueueFreeSlot(core int) bool {
	tile := m.tiles[m.topo.tileOf(core)]
	if tile == nil {
		return true
	}
	return tile.HasArbiterQueueFreeSlot(m.topo.localOf(core))
}

// NotifyAck implements tile.RequestSink: a cache request has completed its
// round trip back to its originating core.
func (m *Manager) NotifyAck(req *event.CacheRequest) {
	m.serviced = append(m.serviced, req)
}

// NotifyScratchpadAck implements tile.RequestSink for scratchpad commands.
func (m *Manager) NotifyScratchpadAck(req *event.ScratchpadRequest) {
	m.serviced = append(m.serviced, req)
}

// NotifyMCPUAck records a vector memory instruction or VVL grant handed
// back to a core by a memory-CPU wrapper.
func (m *Manager) NotifyMCPUAck(ev event.Event) {
	m.serviced = append(m.serviced, ev)
}

// Tick matures any InsnLatencyEvent whose availability cycle has arrived.
func (m *Manager) Tick(now uint64) {
	remaining := m.pendingLatency[:0]
	for _, le := range m.pendingLatency {
		if le.AvailCycle > now {
			remaining = append(remaining, le)
			continue
		}
		le.SetServiced()
		m.serviced = append(m.serviced, le)
	}
	m.pendingLatency = remaining
}

// DrainServiced returns every acknowledgement collected since the last
// call, clearing the internal buffer.
func (m *Manager) DrainServiced() []event.Event {
	out := m.serviced
	m.serviced = nil
	return out
}

// HasPendingWork reports whether any registered memory-CPU wrapper or the
// latency queue still has unfinished work, used to decide whether a
// clock fast-forward is safe.
func (m *Manager) HasPendingWork() bool {
	if len(m.pendingLatency) > 0 {
		return true
	}
	for _, mcpu := range m.mcpus {
		if mcpu.HasPendingWork() {
			return true
		}
	}
	return false
}
