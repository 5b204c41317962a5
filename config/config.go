// Package config assembles a tiled memory-hierarchy architecture out of the
// tile, noc, mcpu, memctrl and eventmanager packages, addressed through a
// dotted-path parameter tree (paramtree) the way the original simulator's
// PARAMETER(...) declarations are addressed (spec.md §6).
package config

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/coyote-go/config/paramtree"
	"github.com/sarchlab/coyote-go/eventmanager"
	"github.com/sarchlab/coyote-go/frontend"
	"github.com/sarchlab/coyote-go/mcpu"
	"github.com/sarchlab/coyote-go/memctrl"
	"github.com/sarchlab/coyote-go/noc"
	"github.com/sarchlab/coyote-go/orchestrator"
	"github.com/sarchlab/coyote-go/tile"
)

// Architecture selection names, addressed by the "architecture" parameter
// path (spec.md §6): the full tiled manycore, or one of the two narrower
// harnesses used to exercise the L2 and memory-controller timing models in
// isolation.
const (
	ArchitectureTiled               = "tiled"
	ArchitectureL2UnitTest           = "l2_unit_test"
	ArchitectureMemoryControllerTest = "memory_controller_unit_test"
)

// NoCParams configures the class table and back end the architecture wires
// its shared NoC with.
type NoCParams struct {
	Networks          []string
	ArbiterQueueDepth int
	Backend           string // "functional" or "simple_mesh"
	DefaultDelay      uint64
	InjectionDelay    uint64
	LinkTraversal     uint64
	PerHopDelay       uint64
	// Coords gives each tile and memory-CPU's PE index a mesh coordinate,
	// required only when Backend is "simple_mesh".
	Coords map[int]noc.Coord
}

// MemoryParams configures the per-memory-tile controller and memory-CPU
// wrapper.
type MemoryParams struct {
	CapacityBytes      uint64
	LatencyCycles      int
	LineSize           uint64
	Latency            uint64
	MaxScratchpadBytes uint64
	Enabled            bool
}

// L3Params configures the optional last-level cache tier sitting between a
// tile's L2 banks and its memory controller (SPEC_FULL.md §4's
// architecture.l3_enabled supplement).
type L3Params struct {
	Enabled     bool
	LineSize    uint64
	SizeKB      uint64
	Assoc       uint64
	HitLatency  uint64
	MissLatency uint64
	MaxMSHRs    int
}

// Params is the complete dotted-path-addressable configuration for an
// Architecture (spec.md §6). A zero Params is invalid; start from
// DefaultParams and override through paramtree.Set or the Builder's WithXxx
// methods.
type Params struct {
	Architecture string

	NumTiles           int
	CoresPerTile       int
	BanksPerTile       int
	ThreadsPerCore     int
	ThreadSwitchCycles uint64
	MaxInFlightMisses  int
	L1Writeback        bool

	LineSize          uint64
	L2SizeKB          uint64
	Assoc             uint64
	NumVRegsPerCore   uint64
	MCShift           uint64
	MCMask            uint64
	CacheDataMapping  string
	ScratchpadMapping string

	Freq sim.Freq

	NoC    NoCParams
	Memory MemoryParams
	L3     L3Params
}

// DefaultParams returns a small tiled mesh with set-interleaved L2 data and
// core-to-bank scratchpad mapping, scaled down for fast iteration the way
// the teacher's own samples default to a small mesh.
func DefaultParams() Params {
	return Params{
		Architecture: ArchitectureTiled,

		NumTiles:           4,
		CoresPerTile:       4,
		BanksPerTile:       4,
		ThreadsPerCore:     2,
		ThreadSwitchCycles: 8,
		MaxInFlightMisses:  16,
		L1Writeback:        true,

		LineSize:          64,
		L2SizeKB:          256,
		Assoc:             8,
		NumVRegsPerCore:   32,
		MCShift:           6,
		MCMask:            0x3,
		CacheDataMapping:  "set_interleaving",
		ScratchpadMapping: "core_to_bank",

		Freq: 1 * sim.GHz,

		NoC: NoCParams{
			Networks:          []string{"request", "response"},
			ArbiterQueueDepth: 8,
			Backend:           "functional",
			DefaultDelay:      4,
			InjectionDelay:    1,
			LinkTraversal:     1,
			PerHopDelay:       1,
		},

		Memory: MemoryParams{
			CapacityBytes:      4 * 1024 * 1024 * 1024,
			LatencyCycles:      5,
			LineSize:           64,
			Latency:            1,
			MaxScratchpadBytes: 16 * 1024,
			Enabled:            true,
		},

		L3: L3Params{
			Enabled:     false,
			LineSize:    128,
			SizeKB:      2048,
			Assoc:       8,
			HitLatency:  10,
			MissLatency: 10,
			MaxMSHRs:    8,
		},
	}
}

// Tree returns a paramtree rooted at p, letting a caller resolve or override
// any field by its dotted path (e.g. "noc.backend", "memory.latency_cycles").
func (p *Params) Tree() paramtree.Tree { return paramtree.New(p) }

// Builder assembles an Architecture from a Params value through the
// teacher's value-receiver WithXxx chain.
type Builder struct {
	params Params
}

// NewBuilder starts a Builder from DefaultParams.
func NewBuilder() Builder { return Builder{params: DefaultParams()} }

// WithParams replaces the builder's parameters wholesale.
func (b Builder) WithParams(p Params) Builder { b.params = p; return b }

// WithArchitecture selects which assembly Build produces.
func (b Builder) WithArchitecture(arch string) Builder { b.params.Architecture = arch; return b }

// WithNumTiles sets the tile count.
func (b Builder) WithNumTiles(n int) Builder { b.params.NumTiles = n; return b }

// WithCoresPerTile sets the per-tile core count.
func (b Builder) WithCoresPerTile(n int) Builder { b.params.CoresPerTile = n; return b }

// Architecture bundles every wired component of an assembled simulator: the
// per-tile memory hierarchy, the shared NoC, the per-tile memory-CPU
// wrappers and memory controllers behind them, and the event manager that
// routes between them and the orchestrator.
type Architecture struct {
	Params Params

	Tiles    []*tile.Tile
	MCPUs    map[int]*mcpu.Wrapper
	MemCtrls map[int]*memctrl.Controller
	NoC      *noc.NoC
	Manager  *eventmanager.Manager

	geometry          tile.Geometry
	cacheMapping      tile.CacheDataMappingPolicy
	scratchpadMapping tile.ScratchpadMappingPolicy
}

// nocDestKind classifies every message type as tile- or memory-CPU-bound,
// the closed taxonomy spec.md §4.4 assigns to the shared NoC.
func nocDestKind(mt noc.MessageType) noc.PEKind {
	switch mt {
	case noc.MemoryRequestLoad, noc.MemoryRequestStore, noc.MemoryRequestWriteback, noc.ScratchpadAck:
		return noc.DestMemoryCPU
	default:
		return noc.DestTile
	}
}

// defaultClassAssignments puts request traffic (remote L2 requests, memory
// requests) on network 0 and response traffic (acks, memory responses,
// scratchpad replies) on network 1, mirroring the request/response network
// split named in spec.md §4.4.
func defaultClassAssignments() map[noc.MessageType][2]int {
	return map[noc.MessageType][2]int{
		noc.RemoteL2Request:        {0, 0},
		noc.MemoryRequestLoad:      {0, 0},
		noc.MemoryRequestStore:     {0, 0},
		noc.MemoryRequestWriteback: {0, 0},
		noc.RemoteL2Ack:            {1, 0},
		noc.MemoryResponse:         {1, 0},
		noc.ScratchpadAck:          {1, 0},
		noc.ScratchpadDataReply:    {1, 0},
	}
}

func defaultHeaderSizes(lineSize uint64) map[noc.MessageType]uint32 {
	return map[noc.MessageType]uint32{
		noc.RemoteL2Request:        8,
		noc.RemoteL2Ack:            8,
		noc.MemoryRequestLoad:      8,
		noc.MemoryRequestStore:     8,
		noc.MemoryRequestWriteback: 8,
		noc.MemoryResponse:         8,
		noc.ScratchpadAck:          8,
		noc.ScratchpadDataReply:    uint32(8 + lineSize),
	}
}

func (b Builder) buildBackend() noc.Backend {
	p := b.params.NoC
	switch p.Backend {
	case "functional", "":
		return noc.NewFunctionalBackend(nil, p.DefaultDelay)
	case "simple_mesh":
		if p.Coords == nil {
			panic("config: noc.backend = simple_mesh requires noc.coords for every tile and memory-CPU")
		}
		return noc.NewSimpleMeshBackend(p.InjectionDelay, p.LinkTraversal, p.PerHopDelay, p.Coords)
	default:
		panic(fmt.Sprintf("config: unknown noc backend %q", p.Backend))
	}
}

// Build assembles an Architecture for the selected p.Architecture value.
// Configuration inconsistencies (an unrecognized mapping policy, an
// unrecognized architecture name) panic, matching the "fatal at
// construction" rule spec.md §7 applies to every other component.
func (b Builder) Build() *Architecture {
	p := b.params

	switch p.Architecture {
	case ArchitectureTiled, "":
		return b.buildTiled(p)
	case ArchitectureL2UnitTest:
		single := p
		single.Architecture = ArchitectureL2UnitTest
		single.NumTiles = 1
		return b.buildTiled(single)
	case ArchitectureMemoryControllerTest:
		single := p
		single.Architecture = ArchitectureMemoryControllerTest
		single.NumTiles = 1
		single.CoresPerTile = 1
		single.BanksPerTile = 1
		single.ThreadsPerCore = 1
		return b.buildTiled(single)
	default:
		panic(fmt.Sprintf("config: unknown architecture %q", p.Architecture))
	}
}

func (b Builder) buildTiled(p Params) *Architecture {
	cachePolicy, err := tile.ParseCacheDataMappingPolicy(p.CacheDataMapping)
	if err != nil {
		panic(err)
	}
	scratchpadPolicy, err := tile.ParseScratchpadMappingPolicy(p.ScratchpadMapping)
	if err != nil {
		panic(err)
	}

	geometry := tile.NewGeometry(
		p.LineSize, p.L2SizeKB, p.Assoc, uint64(p.BanksPerTile),
		uint64(p.NumTiles), uint64(p.NumTiles*p.CoresPerTile), p.NumVRegsPerCore,
		p.MCShift, p.MCMask,
	)

	classTable := noc.NewClassTable(p.NoC.Networks, defaultClassAssignments(), defaultHeaderSizes(p.LineSize))
	backend := b.buildBackend()
	n := noc.New(classTable, backend, nil, nocDestKind)

	manager := eventmanager.New(eventmanager.Topology{
		CoresPerTile: p.CoresPerTile,
		CoreToMCPU:   func(core int) int { return core / p.CoresPerTile },
	})

	a := &Architecture{
		Params:            p,
		Tiles:             make([]*tile.Tile, p.NumTiles),
		MCPUs:             make(map[int]*mcpu.Wrapper),
		MemCtrls:          make(map[int]*memctrl.Controller),
		NoC:               n,
		Manager:           manager,
		geometry:          geometry,
		cacheMapping:      cachePolicy,
		scratchpadMapping: scratchpadPolicy,
	}

	for id := 0; id < p.NumTiles; id++ {
		tb := tile.NewBuilder().
			WithID(id).
			WithTopology(p.CoresPerTile, p.BanksPerTile).
			WithNetworks(len(p.NoC.Networks)).
			WithArbiterQueueDepth(p.NoC.ArbiterQueueDepth).
			WithGeometry(geometry).
			WithPolicies(cachePolicy, scratchpadPolicy).
			WithNoCInjector(n).
			WithSink(manager)

		if p.L3.Enabled {
			tb = tb.WithL3(p.L3.LineSize, p.L3.SizeKB, p.L3.Assoc).
				WithL3Latencies(p.L3.HitLatency, p.L3.MissLatency, p.L3.MaxMSHRs)
		}

		t := tb.Build()
		a.Tiles[id] = t
		manager.RegisterTile(id, t)

		if !p.Memory.Enabled {
			continue
		}

		mc := memctrl.NewBuilder().
			WithCapacity(p.Memory.CapacityBytes).
			WithLatency(p.Memory.LatencyCycles).
			WithFreq(p.Freq).
			Build(fmt.Sprintf("MemCtrl%d", id), nil)

		wrapper := mcpu.NewBuilder().
			WithTileID(id).
			WithLineSize(p.Memory.LineSize).
			WithLatency(p.Memory.Latency).
			WithMaxScratchpadBytes(p.Memory.MaxScratchpadBytes).
			WithEnabled(p.Memory.Enabled).
			WithNoCInjector(n).
			WithMemoryPort(mc).
			Build()
		mc.SetSink(wrapper)

		a.MemCtrls[id] = mc
		a.MCPUs[id] = wrapper
		manager.RegisterMCPU(id, wrapper)
	}

	return a
}

// NewOrchestrator builds the orchestrator driving fe over this
// architecture's cores, submitting accepted requests through the
// architecture's event manager and recording trace events through logger
// (nil disables tracing).
func (a *Architecture) NewOrchestrator(fe frontend.FrontEnd, logger orchestrator.Logger) *orchestrator.Orchestrator {
	return orchestrator.New(
		a.Params.NumTiles*a.Params.CoresPerTile,
		a.Params.ThreadsPerCore,
		a.Params.ThreadSwitchCycles,
		a.Params.MaxInFlightMisses,
		a.Params.L1Writeback,
		fe,
		a.Manager,
		a.Manager,
		logger,
	)
}

// NewTraceDrivenOrchestrator builds a trace-replay orchestrator over reader
// instead of an execution-driven front end, resolving a trace record's core
// column to its originating tile the same way the event manager's own
// topology does.
func (a *Architecture) NewTraceDrivenOrchestrator(reader orchestrator.TraceReader, logger orchestrator.Logger) *orchestrator.TraceDrivenOrchestrator {
	coresPerTile := a.Params.CoresPerTile
	return orchestrator.NewTraceDrivenOrchestrator(reader, a.Manager, logger, func(core int) int {
		return core / coresPerTile
	})
}

// Step advances every wired component by one cycle: ticks each tile and
// memory-CPU wrapper, advances the NoC's own clock, drains one eligible
// packet per network/destination, and routes each delivered message to the
// tile or memory-CPU wrapper it targets. Nothing here owns the clock: now is
// always supplied by the caller's own loop (spec.md §4.6).
func (a *Architecture) Step(now uint64) {
	for _, t := range a.Tiles {
		t.Tick(now)
	}
	for _, w := range a.MCPUs {
		w.Tick(now)
	}

	a.NoC.Tick(now)
	for _, msg := range a.NoC.DeliverOnePacketToDestination(now) {
		switch msg.DestKind {
		case noc.DestMemoryCPU:
			if w, ok := a.MCPUs[msg.Destination]; ok {
				w.HandleNoCMessage(msg, now)
			}
		default:
			if msg.Destination >= 0 && msg.Destination < len(a.Tiles) {
				a.Tiles[msg.Destination].HandleRemoteMessage(msg, now)
			}
		}
	}

	a.Manager.Tick(now)
}

// HasPendingWork reports whether any tile, memory-CPU wrapper, the NoC, or
// the event manager's latency queue still has unfinished work.
func (a *Architecture) HasPendingWork() bool {
	for _, t := range a.Tiles {
		if t.HasPendingWork() {
			return true
		}
	}
	for _, w := range a.MCPUs {
		if w.HasPendingWork() {
			return true
		}
	}
	if a.NoC.HasPacketsInFlight() {
		return true
	}
	return a.Manager.HasPendingWork()
}
