// Package mcpu implements the memory-CPU wrapper resident at each memory
// tile: it fans a vector memory instruction out into per-line cache
// requests, reassembles the replies into scratchpad writes, and passes
// scalar traffic straight through when addressed to its memory controller
// (spec.md §4.5). Grounded on SpikeModel's MemoryCPUWrapper, the closest
// available implementation of this component in the original sources.
package mcpu

import (
	"github.com/rs/xid"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/noc"
)

// defaultMaxScratchpadBytes bounds how much of a destination register's
// scratchpad space a single ALLOCATE will reserve, matching the original's
// "16KB per vector register" ceiling.
const defaultMaxScratchpadBytes = 16 * 1024

// NoCInjector is the outbound collaborator a wrapper hands its NoC-bound
// traffic to.
type NoCInjector interface {
	HandleMessageFromMemoryCPU(msg *noc.Message, now uint64)
}

// MemoryPort is the collaborator a wrapper hands cache-line requests to; the
// memory controller calls back into ReceiveFromMC once a reply is ready.
type MemoryPort interface {
	Submit(req *event.CacheRequest, now uint64)
}

// transaction tracks the bookkeeping for one in-flight vector memory
// instruction: how many cache-line replies and scratchpad replies are still
// owed before the instruction is done.
type transaction struct {
	instr                 *event.MCPUInstruction
	cacheRequestsToGo     int
	scratchpadRepliesToGo int
	elementsPerResponse   int
}

type pendingIncoming struct {
	readyAt uint64
	payload interface{} // *event.MCPUInstruction or *event.ScratchpadRequest
}

type pendingMemReq struct {
	readyAt uint64
	req     *event.CacheRequest
}

type pendingOutgoing struct {
	readyAt uint64
	msg     *noc.Message
}

// Wrapper is the memory-CPU component. A disabled Wrapper degrades to a
// passthrough: every cache request it sees is forwarded straight to the
// memory controller and every reply straight back out to the NoC, with no
// vector fan-out at all.
type Wrapper struct {
	TileID             int
	Enabled            bool
	LineSize           uint64
	Latency            uint64
	MaxScratchpadBytes uint64

	injector NoCInjector
	mc       MemoryPort

	vvl           uint32
	allocatedRegs uint64 // bitmask of destination registers already ALLOCATEd

	transactions map[xid.ID]*transaction

	pendingIncoming []pendingIncoming
	pendingMemReq   []pendingMemReq
	pendingOutgoing []pendingOutgoing
}

// NewWrapper builds an enabled Wrapper with conservative defaults; use the
// Builder to customize before wiring it into a simulation.
func NewWrapper(tileID int, injector NoCInjector, mc MemoryPort) *Wrapper {
	return &Wrapper{
		TileID:             tileID,
		Enabled:            true,
		LineSize:           64,
		Latency:            1,
		MaxScratchpadBytes: defaultMaxScratchpadBytes,
		injector:           injector,
		mc:                 mc,
		transactions:       make(map[xid.ID]*transaction),
	}
}

// VVL returns the most recently granted vector length.
func (w *Wrapper) VVL() uint32 { return w.vvl }

// AllocatedRegs returns the bitmask of destination registers with an
// outstanding scratchpad allocation.
func (w *Wrapper) AllocatedRegs() uint64 { return w.allocatedRegs }

// HasPendingWork reports whether any staged transaction still needs a Tick
// to resolve, used by the orchestrator's fast-forward decision.
func (w *Wrapper) HasPendingWork() bool {
	return len(w.pendingIncoming) > 0 || len(w.pendingMemReq) > 0 || len(w.pendingOutgoing) > 0
}

// HandleNoCMessage dispatches an arriving message by its payload's concrete
// type (mirrors AccessDirector's own dispatch-by-payload idiom).
func (w *Wrapper) HandleNoCMessage(msg *noc.Message, now uint64) {
	switch payload := msg.Payload.(type) {
	case *event.CacheRequest:
		w.handleBypassCacheRequest(payload, now)
	case *event.MCPUSetVVL:
		w.handleSetVVL(payload, now)
	case *event.MCPUInstruction:
		w.pendingIncoming = append(w.pendingIncoming, pendingIncoming{readyAt: now + w.Latency, payload: payload})
	case *event.ScratchpadRequest:
		w.pendingIncoming = append(w.pendingIncoming, pendingIncoming{readyAt: now + w.Latency, payload: payload})
	default:
		panic("mcpu: NoC message carries an unrecognized payload type")
	}
}

// handleBypassCacheRequest is the scalar-access passthrough: a CacheRequest
// that bypassed the L2 is carrying no vector transaction of its own.
func (w *Wrapper) handleBypassCacheRequest(r *event.CacheRequest, now uint64) {
	r.Waypoints().SetReachMC(now)
	if !w.Enabled {
		w.mc.Submit(r, now)
		return
	}
	w.pendingMemReq = append(w.pendingMemReq, pendingMemReq{readyAt: now + w.Latency, req: r})
}

// handleSetVVL grants a vector length capped by how many elements of this
// width fit in the per-register scratchpad reservation, and replies
// immediately (matching the original, which acks within the same handler).
func (w *Wrapper) handleSetVVL(r *event.MCPUSetVVL, now uint64) {
	width := uint64(widthBytes(r.ElementWidth))
	maxElements := w.MaxScratchpadBytes / width
	granted := uint64(r.AVL)
	if granted > maxElements {
		granted = maxElements
	}

	w.vvl = uint32(granted)
	r.VVL = w.vvl
	r.SetServiced()

	w.pendingOutgoing = append(w.pendingOutgoing, pendingOutgoing{
		readyAt: now + w.Latency,
		msg: &noc.Message{
			Type:        noc.MemoryResponse,
			Source:      w.TileID,
			Destination: r.SourceTile(),
			PayloadSize: uint32(w.LineSize),
			Payload:     r,
		},
	})
}

// ReceiveFromMC is the memory controller's callback for a completed cache
// request, whether issued by this wrapper's own fan-out or bypassing it.
func (w *Wrapper) ReceiveFromMC(r *event.CacheRequest, now uint64) {
	r.SetServiced()

	if !w.Enabled {
		// A disabled wrapper is a bare passthrough: no scheduling latency,
		// matching the original's direct port send.
		w.injector.HandleMessageFromMemoryCPU(w.memoryAckMessage(r), now)
		return
	}

	if r.MCPUTransaction.IsNil() {
		w.sendMemoryAck(r, now)
		return
	}

	tx, ok := w.transactions[r.MCPUTransaction]
	if !ok {
		panic("mcpu: cache reply references an unknown transaction")
	}

	fillSlot := tx.cacheRequestsToGo % tx.elementsPerResponse
	tx.cacheRequestsToGo--

	switch r.Type {
	case event.Load, event.Fetch:
		if fillSlot == 0 {
			tx.scratchpadRepliesToGo--
			w.replyWithScratchpadWrite(r, tx, now)
		}
	case event.Store, event.Writeback:
		// Stores graduate silently; the vector core gets no per-line ack.
	}

	if tx.cacheRequestsToGo == 0 {
		delete(w.transactions, r.MCPUTransaction)
	}
}

// replyWithScratchpadWrite issues the WRITE that lands one reassembled line
// into the destination register's scratchpad space. Its SourceTile is the
// originating core's tile, not the memory-CPU's own tile: the completion
// ack for a WRITE must route back to the core that owns the register,
// unlike a READ (the store-operand pull), whose ack belongs to the
// memory-CPU itself.
func (w *Wrapper) replyWithScratchpadWrite(r *event.CacheRequest, tx *transaction, now uint64) {
	sp := event.NewScratchpadRequest(r.Timestamp(), r.PC(), r.CoreID(), r.SourceTile(), r.Address, uint32(w.LineSize), event.Write, w.TileID, r.DestReg())
	sp.MCPUTransaction = r.MCPUTransaction
	if tx.scratchpadRepliesToGo == 0 {
		sp.OperandReady = true
	}
	w.sendScratchpadCommand(sp, tx.instr.SourceTile(), now)
}

func (w *Wrapper) memoryAckMessage(r *event.CacheRequest) *noc.Message {
	return &noc.Message{
		Type:        noc.MemoryResponse,
		Source:      r.MemoryController,
		Destination: r.HomeTile,
		PayloadSize: uint32(w.LineSize),
		Payload:     r,
	}
}

func (w *Wrapper) sendMemoryAck(r *event.CacheRequest, now uint64) {
	w.pendingOutgoing = append(w.pendingOutgoing, pendingOutgoing{
		readyAt: now + w.Latency,
		msg:     w.memoryAckMessage(r),
	})
}

func (w *Wrapper) sendScratchpadCommand(sp *event.ScratchpadRequest, destinationTile int, now uint64) {
	w.pendingOutgoing = append(w.pendingOutgoing, pendingOutgoing{
		readyAt: now + w.Latency,
		msg: &noc.Message{
			Type:        noc.ScratchpadDataReply,
			Source:      w.TileID,
			Destination: destinationTile,
			PayloadSize: uint32(w.LineSize),
			Payload:     sp,
		},
	})
}

// Tick finalizes every staged item whose ready cycle has arrived.
func (w *Wrapper) Tick(now uint64) {
	remainingIncoming := w.pendingIncoming[:0]
	for _, p := range w.pendingIncoming {
		if p.readyAt > now {
			remainingIncoming = append(remainingIncoming, p)
			continue
		}
		w.processIncoming(p.payload, now)
	}
	w.pendingIncoming = remainingIncoming

	remainingMemReq := w.pendingMemReq[:0]
	for _, p := range w.pendingMemReq {
		if p.readyAt > now {
			remainingMemReq = append(remainingMemReq, p)
			continue
		}
		w.mc.Submit(p.req, now)
	}
	w.pendingMemReq = remainingMemReq

	remainingOutgoing := w.pendingOutgoing[:0]
	for _, p := range w.pendingOutgoing {
		if p.readyAt > now {
			remainingOutgoing = append(remainingOutgoing, p)
			continue
		}
		w.injector.HandleMessageFromMemoryCPU(p.msg, now)
	}
	w.pendingOutgoing = remainingOutgoing
}

func (w *Wrapper) processIncoming(payload interface{}, now uint64) {
	switch v := payload.(type) {
	case *event.MCPUInstruction:
		w.dispatchInstruction(v, now)
	case *event.ScratchpadRequest:
		w.continueFromScratchpadReply(v, now)
	default:
		panic("mcpu: incoming transaction carries an unrecognized payload type")
	}
}

// dispatchInstruction opens a transaction for instr and, for a load, fans
// out its memory requests immediately; a store instead requests its operand
// from the scratchpad first and fans out once that read completes.
func (w *Wrapper) dispatchInstruction(instr *event.MCPUInstruction, now uint64) {
	txID := xid.New()
	w.transactions[txID] = &transaction{instr: instr}

	if instr.Operation == event.MCPUStore {
		sp := event.NewScratchpadRequest(instr.Timestamp(), instr.PC(), instr.CoreID(), w.TileID, instr.BaseAddress, uint32(w.LineSize), event.Read, w.TileID, instr.DestReg())
		sp.MCPUTransaction = txID
		w.sendScratchpadCommand(sp, instr.SourceTile(), now)
		return
	}

	if w.allocatedRegs&(1<<uint(instr.DestReg())) == 0 {
		w.allocatedRegs |= 1 << uint(instr.DestReg())

		sp := event.NewScratchpadRequest(instr.Timestamp(), instr.PC(), instr.CoreID(), w.TileID, instr.BaseAddress, w.vvl*uint32(widthBytes(instr.ElementWidth)), event.Allocate, w.TileID, instr.DestReg())
		sp.MCPUTransaction = txID
		w.sendScratchpadCommand(sp, instr.SourceTile(), now)
	}

	w.computeMemRequestAddresses(instr, txID, now)
}

// continueFromScratchpadReply resumes a transaction once its scratchpad side
// reports progress. Only a READ ack (the store-operand pull completing)
// triggers further action; ALLOCATE/FREE/WRITE acks need none. The original
// re-dispatches address computation on a WRITE ack too, but that re-fans-out
// an already-completed load on every intermediate line — treated here as a
// defect rather than carried forward.
func (w *Wrapper) continueFromScratchpadReply(sp *event.ScratchpadRequest, now uint64) {
	tx, ok := w.transactions[sp.MCPUTransaction]
	if !ok {
		return
	}
	if sp.Command == event.Read {
		w.computeMemRequestAddresses(tx.instr, sp.MCPUTransaction, now)
	}
}

// computeMemRequestAddresses generates the per-line (unit-stride) or
// per-element (non-unit/ordered-index/unordered-index) cache requests for
// instr and records how many cache and scratchpad replies the transaction
// still owes.
func (w *Wrapper) computeMemRequestAddresses(instr *event.MCPUInstruction, txID xid.ID, now uint64) {
	tx, ok := w.transactions[txID]
	if !ok {
		return
	}
	width := widthBytes(instr.ElementWidth)

	switch instr.SubOperation {
	case event.Unit:
		elementsPerRequest := int(w.LineSize) / width
		if elementsPerRequest < 1 {
			elementsPerRequest = 1
		}
		remaining := int(w.vvl)
		address := instr.BaseAddress
		count := 0
		for remaining > 0 {
			w.issueMemRequest(address, instr, txID, now)
			remaining -= elementsPerRequest
			address += w.LineSize
			count++
		}
		tx.cacheRequestsToGo = count
		tx.scratchpadRepliesToGo = count
		tx.elementsPerResponse = 1

	case event.NonUnit, event.OrderedIndex, event.UnorderedIndex:
		for _, offset := range instr.IndexVector {
			w.issueMemRequest(instr.BaseAddress+offset, instr, txID, now)
		}
		elementsPerResponse := int(w.LineSize) / width
		if elementsPerResponse < 1 {
			elementsPerResponse = 1
		}
		tx.cacheRequestsToGo = len(instr.IndexVector)
		tx.scratchpadRepliesToGo = len(instr.IndexVector) / elementsPerResponse
		tx.elementsPerResponse = elementsPerResponse

	default:
		panic("mcpu: unknown vector memory addressing mode")
	}

	if tx.cacheRequestsToGo == 0 {
		delete(w.transactions, txID)
	}
}

func (w *Wrapper) issueMemRequest(address uint64, instr *event.MCPUInstruction, txID xid.ID, now uint64) {
	typ := event.Load
	if instr.Operation == event.MCPUStore {
		typ = event.Store
	}
	cr := event.NewCacheRequest(instr.Timestamp(), instr.PC(), instr.CoreID(), instr.SourceTile(), instr.DestReg(), instr.DestRegKind(), address, uint32(w.LineSize), typ)
	cr.MCPUTransaction = txID
	cr.Waypoints().SetReachMC(now)
	w.pendingMemReq = append(w.pendingMemReq, pendingMemReq{readyAt: now + w.Latency, req: cr})
}

func widthBytes(bits uint8) int {
	if bits == 0 {
		return 1
	}
	return int(bits) / 8
}
