package tile

import (
	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/noc"
)

const addressSize uint32 = 8 // bytes, matches the original fixed header size

// AccessDirector routes CacheRequest and ScratchpadRequest traffic to its
// home tile/bank, or back to the issuing core once serviced (spec.md §4.2).
// Unlike the original's virtual-dispatch-per-policy design, the two cache
// policies and two scratchpad policies are plain switches here — the same
// closed-dispatch idiom event.Handle uses.
type AccessDirector struct {
	tile             *Tile
	geometry         Geometry
	cachePolicy      CacheDataMappingPolicy
	scratchpadPolicy ScratchpadMappingPolicy

	pendingScratchpad map[*event.ScratchpadRequest]int
}

func newAccessDirector(t *Tile, geometry Geometry, cachePolicy CacheDataMappingPolicy, scratchpadPolicy ScratchpadMappingPolicy) *AccessDirector {
	return &AccessDirector{
		tile:              t,
		geometry:          geometry,
		cachePolicy:       cachePolicy,
		scratchpadPolicy:  scratchpadPolicy,
		pendingScratchpad: make(map[*event.ScratchpadRequest]int),
	}
}

// handle is the single entry point a tile and its banks call to forward a
// request through the director (AccessDirector::putAccess).
func (d *AccessDirector) handle(r event.RegisterEvent, now uint64) {
	switch req := r.(type) {
	case *event.CacheRequest:
		d.handleCacheRequest(req, now)
	case *event.ScratchpadRequest:
		d.handleScratchpadRequest(req, now)
	default:
		panic("tile: access director cannot route unrecognized request type")
	}
}

func (d *AccessDirector) handleNoCMessage(msg *noc.Message, now uint64) {
	switch payload := msg.Payload.(type) {
	case *event.CacheRequest:
		d.handleCacheRequest(payload, now)
	case *event.ScratchpadRequest:
		d.handleScratchpadRequest(payload, now)
	case *event.MCPUSetVVL:
		// Already at its destination tile; nothing left to route.
		d.tile.sink.NotifyMCPUAck(payload)
	default:
		panic("tile: NoC message carries an unrecognized payload type")
	}
}

func (d *AccessDirector) handleCacheRequest(r *event.CacheRequest, now uint64) {
	if r.Flags.MemoryAck && !r.Flags.BypassL2 {
		r.Flags.MemoryAck = false
		r.SetServiced()
		d.tile.issueBankAck(r, now)
		return
	}

	if !r.Serviced() {
		d.routeUnserviced(r, now)
		return
	}

	d.routeServicedAck(r, now)
}

func (d *AccessDirector) routeUnserviced(r *event.CacheRequest, now uint64) {
	var mc int
	if d.geometry.MCMask != 0 {
		mc = int((r.Address >> d.geometry.MCShift) & d.geometry.MCMask)
	}
	r.MemoryController = mc

	if r.Flags.BypassL2 {
		if d.tile.l3 != nil {
			d.tile.l3.Submit(r, now)
			return
		}
		d.routeToMemory(r, now)
		return
	}

	home := d.calculateHome(r)
	bank := d.calculateBank(r)
	r.HomeTile = home
	r.CacheBank = bank

	if home == d.tile.ID {
		if home == r.SourceTile() {
			d.tile.countLocalRequests++
		} else {
			d.tile.countRemoteRequests++
		}

		var lapse uint64
		if r.Timestamp()+1 > now {
			lapse = r.Timestamp() - now
		}
		if d.tile.logger != nil {
			d.tile.logger.LogLocalBankRequest(now+lapse, r.CoreID(), r.PC(), r.CacheBank, r.Address)
		}
		d.tile.issueLocalRequest(r, now, lapse)
		return
	}

	if d.tile.logger != nil {
		d.tile.logger.LogRemoteBankRequest(r.Timestamp(), r.CoreID(), r.PC(), r.HomeTile, r.Address)
	}
	msg := d.getRemoteL2RequestMessage(r)
	d.tile.issueRemoteRequest(msg, now)
}

func (d *AccessDirector) routeServicedAck(r *event.CacheRequest, now uint64) {
	if r.Type == event.Store || r.Type == event.Writeback {
		if d.tile.logger != nil {
			d.tile.logger.LogMissServiced(now, r.CoreID(), r.PC(), r.Address)
			d.logWaypoints(r)
		}
		d.tile.sink.NotifyAck(r)
		return
	}

	if r.SourceTile() == d.tile.ID {
		if d.tile.logger != nil {
			d.tile.logger.LogMissServiced(now, r.CoreID(), r.PC(), r.Address)
			d.logWaypoints(r)
		}
		d.tile.sink.NotifyAck(r)
		return
	}

	if d.tile.logger != nil {
		d.tile.logger.LogTileSendAck(now, r.CoreID(), r.PC(), r.SourceTile(), r.Address)
	}
	msg := d.getDataForwardMessage(r)
	d.tile.issueRemoteRequest(msg, now)
}

// logWaypoints surfaces r's lifecycle stamps (reach-arbiter, reach-cache-
// bank, reach-MC, MC-issue) to the logger once the request reaches the tile
// that will hand it back to its originating core — only those waypoints a
// request's actual path through the tile/NoC/memory controller ever set.
func (d *AccessDirector) logWaypoints(r *event.CacheRequest) {
	w := r.Waypoints()
	if cycle, ok := w.ReachArbiter(); ok {
		d.tile.logger.LogReachArbiter(cycle, r.CoreID(), r.PC(), r.Address)
	}
	if cycle, ok := w.ReachCacheBank(); ok {
		d.tile.logger.LogReachCacheBank(cycle, r.CoreID(), r.PC(), r.Address)
	}
	if cycle, ok := w.ReachMC(); ok {
		d.tile.logger.LogReachMC(cycle, r.CoreID(), r.PC(), r.Address)
	}
	if cycle, ok := w.MCIssue(); ok {
		d.tile.logger.LogMCIssue(cycle, r.CoreID(), r.PC(), r.Address)
	}
}

// handleScratchpadRequest is grounded on the live (non-commented-out) path
// of AccessDirector::handle(ScratchpadRequest): way-disabling accounting is
// dropped (the original kept it commented out too), so ALLOCATE/FREE always
// ack immediately.
func (d *AccessDirector) handleScratchpadRequest(r *event.ScratchpadRequest, now uint64) {
	switch r.Command {
	case event.Allocate, event.Free:
		d.tile.issueRemoteRequest(d.getScratchpadAckMessage(r), now)

	case event.Read:
		if !r.Serviced() {
			lineSize := d.geometry.LineSize
			linesToRead := (uint64(r.Size) + lineSize - 1) / lineSize
			if linesToRead == 0 {
				linesToRead = 1
			}
			for i := uint64(0); i < linesToRead; i++ {
				r.CacheBank = d.calculateScratchpadBank(r)
				d.tile.Bank(r.CacheBank).SubmitScratchpad(r, now)
			}
			d.pendingScratchpad[r] = int(linesToRead)
			return
		}

		d.pendingScratchpad[r]--
		if d.pendingScratchpad[r] == 0 {
			delete(d.pendingScratchpad, r)
			r.OperandReady = true
		}
		d.tile.issueRemoteRequest(d.getScratchpadAckMessage(r), now)

	case event.Write:
		if !r.Serviced() {
			r.CacheBank = d.calculateScratchpadBank(r)
			d.tile.Bank(r.CacheBank).SubmitScratchpad(r, now)
			return
		}
		if r.OperandReady {
			d.tile.sink.NotifyScratchpadAck(r)
		}
	}
}

// calculateHome derives the home tile for a CacheRequest's line address.
func (d *AccessDirector) calculateHome(r *event.CacheRequest) int {
	if d.geometry.TileBits == 0 {
		return 0
	}
	switch d.cachePolicy {
	case SetInterleaving:
		set := d.setIndex(r.Address)
		mask := uint64(1)<<d.geometry.TileBits - 1
		return int(set & mask)
	case PageToBank:
		shift := d.geometry.BlockOffsetBits + d.geometry.SetBits - d.geometry.TileBits
		mask := uint64(1)<<d.geometry.TileBits - 1
		return int((r.Address >> shift) & mask)
	default:
		panic("tile: unknown cache data mapping policy")
	}
}

// calculateBank derives the L2 bank for a CacheRequest's line address.
func (d *AccessDirector) calculateBank(r *event.CacheRequest) int {
	if d.geometry.BankBits == 0 {
		return 0
	}
	switch d.cachePolicy {
	case SetInterleaving:
		set := d.setIndex(r.Address)
		mask := uint64(1)<<d.geometry.BankBits - 1
		return int((set >> d.geometry.TileBits) & mask)
	case PageToBank:
		shift := d.geometry.BlockOffsetBits + d.geometry.SetBits - d.geometry.TileBits - d.geometry.BankBits
		mask := uint64(1)<<d.geometry.BankBits - 1
		return int((r.Address >> shift) & mask)
	default:
		panic("tile: unknown cache data mapping policy")
	}
}

func (d *AccessDirector) setIndex(address uint64) uint64 {
	mask := uint64(1)<<d.geometry.SetBits - 1
	return (address >> d.geometry.BlockOffsetBits) & mask
}

// calculateScratchpadBank mirrors AccessDirector::calculateBank(ScratchpadRequest).
func (d *AccessDirector) calculateScratchpadBank(r *event.ScratchpadRequest) int {
	if d.geometry.BankBits == 0 {
		return 0
	}
	switch d.scratchpadPolicy {
	case CoreToBank:
		coreLocal := uint64(r.CoreID() % d.tile.CoresPerTile)
		combined := (coreLocal << d.geometry.VRegBits) | uint64(r.DestinationReg)
		shift := d.geometry.VRegBits + d.geometry.CoreBits - d.geometry.BankBits
		return int(combined >> shift)
	case VRegInterleaving:
		return int(uint64(r.DestinationReg) % d.geometry.BanksPerTile)
	default:
		panic("tile: unknown scratchpad mapping policy")
	}
}

// routeToMemory issues a bypass-L2 request to its memory controller, either
// directly (no L3 configured) or as the miss path out of the L3 tier.
func (d *AccessDirector) routeToMemory(r *event.CacheRequest, now uint64) {
	msg := d.getMemoryRequestMessage(r)
	d.tile.issueRemoteRequest(msg, now)
}

func (d *AccessDirector) getRemoteL2RequestMessage(r *event.CacheRequest) *noc.Message {
	return &noc.Message{
		Type:        noc.RemoteL2Request,
		Source:      r.SourceTile(),
		Destination: r.HomeTile,
		PayloadSize: addressSize,
		Payload:     r,
	}
}

func (d *AccessDirector) getMemoryRequestMessage(r *event.CacheRequest) *noc.Message {
	size := addressSize
	mt := noc.MemoryRequestLoad

	switch r.Type {
	case event.Store:
		size = r.Size
		mt = noc.MemoryRequestStore
	case event.Writeback:
		var mc int
		if d.geometry.MCMask != 0 {
			mc = int((r.Address >> d.geometry.MCShift) & d.geometry.MCMask)
		}
		r.MemoryController = mc
		size = uint32(d.geometry.LineSize)
		r.SetSourceTile(d.tile.ID)
		r.HomeTile = d.calculateHome(r)
		mt = noc.MemoryRequestWriteback
	}

	return &noc.Message{
		Type:        mt,
		Source:      r.HomeTile,
		Destination: r.MemoryController,
		PayloadSize: size,
		Payload:     r,
	}
}

func (d *AccessDirector) getDataForwardMessage(r *event.CacheRequest) *noc.Message {
	return &noc.Message{
		Type:        noc.RemoteL2Ack,
		Source:      r.HomeTile,
		Destination: r.SourceTile(),
		PayloadSize: uint32(d.geometry.LineSize),
		Payload:     r,
	}
}

func (d *AccessDirector) getScratchpadAckMessage(r *event.ScratchpadRequest) *noc.Message {
	return &noc.Message{
		Type:        noc.ScratchpadAck,
		Source:      d.tile.ID,
		Destination: r.SourceTile(),
		PayloadSize: 15,
		Payload:     r,
	}
}
