package event

import "github.com/rs/xid"

// CacheRequestType is the access type of a CacheRequest.
type CacheRequestType int

// Cache access types.
const (
	Load CacheRequestType = iota
	Store
	Fetch
	Writeback
)

func (t CacheRequestType) String() string {
	switch t {
	case Load:
		return "LOAD"
	case Store:
		return "STORE"
	case Fetch:
		return "FETCH"
	case Writeback:
		return "WRITEBACK"
	default:
		return "UNKNOWN"
	}
}

// CacheRequestFlags are the orthogonal bits carried by a CacheRequest.
type CacheRequestFlags struct {
	BypassL1       bool
	BypassL2       bool
	MemoryAck      bool
	ProducedByVector bool
	Allocating     bool
	ClosesRow      bool
	MissesRow      bool
}

// CacheRequest is a RegisterEvent-shaped request for a cache line. The
// Home*/Bank/Row/Col/MemoryController fields are derived in flight by the
// access director, not set at construction.
type CacheRequest struct {
	registerEventBase

	Address uint64
	Size    uint32
	Type    CacheRequestType
	Flags   CacheRequestFlags

	// Derived fields, set as the request is routed.
	HomeTile              int
	CacheBank              int
	MemoryController       int
	Rank, Bank, Row, Col   int
	SizeRequestedToMemory  uint32
	MemoryTile             int

	// MCPUTransaction identifies the vector memory instruction this request
	// was fanned out from. The nil ID is reserved for scalar requests that
	// never pass through a memory-CPU wrapper.
	MCPUTransaction xid.ID
}

// NewCacheRequest builds a non-serviced CacheRequest.
func NewCacheRequest(
	timestamp uint64,
	pc uint32,
	coreID, sourceTile, destReg int,
	destKind RegKind,
	address uint64,
	size uint32,
	typ CacheRequestType,
) *CacheRequest {
	return &CacheRequest{
		registerEventBase: newRegisterEventBase(timestamp, pc, coreID, sourceTile, destReg, destKind),
		Address:           address,
		Size:              size,
		Type:              typ,
	}
}

// ScratchpadCommand is the sub-state of a ScratchpadRequest.
type ScratchpadCommand int

// Scratchpad commands.
const (
	Allocate ScratchpadCommand = iota
	Free
	Read
	Write
)

func (c ScratchpadCommand) String() string {
	switch c {
	case Allocate:
		return "ALLOCATE"
	case Free:
		return "FREE"
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// ScratchpadRequest is a control message between the MCPU wrapper and a
// tile's scratchpad.
type ScratchpadRequest struct {
	registerEventBase

	Address           uint64
	Size              uint32
	Command           ScratchpadCommand
	MemoryTile        int // the tile owning the MCPU that issued this request
	DestinationReg    int
	OperandReady      bool

	// MCPUTransaction identifies the vector memory instruction this command
	// was issued on behalf of. Zero for requests a core issues directly.
	MCPUTransaction xid.ID
}

// NewScratchpadRequest builds a non-serviced ScratchpadRequest.
func NewScratchpadRequest(
	timestamp uint64,
	pc uint32,
	coreID, sourceTile int,
	address uint64,
	size uint32,
	cmd ScratchpadCommand,
	memoryTile, destinationReg int,
) *ScratchpadRequest {
	return &ScratchpadRequest{
		registerEventBase: newRegisterEventBase(timestamp, pc, coreID, sourceTile, destinationReg, RegVector),
		Address:           address,
		Size:              size,
		Command:           cmd,
		MemoryTile:        memoryTile,
		DestinationReg:    destinationReg,
	}
}

// MCPUOperation is LOAD or STORE for a vector memory instruction.
type MCPUOperation int

// Vector memory operations.
const (
	MCPULoad MCPUOperation = iota
	MCPUStore
)

// MCPUSubOperation distinguishes the addressing mode of the vector memory
// instruction.
type MCPUSubOperation int

// Vector memory addressing modes.
const (
	Unit MCPUSubOperation = iota
	NonUnit
	OrderedIndex
	UnorderedIndex
)

// MCPUInstruction is a vector memory instruction awaiting fan-out by the
// memory-CPU wrapper.
type MCPUInstruction struct {
	registerEventBase

	BaseAddress  uint64
	Operation    MCPUOperation
	SubOperation MCPUSubOperation
	ElementWidth uint8 // in bits: 8, 16, 32 or 64
	IndexVector  []uint64
	RawBits      uint32
}

// NewMCPUInstruction builds a non-serviced MCPUInstruction.
func NewMCPUInstruction(
	timestamp uint64,
	pc uint32,
	coreID, sourceTile, destReg int,
	baseAddress uint64,
	op MCPUOperation,
	subOp MCPUSubOperation,
	elemWidth uint8,
	indexVector []uint64,
	rawBits uint32,
) *MCPUInstruction {
	return &MCPUInstruction{
		registerEventBase: newRegisterEventBase(timestamp, pc, coreID, sourceTile, destReg, RegVector),
		BaseAddress:       baseAddress,
		Operation:         op,
		SubOperation:      subOp,
		ElementWidth:      elemWidth,
		IndexVector:       indexVector,
		RawBits:           rawBits,
	}
}

// MCPUSetVVL requests (and later carries) a granted vector length.
type MCPUSetVVL struct {
	registerEventBase

	AVL          uint32
	VVL          uint32
	LMUL         float64
	ElementWidth uint8
}

// NewMCPUSetVVL builds a non-serviced MCPUSetVVL.
func NewMCPUSetVVL(timestamp uint64, pc uint32, coreID, sourceTile int, avl uint32, lmul float64, elemWidth uint8) *MCPUSetVVL {
	return &MCPUSetVVL{
		registerEventBase: newRegisterEventBase(timestamp, pc, coreID, sourceTile, -1, RegDontCare),
		AVL:               avl,
		LMUL:              lmul,
		ElementWidth:      elemWidth,
	}
}

// InsnLatencyEvent models a fixed-latency instruction whose destination
// register becomes visible at a future cycle.
type InsnLatencyEvent struct {
	registerEventBase

	SrcReg      int
	SrcKind     RegKind
	InsnLatency uint64
	AvailCycle  uint64
}

// NewInsnLatencyEvent builds a non-serviced InsnLatencyEvent.
func NewInsnLatencyEvent(
	timestamp uint64,
	pc uint32,
	coreID, sourceTile, srcReg int,
	srcKind RegKind,
	destReg int,
	destKind RegKind,
	latency uint64,
	availCycle uint64,
) *InsnLatencyEvent {
	return &InsnLatencyEvent{
		registerEventBase: newRegisterEventBase(timestamp, pc, coreID, sourceTile, destReg, destKind),
		SrcReg:            srcReg,
		SrcKind:           srcKind,
		InsnLatency:       latency,
		AvailCycle:        availCycle,
	}
}
