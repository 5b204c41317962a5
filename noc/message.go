// Package noc implements the NoC abstraction shared by the functional,
// simple-mesh and detailed back ends (spec.md §4.4): per-message
// network+class selection, injection-queue admission and per-destination
// ejection.
package noc

import "fmt"

// MessageType is the closed set of message kinds that can traverse the NoC.
type MessageType int

// Message types.
const (
	RemoteL2Request MessageType = iota
	RemoteL2Ack
	MemoryRequestLoad
	MemoryRequestStore
	MemoryRequestWriteback
	MemoryResponse
	ScratchpadAck
	ScratchpadDataReply
)

func (t MessageType) String() string {
	switch t {
	case RemoteL2Request:
		return "REMOTE_L2_REQUEST"
	case RemoteL2Ack:
		return "REMOTE_L2_ACK"
	case MemoryRequestLoad:
		return "MEMORY_REQUEST_LOAD"
	case MemoryRequestStore:
		return "MEMORY_REQUEST_STORE"
	case MemoryRequestWriteback:
		return "MEMORY_REQUEST_WB"
	case MemoryResponse:
		return "MEMORY_RESPONSE"
	case ScratchpadAck:
		return "SCRATCHPAD_ACK"
	case ScratchpadDataReply:
		return "SCRATCHPAD_DATA_REPLY"
	default:
		return fmt.Sprintf("MessageType(%d)", int(t))
	}
}

// PEKind distinguishes a tile destination from a memory-CPU destination.
type PEKind int

// Destination processing-element kinds.
const (
	DestTile PEKind = iota
	DestMemoryCPU
)

// Message is the wire unit the NoC moves: a header plus an opaque payload
// (normally a *event.CacheRequest or *event.ScratchpadRequest).
type Message struct {
	Type        MessageType
	Source      int
	Destination int
	HeaderSize  uint32
	PayloadSize uint32
	Network     int
	Class       int
	DestKind    PEKind
	Payload     interface{}

	// injectedAt/eligibleAt are set by the NoC on admission, not by callers.
	injectedAt uint64
	eligibleAt uint64
}

// ClassTable maps each message type to a (network, class) pair and carries
// the per-message-type header size. Configuration inconsistency (a message
// type missing from the table) is fatal at construction per spec.md §7.
type ClassTable struct {
	Networks    []string
	networkClass map[MessageType][2]int
	headerSize   map[MessageType]uint32
}

// NewClassTable builds a ClassTable, validating that every message type in
// the closed set is covered.
func NewClassTable(networks []string, assignments map[MessageType][2]int, headerSizes map[MessageType]uint32) *ClassTable {
	t := &ClassTable{
		Networks:     networks,
		networkClass: make(map[MessageType][2]int, len(assignments)),
		headerSize:   make(map[MessageType]uint32, len(headerSizes)),
	}

	for mt, nc := range assignments {
		if nc[0] < 0 || nc[0] >= len(networks) {
			panic(fmt.Sprintf("noc: message type %s assigned to out-of-range network %d", mt, nc[0]))
		}
		t.networkClass[mt] = nc
	}
	for mt, sz := range headerSizes {
		t.headerSize[mt] = sz
	}

	for _, mt := range allMessageTypes {
		if _, ok := t.networkClass[mt]; !ok {
			panic(fmt.Sprintf("noc: message type %s has no network/class assignment", mt))
		}
	}

	return t
}

var allMessageTypes = []MessageType{
	RemoteL2Request, RemoteL2Ack,
	MemoryRequestLoad, MemoryRequestStore, MemoryRequestWriteback, MemoryResponse,
	ScratchpadAck, ScratchpadDataReply,
}

// NetworkAndClass returns the (network index, class index) for mt. It
// panics if mt is not covered, matching the "message-type not mapped" fatal
// configuration error in spec.md §7.
func (t *ClassTable) NetworkAndClass(mt MessageType) (network, class int) {
	nc, ok := t.networkClass[mt]
	if !ok {
		panic(fmt.Sprintf("noc: message type %s not mapped to a network/class", mt))
	}
	return nc[0], nc[1]
}

// HeaderSize returns the configured header size for mt, defaulting to 0 if
// unconfigured (header size omission is not a fatal inconsistency, unlike a
// missing network/class mapping).
func (t *ClassTable) HeaderSize(mt MessageType) uint32 {
	return t.headerSize[mt]
}
