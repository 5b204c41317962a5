package noc

import "sort"

// Backend computes the cycle at which a just-admitted message becomes
// deliverable. The three back ends named in spec.md §4.4 (functional,
// simple mesh, detailed) all implement this.
type Backend interface {
	// PacketLatency returns the number of cycles between admission and
	// delivery eligibility for msg, admitted at cycle now.
	PacketLatency(msg *Message, now uint64) uint64

	// Tick advances any internal state the back end owns (e.g. the
	// detailed back end's external engine). It is a no-op for back ends
	// with no internal clock.
	Tick(now uint64)
}

// MemoryCPUAdmission is queried before delivering a memory-bound packet; if
// it reports false, delivery for that destination is deferred one cycle.
type MemoryCPUAdmission interface {
	AbleToReceivePacket(msg *Message) bool
}

// LatencyRefresher is implemented by back ends whose PacketLatency may
// return UnknownLatency (DetailedBackend, waiting on an external engine).
// NoC.Tick calls Refresh once per cycle for every pending packet still
// carrying that sentinel, until the back end reports a real latency.
type LatencyRefresher interface {
	Refresh(msg *Message, now uint64) (latency uint64, known bool)
}

type pendingPacket struct {
	msg        *Message
	eligibleAt uint64
}

// perDestQueue is ordered by eligibility cycle; packets are appended in
// admission order and, because admission order is monotonic in time within
// one (network, destination) pair for a fixed-or-increasing-latency back
// end, a simple append keeps FIFO order for same-latency traffic. For the
// general case we re-sort on insert, which is cheap at simulator queue
// depths.
type perDestQueue struct {
	packets []pendingPacket
}

func (q *perDestQueue) insert(p pendingPacket) {
	q.packets = append(q.packets, p)
	sort.SliceStable(q.packets, func(i, j int) bool {
		return q.packets[i].eligibleAt < q.packets[j].eligibleAt
	})
}

func (q *perDestQueue) peek() (pendingPacket, bool) {
	if len(q.packets) == 0 {
		return pendingPacket{}, false
	}
	return q.packets[0], true
}

func (q *perDestQueue) pop() {
	q.packets = q.packets[1:]
}

// NoC routes admitted packets to per-(network, destination) delivery queues
// and exposes per-network/per-message-type traffic counters.
type NoC struct {
	classTable *ClassTable
	backend    Backend
	memAdmission MemoryCPUAdmission

	// queues[network][destination]
	queues []map[int]*perDestQueue

	rxCount map[int]uint64
	txCount map[int]uint64
	typeCount map[MessageType]uint64

	destKind func(mt MessageType) PEKind
}

// New builds a NoC over the given back end and class table. destKind
// determines whether a message type targets a tile or a memory CPU.
func New(classTable *ClassTable, backend Backend, memAdmission MemoryCPUAdmission, destKind func(MessageType) PEKind) *NoC {
	n := &NoC{
		classTable:   classTable,
		backend:      backend,
		memAdmission: memAdmission,
		queues:       make([]map[int]*perDestQueue, len(classTable.Networks)),
		rxCount:      make(map[int]uint64),
		txCount:      make(map[int]uint64),
		typeCount:    make(map[MessageType]uint64),
		destKind:     destKind,
	}
	for i := range n.queues {
		n.queues[i] = make(map[int]*perDestQueue)
	}
	return n
}

// NetworkAndClass exposes the class table's routing decision for mt so n
// itself satisfies tile.NoCInjector and mcpu.NoCInjector without either
// package reaching into the class table directly.
func (n *NoC) NetworkAndClass(mt MessageType) (network, class int) {
	return n.classTable.NetworkAndClass(mt)
}

func (n *NoC) admit(msg *Message, now uint64) {
	network, class := n.classTable.NetworkAndClass(msg.Type)
	if network < 0 || network >= len(n.queues) {
		panic("noc: message admitted to out-of-range network index")
	}
	msg.Network = network
	msg.Class = class
	msg.HeaderSize = n.classTable.HeaderSize(msg.Type)
	msg.DestKind = n.destKind(msg.Type)
	msg.injectedAt = now

	latency := n.backend.PacketLatency(msg, now)
	msg.eligibleAt = now + latency

	n.txCount[network]++
	n.typeCount[msg.Type]++

	q, ok := n.queues[network][msg.Destination]
	if !ok {
		q = &perDestQueue{}
		n.queues[network][msg.Destination] = q
	}
	q.insert(pendingPacket{msg: msg, eligibleAt: msg.eligibleAt})
}

// HandleMessageFromTile admits a packet injected by a tile arbiter.
func (n *NoC) HandleMessageFromTile(msg *Message, now uint64) {
	n.admit(msg, now)
}

// HandleMessageFromMemoryCPU admits a packet injected by the memory-CPU
// wrapper (a response travelling back toward a tile).
func (n *NoC) HandleMessageFromMemoryCPU(msg *Message, now uint64) {
	n.admit(msg, now)
}

// DeliverOnePacketToDestination drains, for each network and destination, at
// most one packet whose eligibility cycle has arrived. It returns the
// messages it delivered; HasPacketsInFlight reports whether any packet is
// still pending.
func (n *NoC) DeliverOnePacketToDestination(now uint64) []*Message {
	var delivered []*Message

	for netIdx, destinations := range n.queues {
		for dest, q := range destinations {
			p, ok := q.peek()
			if !ok {
				continue
			}
			if p.eligibleAt > now {
				continue
			}
			if p.msg.DestKind == DestMemoryCPU && n.memAdmission != nil && !n.memAdmission.AbleToReceivePacket(p.msg) {
				// Deferred one cycle: bump eligibility and re-sort.
				p.eligibleAt = now + 1
				q.packets[0].eligibleAt = p.eligibleAt
				sort.SliceStable(q.packets, func(i, j int) bool {
					return q.packets[i].eligibleAt < q.packets[j].eligibleAt
				})
				continue
			}

			q.pop()
			n.rxCount[netIdx]++
			delivered = append(delivered, p.msg)
			_ = dest
		}
	}

	return delivered
}

// HasPacketsInFlight reports whether the NoC still holds any undelivered
// packet, across all networks and destinations.
func (n *NoC) HasPacketsInFlight() bool {
	for _, destinations := range n.queues {
		for _, q := range destinations {
			if len(q.packets) > 0 {
				return true
			}
		}
	}
	return false
}

// Tick advances the back end's internal clock by one cycle, then, for back
// ends that can revise a previously-unknown latency, re-queries every
// pending packet still carrying UnknownLatency.
func (n *NoC) Tick(now uint64) {
	n.backend.Tick(now)

	refresher, ok := n.backend.(LatencyRefresher)
	if !ok {
		return
	}
	for _, destinations := range n.queues {
		for _, q := range destinations {
			changed := false
			for i := range q.packets {
				p := &q.packets[i]
				if p.eligibleAt != p.msg.injectedAt+UnknownLatency {
					continue
				}
				latency, known := refresher.Refresh(p.msg, now)
				if !known {
					continue
				}
				p.eligibleAt = now + latency
				changed = true
			}
			if changed {
				sort.SliceStable(q.packets, func(i, j int) bool {
					return q.packets[i].eligibleAt < q.packets[j].eligibleAt
				})
			}
		}
	}
}

// RxCount returns the number of packets received on a network.
func (n *NoC) RxCount(network int) uint64 { return n.rxCount[network] }

// TxCount returns the number of packets transmitted on a network.
func (n *NoC) TxCount(network int) uint64 { return n.txCount[network] }

// TypeCount returns the number of packets of a given message type.
func (n *NoC) TypeCount(mt MessageType) uint64 { return n.typeCount[mt] }
