package tile

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/noc"
)

// NoCInjector is the narrow view of the NoC the arbiter needs: resolving a
// message's (network, class) and handing it off for admission. The NoC
// itself admits unconditionally (spec.md §4.4); backpressure lives entirely
// in the arbiter's own per-input buffers.
type NoCInjector interface {
	NetworkAndClass(mt noc.MessageType) (network, class int)
	HandleMessageFromTile(msg *noc.Message, now uint64)
}

// BankReceiver is the narrow view of an L2 bank the arbiter needs.
type BankReceiver interface {
	Submit(req *event.CacheRequest, now uint64)
}

type nocEntry struct {
	msg     *noc.Message
	readyAt uint64
}

type l2Entry struct {
	req     *event.CacheRequest
	readyAt uint64
}

// Arbiter multiplexes core- and bank-originated messages onto the NoC and
// from the NoC into the local L2 (spec.md §4.3). Per-output round-robin
// cursors persist across cycles, bounding starvation to input_count*Q
// cycles.
type Arbiter struct {
	q             int
	coresPerTile  int
	banksPerTile  int
	numNetworks   int

	// nocQueues[network][inputPort]
	nocQueues [][]sim.Buffer
	nocRR     []int

	// l2Queues[bank][core]
	l2Queues [][]sim.Buffer
	l2RR     []int

	injector NoCInjector
	banks    []BankReceiver
}

// NewArbiter builds an Arbiter with one input slot per core and one per L2
// bank (spec.md §4.3 "First num_cores slots ... Second num_l2_banks
// slots").
func NewArbiter(tileName string, coresPerTile, banksPerTile, numNetworks, q int, injector NoCInjector) *Arbiter {
	numInputs := coresPerTile + banksPerTile

	a := &Arbiter{
		q:            q,
		coresPerTile: coresPerTile,
		banksPerTile: banksPerTile,
		numNetworks:  numNetworks,
		nocQueues:    make([][]sim.Buffer, numNetworks),
		nocRR:        make([]int, numNetworks),
		l2Queues:     make([][]sim.Buffer, banksPerTile),
		l2RR:         make([]int, banksPerTile),
		injector:     injector,
		banks:        make([]BankReceiver, banksPerTile),
	}

	for n := 0; n < numNetworks; n++ {
		a.nocQueues[n] = make([]sim.Buffer, numInputs)
		for p := 0; p < numInputs; p++ {
			a.nocQueues[n][p] = sim.NewBuffer(bufName(tileName, "NoC", n, p), q)
		}
	}
	for b := 0; b < banksPerTile; b++ {
		a.l2Queues[b] = make([]sim.Buffer, coresPerTile)
		for c := 0; c < coresPerTile; c++ {
			a.l2Queues[b][c] = sim.NewBuffer(bufName(tileName, "L2", b, c), q)
		}
	}

	return a
}

func bufName(tile, kind string, a, b int) string {
	return tile + ".Arbiter." + kind + ".Buf"
}

// AddBank registers the receiver for local bank b.
func (a *Arbiter) AddBank(b int, recv BankReceiver) {
	a.banks[b] = recv
}

// inputIndex mirrors Arbiter::getInputIndex: cores occupy [0, coresPerTile),
// banks occupy [coresPerTile, coresPerTile+banksPerTile).
func (a *Arbiter) inputIndex(isCore bool, id int) int {
	if isCore {
		return id
	}
	return a.coresPerTile + id
}

// SubmitNoC enqueues msg for eventual injection onto the NoC, from the input
// identified by (isCore, id).
func (a *Arbiter) SubmitNoC(isCore bool, id int, msg *noc.Message, now uint64) bool {
	network, _ := a.injector.NetworkAndClass(msg.Type)
	port := a.inputIndex(isCore, id)
	buf := a.nocQueues[network][port]
	if !buf.CanPush() {
		return false
	}
	buf.Push(nocEntry{msg: msg, readyAt: now})
	return true
}

// stampReachArbiter records the reach-arbiter waypoint on msg's payload, if
// the payload is a waypoint-carrying event.
func stampReachArbiter(msg *noc.Message, now uint64) {
	if ev, ok := msg.Payload.(event.Event); ok {
		ev.Waypoints().SetReachArbiter(now)
	}
}

// SubmitL2 enqueues req for eventual delivery to bank, from core, becoming
// eligible at now+lapse (spec.md §4.2's per-request "lapse").
func (a *Arbiter) SubmitL2(bank, core int, req *event.CacheRequest, now, lapse uint64) bool {
	buf := a.l2Queues[bank][core]
	if !buf.CanPush() {
		return false
	}
	buf.Push(l2Entry{req: req, readyAt: now + lapse})
	return true
}

// SubmitToNoC runs one round: for each network, advance the round-robin
// cursor and, if the head message of the next ready input is admissible,
// inject it and pop.
func (a *Arbiter) SubmitToNoC(now uint64) {
	for network := 0; network < a.numNetworks; network++ {
		inputs := a.nocQueues[network]
		n := len(inputs)
		if n == 0 {
			continue
		}

		for tries := 0; tries < n; tries++ {
			port := (a.nocRR[network] + tries) % n
			buf := inputs[port]
			item := buf.Peek()
			if item == nil {
				continue
			}
			entry := item.(nocEntry)
			if entry.readyAt > now {
				continue
			}

			buf.Pop()
			stampReachArbiter(entry.msg, now)
			a.injector.HandleMessageFromTile(entry.msg, now)
			a.nocRR[network] = (port + 1) % n
			break
		}
	}
}

// SubmitToL2 runs one round: for each bank, advance the round-robin cursor
// and hand the head request of the next ready core to that bank.
func (a *Arbiter) SubmitToL2(now uint64) {
	for bank := 0; bank < a.banksPerTile; bank++ {
		inputs := a.l2Queues[bank]
		n := len(inputs)
		if n == 0 {
			continue
		}

		for tries := 0; tries < n; tries++ {
			core := (a.l2RR[bank] + tries) % n
			buf := inputs[core]
			item := buf.Peek()
			if item == nil {
				continue
			}
			entry := item.(l2Entry)
			if entry.readyAt > now {
				continue
			}

			recv := a.banks[bank]
			if recv == nil {
				continue
			}

			buf.Pop()
			entry.req.Waypoints().SetReachCacheBank(now)
			recv.Submit(entry.req, now)
			a.l2RR[bank] = (core + 1) % n
			break
		}
	}
}

// HasArbiterQueueFreeSlot reports whether the core identified by (isCore,id)
// has room in at least one of its arbiter-facing queues: the NoC input
// queues across all networks, plus (if isCore) its per-bank L2 queues.
func (a *Arbiter) HasArbiterQueueFreeSlot(isCore bool, id int) bool {
	port := a.inputIndex(isCore, id)
	for _, perNetwork := range a.nocQueues {
		if perNetwork[port].CanPush() {
			return true
		}
	}
	if isCore {
		for bank := 0; bank < a.banksPerTile; bank++ {
			if a.l2Queues[bank][id].CanPush() {
				return true
			}
		}
	}
	return false
}

// HasL2NoCQueueFreeSlot reports whether bank's slot in any network's input
// queues has room, used when a bank wants to emit to the NoC.
func (a *Arbiter) HasL2NoCQueueFreeSlot(bank int) bool {
	port := a.inputIndex(false, bank)
	for _, perNetwork := range a.nocQueues {
		if perNetwork[port].CanPush() {
			return true
		}
	}
	return false
}

// HasTraffic reports whether any arbiter-internal queue (NoC-bound or
// L2-bound) still holds a message, used by the orchestrator to decide
// whether a fast-forward is safe.
func (a *Arbiter) HasTraffic() bool {
	for _, perNetwork := range a.nocQueues {
		for _, buf := range perNetwork {
			if buf.Size() > 0 {
				return true
			}
		}
	}
	for _, perBank := range a.l2Queues {
		for _, buf := range perBank {
			if buf.Size() > 0 {
				return true
			}
		}
	}
	return false
}
