package frontend

import "github.com/sarchlab/coyote-go/event"

// NullFrontEnd is a deterministic test double: it plays back a fixed,
// per-core script of events rather than interpreting instructions, and
// tracks acks/VVL grants/graduations for assertions.
type NullFrontEnd struct {
	// Script[core] is consumed one entry per SimulateOne call that returns
	// true; once exhausted, SimulateOne returns false (blocked).
	Script map[int][][]event.Event

	// Blocked, if set for a core, makes every SimulateOne call for that
	// core return false without consuming the script.
	Blocked map[int]bool

	Acked       []ackCall
	GrantedVVL  map[int]uint32
	Graduations []*event.CacheRequest
	ScalarStoresInFlight map[int]int
}

type ackCall struct {
	Core  int
	Kind  event.RegKind
	Reg   int
	Cycle uint64
}

// NewNullFrontEnd builds an empty NullFrontEnd; populate Script before use.
func NewNullFrontEnd() *NullFrontEnd {
	return &NullFrontEnd{
		Script:               make(map[int][][]event.Event),
		Blocked:              make(map[int]bool),
		GrantedVVL:           make(map[int]uint32),
		ScalarStoresInFlight: make(map[int]int),
	}
}

func (f *NullFrontEnd) SimulateOne(core int, currentCycle uint64, out *[]event.Event) bool {
	if f.Blocked[core] {
		return false
	}
	script := f.Script[core]
	if len(script) == 0 {
		return false
	}
	*out = append(*out, script[0]...)
	f.Script[core] = script[1:]
	return true
}

func (f *NullFrontEnd) AckRegister(core int, kind event.RegKind, reg int, currentCycle uint64) bool {
	f.Acked = append(f.Acked, ackCall{Core: core, Kind: kind, Reg: reg, Cycle: currentCycle})
	return true
}

func (f *NullFrontEnd) CanResume(core, srcReg int, srcKind event.RegKind, dstReg int, dstKind event.RegKind, latency, currentCycle uint64) bool {
	return true
}

func (f *NullFrontEnd) ServiceCacheRequest(req *event.CacheRequest, currentCycle uint64) (*event.CacheRequest, bool) {
	return nil, false
}

func (f *NullFrontEnd) SetVVL(core int, vvl uint32) {
	f.GrantedVVL[core] = vvl
}

func (f *NullFrontEnd) CheckInstructionGraduation(req *event.CacheRequest, currentCycle uint64) {
	f.Graduations = append(f.Graduations, req)
}

func (f *NullFrontEnd) DecrementInFlightScalarStores(core int) {
	if f.ScalarStoresInFlight[core] > 0 {
		f.ScalarStoresInFlight[core]--
	}
}

func (f *NullFrontEnd) CheckInFlightScalarStores(core int) bool {
	return f.ScalarStoresInFlight[core] > 0
}
