package event

// Fence is a barrier-arrive CoreEvent with no payload beyond identity.
type Fence struct {
	coreEventBase
}

// NewFence builds a Fence event.
func NewFence(timestamp uint64, pc uint32, coreID, sourceTile int) *Fence {
	return &Fence{coreEventBase: newCoreEventBase(timestamp, pc, coreID, sourceTile)}
}

// Finish marks a core as stopped.
type Finish struct {
	coreEventBase
}

// NewFinish builds a Finish event.
func NewFinish(timestamp uint64, pc uint32, coreID, sourceTile int) *Finish {
	return &Finish{coreEventBase: newCoreEventBase(timestamp, pc, coreID, sourceTile)}
}

// VectorWaitingForScalarStore parks a core until outstanding scalar stores
// complete.
type VectorWaitingForScalarStore struct {
	coreEventBase
}

// NewVectorWaitingForScalarStore builds a VectorWaitingForScalarStore event.
func NewVectorWaitingForScalarStore(timestamp uint64, pc uint32, coreID, sourceTile int) *VectorWaitingForScalarStore {
	return &VectorWaitingForScalarStore{coreEventBase: newCoreEventBase(timestamp, pc, coreID, sourceTile)}
}
