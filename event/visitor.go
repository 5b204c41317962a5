package event

import "fmt"

// Visitor is implemented by every consumer of the event taxonomy. Consumers
// embed BaseVisitor rather than implementing every method, and override only
// the levels they specialize; BaseVisitor walks the rest of the parent chain
// for them (Event <- CoreEvent <- RegisterEvent <- the leaf variant).
type Visitor interface {
	VisitEvent(e Event)
	VisitCoreEvent(e CoreEvent)
	VisitRegisterEvent(e RegisterEvent)
	VisitCacheRequest(r *CacheRequest)
	VisitScratchpadRequest(r *ScratchpadRequest)
	VisitMCPUInstruction(i *MCPUInstruction)
	VisitMCPUSetVVL(s *MCPUSetVVL)
	VisitInsnLatencyEvent(l *InsnLatencyEvent)
	VisitFence(f *Fence)
	VisitFinish(f *Finish)
	VisitVectorWaitingForScalarStore(s *VectorWaitingForScalarStore)
}

// BaseVisitor provides the default fall-through chain. Self must be set to
// the embedding visitor so that overridden methods are reached even when
// BaseVisitor itself is invoked for an unspecialized level.
type BaseVisitor struct {
	Self Visitor
}

// VisitEvent is the root of the fall-through chain; it does nothing by
// default.
func (b *BaseVisitor) VisitEvent(Event) {}

// VisitCoreEvent falls through to VisitEvent.
func (b *BaseVisitor) VisitCoreEvent(e CoreEvent) { b.self().VisitEvent(e) }

// VisitRegisterEvent falls through to VisitCoreEvent.
func (b *BaseVisitor) VisitRegisterEvent(e RegisterEvent) { b.self().VisitCoreEvent(e) }

// VisitCacheRequest falls through to VisitRegisterEvent.
func (b *BaseVisitor) VisitCacheRequest(r *CacheRequest) { b.self().VisitRegisterEvent(r) }

// VisitScratchpadRequest falls through to VisitRegisterEvent.
func (b *BaseVisitor) VisitScratchpadRequest(r *ScratchpadRequest) { b.self().VisitRegisterEvent(r) }

// VisitMCPUInstruction falls through to VisitRegisterEvent.
func (b *BaseVisitor) VisitMCPUInstruction(i *MCPUInstruction) { b.self().VisitRegisterEvent(i) }

// VisitMCPUSetVVL falls through to VisitRegisterEvent.
func (b *BaseVisitor) VisitMCPUSetVVL(s *MCPUSetVVL) { b.self().VisitRegisterEvent(s) }

// VisitInsnLatencyEvent falls through to VisitRegisterEvent.
func (b *BaseVisitor) VisitInsnLatencyEvent(l *InsnLatencyEvent) { b.self().VisitRegisterEvent(l) }

// VisitFence falls through to VisitCoreEvent.
func (b *BaseVisitor) VisitFence(f *Fence) { b.self().VisitCoreEvent(f) }

// VisitFinish falls through to VisitCoreEvent.
func (b *BaseVisitor) VisitFinish(f *Finish) { b.self().VisitCoreEvent(f) }

// VisitVectorWaitingForScalarStore falls through to VisitCoreEvent.
func (b *BaseVisitor) VisitVectorWaitingForScalarStore(s *VectorWaitingForScalarStore) {
	b.self().VisitCoreEvent(s)
}

func (b *BaseVisitor) self() Visitor {
	if b.Self == nil {
		return b
	}
	return b.Self
}

// Handle dispatches e to the Visit method matching its most-specific type.
// This is the single point at which the closed event taxonomy is matched
// against a concrete type; every new variant must be added here.
func Handle(e Event, v Visitor) {
	switch ev := e.(type) {
	case *CacheRequest:
		v.VisitCacheRequest(ev)
	case *ScratchpadRequest:
		v.VisitScratchpadRequest(ev)
	case *MCPUInstruction:
		v.VisitMCPUInstruction(ev)
	case *MCPUSetVVL:
		v.VisitMCPUSetVVL(ev)
	case *InsnLatencyEvent:
		v.VisitInsnLatencyEvent(ev)
	case *Fence:
		v.VisitFence(ev)
	case *Finish:
		v.VisitFinish(ev)
	case *VectorWaitingForScalarStore:
		v.VisitVectorWaitingForScalarStore(ev)
	default:
		panic(fmt.Sprintf("event: unhandled event type %T", e))
	}
}
