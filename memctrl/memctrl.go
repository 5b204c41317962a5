// Package memctrl wraps an akita ideal memory controller behind the narrow
// mcpu.MemoryPort contract, so the rest of the simulator can stay on its own
// explicit-cycle clock while memory timing is modeled by a real akita
// component (spec.md §2's memory-controller line item).
package memctrl

import (
	"github.com/sarchlab/akita/v4/mem/idealmemcontroller"
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"

	"github.com/sarchlab/coyote-go/event"
)

// ReplySink receives a completed CacheRequest back from the controller. In
// practice this is an mcpu.Wrapper, whose ReceiveFromMC is exactly this
// shape.
type ReplySink interface {
	ReceiveFromMC(req *event.CacheRequest, now uint64)
}

// Controller fronts an idealmemcontroller.Comp with a cycle-indexed
// Submit/callback API. It owns a dedicated serial engine so the memory
// timing model can run to completion for each request without the rest of
// the simulator's component graph being scheduled on the same engine.
type Controller struct {
	freq sim.Freq

	engine sim.Engine
	mc     *idealmemcontroller.Comp
	conn   *directconnection.Comp
	port   sim.Port

	sink ReplySink

	pending map[sim.MsgIDType]*event.CacheRequest
}

// Builder constructs a Controller with the given capacity and latency,
// mirroring config.go's createSharedMemory wiring (idealmemcontroller +
// directconnection, both built against the same engine/frequency pair).
type Builder struct {
	capacity uint64
	latency  int
	freq     sim.Freq
}

// NewBuilder returns a Builder with the teacher's own defaults (4GB, 5-cycle
// latency) for the backing storage.
func NewBuilder() Builder {
	return Builder{capacity: 4 * mem.GB, latency: 5, freq: 1 * sim.GHz}
}

// WithCapacity sets the backing storage size in bytes.
func (b Builder) WithCapacity(bytes uint64) Builder {
	b.capacity = bytes
	return b
}

// WithLatency sets the controller's fixed service latency in its own engine
// cycles.
func (b Builder) WithLatency(cycles int) Builder {
	b.latency = cycles
	return b
}

// WithFreq sets the frequency used to convert the caller's cycle count into
// the internal engine's simulated time.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// Build assembles the controller and its own engine/connection, wiring sink
// as the callback for completed requests. sink may be nil when the caller
// needs to construct its own collaborator (e.g. mcpu.Wrapper) after the
// controller exists — use SetSink once that collaborator is built.
func (b Builder) Build(name string, sink ReplySink) *Controller {
	engine := sim.NewSerialEngine()

	mc := idealmemcontroller.MakeBuilder().
		WithEngine(engine).
		WithNewStorage(b.capacity).
		WithLatency(b.latency).
		Build(name + ".Storage")

	port := sim.NewLimitNumMsgPort(nil, 16, name+".Port")

	conn := directconnection.MakeBuilder().
		WithEngine(engine).
		WithFreq(b.freq).
		Build(name + ".Conn")
	conn.PlugIn(mc.GetPortByName("Top"))
	conn.PlugIn(port)

	return &Controller{
		freq:    b.freq,
		engine:  engine,
		mc:      mc,
		conn:    conn,
		port:    port,
		sink:    sink,
		pending: make(map[sim.MsgIDType]*event.CacheRequest),
	}
}

// SetSink attaches the collaborator notified when a request completes.
// Exists for the common construction order where that collaborator (an
// mcpu.Wrapper) itself needs a reference to this Controller to be built.
func (c *Controller) SetSink(sink ReplySink) { c.sink = sink }

// Submit implements mcpu.MemoryPort. It translates req into an akita memory
// request, runs the internal engine to completion, and delivers every
// response that has arrived back to the sink before returning.
func (c *Controller) Submit(req *event.CacheRequest, now uint64) {
	req.Waypoints().SetMCIssue(now)

	sendTime := sim.VTimeInSec(float64(now) / float64(c.freq))

	var msg sim.Msg
	switch req.Type {
	case event.Store, event.Writeback:
		msg = mem.WriteReqBuilder{}.
			WithSrc(c.port.AsRemote()).
			WithDst(c.mc.GetPortByName("Top").AsRemote()).
			WithAddress(req.Address).
			WithData(make([]byte, req.Size)).
			WithPID(0).
			WithSendTime(sendTime).
			Build()
	default:
		msg = mem.ReadReqBuilder{}.
			WithSrc(c.port.AsRemote()).
			WithDst(c.mc.GetPortByName("Top").AsRemote()).
			WithAddress(req.Address).
			WithByteSize(uint64(req.Size)).
			WithPID(0).
			WithSendTime(sendTime).
			Build()
	}

	c.pending[msg.Meta().ID] = req

	if err := c.port.Send(msg); err != nil {
		panic("memctrl: failed to submit request to memory controller: " + err.Error())
	}

	c.engine.Run()
	c.drain(now)
}

// drain retrieves every response the controller's port has accumulated and
// resolves the matching pending request through the sink.
func (c *Controller) drain(now uint64) {
	for {
		msg := c.port.RetrieveIncoming()
		if msg == nil {
			return
		}

		var reqID sim.MsgIDType
		switch rsp := msg.(type) {
		case *mem.DataReadyRsp:
			reqID = rsp.RespondTo
		case *mem.WriteDoneRsp:
			reqID = rsp.RespondTo
		default:
			continue
		}

		req, ok := c.pending[reqID]
		if !ok {
			continue
		}
		delete(c.pending, reqID)

		req.SetServiced()
		c.sink.ReceiveFromMC(req, now)
	}
}
