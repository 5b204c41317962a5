// coyote-sim wires a tiled memory-hierarchy architecture and drives it with
// a deterministic scripted workload, printing a per-tile traffic summary
// when the run finishes. The real ISA emulator this simulator's front end
// is meant to sit behind is out of scope (frontend.FrontEnd's doc comment);
// this binary exists to exercise the assembled timing model end to end, the
// way samples/passthrough exercises the CGRA device end to end.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/coyote-go/config"
	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/frontend"
	"github.com/sarchlab/coyote-go/noc"
	"github.com/sarchlab/coyote-go/trace"
)

const maxCycles = 100000

// buildWorkload gives every core a short fixed script: a handful of loads
// spread across the address space (so some land locally and some remotely
// under set-interleaved mapping) followed by a store and a finish.
func buildWorkload(numCores, coresPerTile int, lineSize uint64) map[int][][]event.Event {
	script := make(map[int][][]event.Event)
	for core := 0; core < numCores; core++ {
		tile := core / coresPerTile
		var steps [][]event.Event
		for i := 0; i < 8; i++ {
			addr := uint64(core)*4096 + uint64(i)*lineSize
			steps = append(steps, []event.Event{
				event.NewCacheRequest(0, uint32(i), core, tile, i, event.RegInteger, addr, uint32(lineSize), event.Load),
			})
		}
		steps = append(steps, []event.Event{
			event.NewCacheRequest(0, 8, core, tile, -1, event.RegDontCare, uint64(core)*4096, uint32(lineSize), event.Store),
		})
		steps = append(steps, []event.Event{event.NewFinish(0, 9, core, tile)})
		script[core] = steps
	}
	return script
}

func printSummary(arch *config.Architecture, cycles uint64) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Traffic summary after %d cycles", cycles))
	t.AppendHeader(table.Row{"Tile", "Local L2", "Remote L2"})
	for _, tl := range arch.Tiles {
		t.AppendRow(table.Row{tl.ID, tl.CountLocalRequests(), tl.CountRemoteRequests()})
	}
	fmt.Println(t.Render())

	nocTable := table.NewWriter()
	nocTable.SetTitle("NoC traffic by type")
	nocTable.AppendHeader(table.Row{"Message type", "Count"})
	for _, mt := range []noc.MessageType{
		noc.RemoteL2Request, noc.RemoteL2Ack,
		noc.MemoryRequestLoad, noc.MemoryRequestStore, noc.MemoryRequestWriteback,
		noc.MemoryResponse, noc.ScratchpadAck, noc.ScratchpadDataReply,
	} {
		nocTable.AppendRow(table.Row{mt.String(), arch.NoC.TypeCount(mt)})
	}
	fmt.Println(nocTable.Render())
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: trace.LevelTrace}))
	tracer := trace.New(logger)

	params := config.DefaultParams()
	arch := config.NewBuilder().WithParams(params).Build()

	numCores := params.NumTiles * params.CoresPerTile
	fe := frontend.NewNullFrontEnd()
	fe.Script = buildWorkload(numCores, params.CoresPerTile, params.LineSize)

	orch := arch.NewOrchestrator(fe, tracer)

	var cycle uint64
	for cycle = 0; cycle < maxCycles; cycle++ {
		orch.Tick(cycle)
		arch.Step(cycle)
		orch.DrainServiced(arch.Manager.DrainServiced(), cycle)

		if orch.IsFinished() && !arch.HasPendingWork() {
			break
		}
	}

	printSummary(arch, cycle)

	atexit.Exit(0)
}
