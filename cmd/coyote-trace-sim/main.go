// coyote-trace-sim wires the same tiled architecture as coyote-sim but
// drives it from a recorded CSV access trace instead of a scripted front
// end, grounded on TraceDrivenSimulationOrchestrator: a timing-only replay
// harness for traces captured off a real run.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/coyote-go/config"
	"github.com/sarchlab/coyote-go/noc"
	"github.com/sarchlab/coyote-go/trace"
)

const maxCycles = 1000000

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
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: coyote-trace-sim <trace.csv>")
		atexit.Exit(1)
		return
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "coyote-trace-sim:", err)
		atexit.Exit(1)
		return
	}
	defer f.Close()

	reader, err := trace.NewReader(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "coyote-trace-sim:", err)
		atexit.Exit(1)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: trace.LevelTrace}))
	tracer := trace.New(logger)

	params := config.DefaultParams()
	arch := config.NewBuilder().WithParams(params).Build()
	orch := arch.NewTraceDrivenOrchestrator(reader, tracer)

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
