package trace_test

import (
	"bytes"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/orchestrator"
	"github.com/sarchlab/coyote-go/trace"
)

func newTestWriter(buf *bytes.Buffer) *trace.Writer {
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: trace.LevelTrace})
	return trace.New(slog.New(handler))
}

var _ = Describe("Writer", func() {
	var buf *bytes.Buffer
	var w *trace.Writer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		w = newTestWriter(buf)
	})

	It("emits one line per record carrying cycle, core, pc and kind", func() {
		w.LogLocalBankRequest(10, 2, 0x400, 3, 0x1000)

		line := buf.String()
		Expect(line).To(ContainSubstring("cycle=10"))
		Expect(line).To(ContainSubstring("core=2"))
		Expect(line).To(ContainSubstring("pc=1024"))
		Expect(line).To(ContainSubstring("kind=local_bank_request"))
		Expect(strings.Count(line, "\n")).To(Equal(1))
	})

	It("title-cases the stall reason for LogStall", func() {
		w.LogStall(5, 1, orchestrator.WaitingOnBarrier)

		Expect(buf.String()).To(ContainSubstring("Waiting On Barrier"))
	})

	It("emits a ki heartbeat every thousandth instruction", func() {
		for i := 0; i < 999; i++ {
			w.LogInstruction(uint64(i), 0)
		}
		Expect(buf.String()).To(BeEmpty())

		w.LogInstruction(999, 0)
		Expect(buf.String()).To(ContainSubstring("kind=ki"))
	})

	It("emits a distinct kind for each waypoint logger", func() {
		w.LogReachArbiter(1, 0, 0x400, 0x1000)
		w.LogReachCacheBank(2, 0, 0x400, 0x1000)
		w.LogReachMC(3, 0, 0x400, 0x1000)
		w.LogMCIssue(4, 0, 0x400, 0x1000)

		out := buf.String()
		Expect(out).To(ContainSubstring("kind=reach-arbiter"))
		Expect(out).To(ContainSubstring("kind=reach-cache-bank"))
		Expect(out).To(ContainSubstring("kind=reach-MC"))
		Expect(out).To(ContainSubstring("kind=MC-issue"))
	})

	It("distinguishes LLC reads from writes", func() {
		w.LogLLCRead(1, 0, 0x400, 0x1000)
		w.LogLLCWrite(2, 0, 0x400, 0x2000)

		out := buf.String()
		Expect(out).To(ContainSubstring("kind=llc_read"))
		Expect(out).To(ContainSubstring("kind=llc_write"))
	})

	It("is a safe no-op on a nil Writer", func() {
		var nilWriter *trace.Writer
		Expect(func() {
			nilWriter.LogResume(0, 0)
			nilWriter.LogInstruction(0, 0)
			nilWriter.LogStall(0, 0, orchestrator.RAW)
		}).NotTo(Panic())
	})
})
