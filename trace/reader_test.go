package trace_test

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/orchestrator"
	"github.com/sarchlab/coyote-go/trace"
)

var _ = Describe("Reader", func() {
	It("parses l2_read/l2_write and memory_read/memory_write records", func() {
		csv := "timestamp,core,pc,type,size,address\n" +
			"100,0,400,l2_read,64,1000\n" +
			"110,1,408,l2_write,8,2000\n" +
			"120,2,410,memory_read,64,3000\n" +
			"130,3,418,memory_write,8,4000\n"

		r, err := trace.NewReader(strings.NewReader(csv))
		Expect(err).NotTo(HaveOccurred())

		a, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(mustAccess(100, 0, 0x400, event.Load, 64, 0x1000)))

		a, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(mustAccess(110, 1, 0x408, event.Store, 8, 0x2000)))

		a, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(mustAccess(120, 2, 0x410, event.Load, 64, 0x3000)))

		a, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(mustAccess(130, 3, 0x418, event.Store, 8, 0x4000)))

		_, err = r.Next()
		Expect(errors.Is(err, io.EOF)).To(BeTrue())
	})

	It("rejects an unrecognized access type", func() {
		csv := "timestamp,core,pc,type,size,address\n100,0,400,fetch,64,1000\n"

		r, err := trace.NewReader(strings.NewReader(csv))
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Next()
		Expect(err).To(HaveOccurred())
	})
})

func mustAccess(ts uint64, core int, pc uint32, typ event.CacheRequestType, size uint32, addr uint64) orchestrator.Access {
	return orchestrator.Access{Timestamp: ts, Core: core, PC: pc, Type: typ, Size: size, Address: addr}
}
