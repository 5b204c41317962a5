package tile_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/tile"
)

var _ = Describe("directMappedTagArray", func() {
	It("misses on a cold line and hits on repeat access", func() {
		ta := tile.NewDirectMappedTagArray(4, 64)

		outcome, _ := ta.Access(0x1000, false)
		Expect(outcome).To(Equal(tile.Miss))

		outcome, _ = ta.Access(0x1000, false)
		Expect(outcome).To(Equal(tile.Hit))
	})

	It("evicts a dirty line mapping to the same set", func() {
		ta := tile.NewDirectMappedTagArray(1, 64)

		outcome, _ := ta.Access(0x0000, true) // dirty install
		Expect(outcome).To(Equal(tile.Miss))

		outcome, evicted := ta.Access(0x0040, false) // same set (1 set total), conflicts
		Expect(outcome).To(Equal(tile.MissWithEviction))
		Expect(evicted).To(Equal(uint64(0x0000)))
	})

	It("does not report eviction for a clean conflicting line", func() {
		ta := tile.NewDirectMappedTagArray(1, 64)

		ta.Access(0x0000, false) // clean install
		outcome, _ := ta.Access(0x0040, false)
		Expect(outcome).To(Equal(tile.Miss))
	})
})
