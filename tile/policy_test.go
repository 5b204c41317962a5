package tile_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/tile"
)

var _ = Describe("Cache data mapping policy parsing", func() {
	It("parses the known policy names", func() {
		p, err := tile.ParseCacheDataMappingPolicy("set_interleaving")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(tile.SetInterleaving))

		p, err = tile.ParseCacheDataMappingPolicy("page_to_bank")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(tile.PageToBank))
	})

	It("rejects an unknown policy name", func() {
		_, err := tile.ParseCacheDataMappingPolicy("bogus")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Scratchpad mapping policy parsing", func() {
	It("parses the known policy names", func() {
		p, err := tile.ParseScratchpadMappingPolicy("core_to_bank")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(tile.CoreToBank))

		p, err = tile.ParseScratchpadMappingPolicy("vreg_interleaving")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(tile.VRegInterleaving))
	})

	It("rejects an unknown policy name", func() {
		_, err := tile.ParseScratchpadMappingPolicy("bogus")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Geometry", func() {
	It("derives bit widths from sizing parameters", func() {
		g := tile.NewGeometry(64, 256, 4, 4, 4, 4, 32, 6, 3)
		Expect(g.BlockOffsetBits).To(Equal(uint8(6)))
		Expect(g.TileBits).To(Equal(uint8(2)))
		Expect(g.BankBits).To(Equal(uint8(2)))
		Expect(g.CoreBits).To(Equal(uint8(2)))
	})
})
