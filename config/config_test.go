package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/config"
)

var _ = Describe("Builder", func() {
	It("wires one tile, memory-CPU wrapper and memory controller per tile for the tiled architecture", func() {
		arch := config.NewBuilder().WithNumTiles(3).WithCoresPerTile(2).Build()

		Expect(arch.Tiles).To(HaveLen(3))
		Expect(arch.MCPUs).To(HaveLen(3))
		Expect(arch.MemCtrls).To(HaveLen(3))
		Expect(arch.HasPendingWork()).To(BeFalse())
	})

	It("scales l2_unit_test down to a single tile while keeping core/bank counts", func() {
		arch := config.NewBuilder().
			WithArchitecture(config.ArchitectureL2UnitTest).
			WithCoresPerTile(8).
			Build()

		Expect(arch.Tiles).To(HaveLen(1))
		Expect(arch.Tiles[0].CoresPerTile).To(Equal(8))
		Expect(arch.Tiles[0].BanksPerTile).To(Equal(4))
	})

	It("scales memory_controller_unit_test down to a single core and bank", func() {
		arch := config.NewBuilder().
			WithArchitecture(config.ArchitectureMemoryControllerTest).
			Build()

		Expect(arch.Tiles).To(HaveLen(1))
		Expect(arch.Tiles[0].CoresPerTile).To(Equal(1))
		Expect(arch.Tiles[0].BanksPerTile).To(Equal(1))
	})

	It("omits memory-CPU wrappers and controllers when memory is disabled", func() {
		params := config.DefaultParams()
		params.Memory.Enabled = false
		arch := config.NewBuilder().WithParams(params).Build()

		Expect(arch.MCPUs).To(BeEmpty())
		Expect(arch.MemCtrls).To(BeEmpty())
	})

	It("panics on an unrecognized architecture name", func() {
		Expect(func() {
			config.NewBuilder().WithArchitecture("not_a_real_architecture").Build()
		}).To(Panic())
	})

	It("panics on an unrecognized cache mapping policy", func() {
		params := config.DefaultParams()
		params.CacheDataMapping = "not_a_real_policy"
		Expect(func() {
			config.NewBuilder().WithParams(params).Build()
		}).To(Panic())
	})

	It("steps every tile and the NoC without panicking on an idle architecture", func() {
		arch := config.NewBuilder().WithNumTiles(2).Build()
		Expect(func() { arch.Step(0) }).NotTo(Panic())
	})

	It("resolves and overrides fields through the parameter tree", func() {
		params := config.DefaultParams()
		tree := params.Tree()

		v, ok := tree.Lookup("num_tiles")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(4))

		tree.Set("num_tiles", 6)
		Expect(params.NumTiles).To(Equal(6))
	})
})
