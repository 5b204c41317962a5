package paramtree_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/config/paramtree"
)

type nocParams struct {
	MessageHeaderSize uint32
	Networks          []string
}

type testParams struct {
	Architecture  string
	NumCores      int
	VectorBypassL1 bool
	NoC           nocParams
}

var _ = Describe("Tree", func() {
	var tree paramtree.Tree
	var params *testParams

	BeforeEach(func() {
		params = &testParams{Architecture: "tiled", NumCores: 4}
		tree = paramtree.New(params)
	})

	It("resolves a top-level dotted path case- and underscore-insensitively", func() {
		v, ok := tree.Lookup("architecture")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("tiled"))
	})

	It("resolves a nested path by recursing into struct fields", func() {
		params.NoC.MessageHeaderSize = 8
		v, ok := tree.Lookup("noc.message_header_size")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(uint32(8)))
	})

	It("reports false for an unknown path instead of panicking", func() {
		_, ok := tree.Lookup("not_a_real_path")
		Expect(ok).To(BeFalse())
	})

	It("sets a field from a same-typed value", func() {
		tree.Set("num_cores", 16)
		Expect(params.NumCores).To(Equal(16))
	})

	It("converts a string value to the field's native type", func() {
		tree.Set("num_cores", "32")
		Expect(params.NumCores).To(Equal(32))

		tree.Set("vector_bypass_l1", "true")
		Expect(params.VectorBypassL1).To(BeTrue())
	})

	It("panics when setting an unknown path", func() {
		Expect(func() { tree.Set("bogus_path", 1) }).To(Panic())
	})
})
