package mcpu

// Builder assembles a Wrapper via a value-receiver chain.
type Builder struct {
	tileID             int
	enabled            bool
	lineSize           uint64
	latency            uint64
	maxScratchpadBytes uint64
	injector           NoCInjector
	mc                 MemoryPort
}

// NewBuilder returns a Builder seeded with the same defaults NewWrapper
// would apply.
func NewBuilder() Builder {
	return Builder{
		enabled:            true,
		lineSize:           64,
		latency:            1,
		maxScratchpadBytes: defaultMaxScratchpadBytes,
	}
}

func (b Builder) WithTileID(id int) Builder { b.tileID = id; return b }

func (b Builder) WithEnabled(enabled bool) Builder { b.enabled = enabled; return b }

func (b Builder) WithLineSize(n uint64) Builder { b.lineSize = n; return b }

func (b Builder) WithLatency(n uint64) Builder { b.latency = n; return b }

func (b Builder) WithMaxScratchpadBytes(n uint64) Builder { b.maxScratchpadBytes = n; return b }

func (b Builder) WithNoCInjector(i NoCInjector) Builder { b.injector = i; return b }

func (b Builder) WithMemoryPort(p MemoryPort) Builder { b.mc = p; return b }

// Build constructs the Wrapper.
func (b Builder) Build() *Wrapper {
	w := NewWrapper(b.tileID, b.injector, b.mc)
	w.Enabled = b.enabled
	w.LineSize = b.lineSize
	w.Latency = b.latency
	w.MaxScratchpadBytes = b.maxScratchpadBytes
	return w
}
