package tile

// Builder assembles a Tile from its geometry, policies and collaborators,
// following the value-receiver WithX().Build() idiom used throughout
// this codebase's device construction.
type Builder struct {
	id                int
	coresPerTile      int
	banksPerTile      int
	numNetworks       int
	arbiterQueueDepth int

	geometry         Geometry
	cachePolicy      CacheDataMappingPolicy
	scratchpadPolicy ScratchpadMappingPolicy

	injector NoCInjector
	sink     RequestSink
	logger   RequestLogger

	hitLatency, missLatency uint64
	maxMSHRs                int

	l3Enabled                   bool
	l3LineSize, l3SizeKB, l3Assoc uint64
	l3HitLatency, l3MissLatency uint64
	l3MaxMSHRs                  int
}

// NewBuilder returns a Builder with the defaults spec.md's worked examples
// assume: queue depth 4, no tracing.
func NewBuilder() Builder {
	return Builder{
		numNetworks:       1,
		arbiterQueueDepth: 4,
		hitLatency:        10,
		missLatency:       1,
		maxMSHRs:          16,
	}
}

// WithID sets the tile's identity.
func (b Builder) WithID(id int) Builder {
	b.id = id
	return b
}

// WithTopology sets the per-tile core and bank counts.
func (b Builder) WithTopology(coresPerTile, banksPerTile int) Builder {
	b.coresPerTile = coresPerTile
	b.banksPerTile = banksPerTile
	return b
}

// WithNetworks sets how many independent NoC networks the arbiter feeds.
func (b Builder) WithNetworks(n int) Builder {
	b.numNetworks = n
	return b
}

// WithArbiterQueueDepth sets the per-input FIFO depth on the arbiter.
func (b Builder) WithArbiterQueueDepth(q int) Builder {
	b.arbiterQueueDepth = q
	return b
}

// WithGeometry sets the derived address-mapping bit widths.
func (b Builder) WithGeometry(g Geometry) Builder {
	b.geometry = g
	return b
}

// WithPolicies sets the cache and scratchpad mapping policies.
func (b Builder) WithPolicies(cache CacheDataMappingPolicy, scratchpad ScratchpadMappingPolicy) Builder {
	b.cachePolicy = cache
	b.scratchpadPolicy = scratchpad
	return b
}

// WithNoCInjector sets the collaborator the arbiter hands admitted NoC
// traffic to.
func (b Builder) WithNoCInjector(injector NoCInjector) Builder {
	b.injector = injector
	return b
}

// WithSink sets the collaborator notified when a request or scratchpad op
// finishes and targets this tile.
func (b Builder) WithSink(sink RequestSink) Builder {
	b.sink = sink
	return b
}

// WithLogger sets the optional trace sink.
func (b Builder) WithLogger(logger RequestLogger) Builder {
	b.logger = logger
	return b
}

// WithBankLatencies overrides every bank's hit/miss latency.
func (b Builder) WithBankLatencies(hit, miss uint64) Builder {
	b.hitLatency, b.missLatency = hit, miss
	return b
}

// WithMaxMSHRs overrides every bank's MSHR capacity.
func (b Builder) WithMaxMSHRs(n int) Builder {
	b.maxMSHRs = n
	return b
}

// WithL3 enables the optional last-level tier (architecture.l3_enabled) and
// sets its own line size, capacity and associativity, independent of the L2
// geometry.
func (b Builder) WithL3(lineSize, sizeKB, assoc uint64) Builder {
	b.l3Enabled = true
	b.l3LineSize, b.l3SizeKB, b.l3Assoc = lineSize, sizeKB, assoc
	return b
}

// WithL3Latencies overrides the L3 tier's hit/miss latencies and MSHR
// capacity; only meaningful once WithL3 has enabled the tier.
func (b Builder) WithL3Latencies(hit, miss uint64, maxMSHRs int) Builder {
	b.l3HitLatency, b.l3MissLatency, b.l3MaxMSHRs = hit, miss, maxMSHRs
	return b
}

// Build constructs the Tile.
func (b Builder) Build() *Tile {
	t := NewTile(
		b.id, b.coresPerTile, b.banksPerTile, b.numNetworks, b.arbiterQueueDepth,
		b.geometry, b.cachePolicy, b.scratchpadPolicy,
		b.injector, b.sink, b.logger,
	)

	for i := 0; i < b.banksPerTile; i++ {
		bank := t.Bank(i)
		bank.SetLatencies(b.hitLatency, b.missLatency)
		bank.SetMaxMSHRs(b.maxMSHRs)
	}

	if b.l3Enabled {
		l3 := NewL3Bank(b.id, b.l3LineSize, b.l3SizeKB, b.l3Assoc, t)
		if b.l3HitLatency != 0 || b.l3MissLatency != 0 {
			l3.SetLatencies(b.l3HitLatency, b.l3MissLatency)
		}
		if b.l3MaxMSHRs != 0 {
			l3.SetMaxMSHRs(b.l3MaxMSHRs)
		}
		t.SetL3(l3)
	}

	return t
}
