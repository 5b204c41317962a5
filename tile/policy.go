package tile

import "fmt"

// CacheDataMappingPolicy selects which bits of a line address determine the
// home tile and bank of a cache request.
type CacheDataMappingPolicy int

// Cache data mapping policies (spec.md §4.2).
const (
	SetInterleaving CacheDataMappingPolicy = iota
	PageToBank
)

// ParseCacheDataMappingPolicy validates a configuration string against the
// closed set of cache mapping policies.
func ParseCacheDataMappingPolicy(s string) (CacheDataMappingPolicy, error) {
	switch s {
	case "set_interleaving":
		return SetInterleaving, nil
	case "page_to_bank":
		return PageToBank, nil
	default:
		return 0, fmt.Errorf("tile: unknown cache data mapping policy %q", s)
	}
}

// ScratchpadMappingPolicy selects how a vector register maps to a bank for
// scratchpad traffic.
type ScratchpadMappingPolicy int

// Scratchpad mapping policies (spec.md §4.2).
const (
	CoreToBank ScratchpadMappingPolicy = iota
	VRegInterleaving
)

// ParseScratchpadMappingPolicy validates a configuration string against the
// closed set of scratchpad mapping policies.
func ParseScratchpadMappingPolicy(s string) (ScratchpadMappingPolicy, error) {
	switch s {
	case "core_to_bank":
		return CoreToBank, nil
	case "vreg_interleaving":
		return VRegInterleaving, nil
	default:
		return 0, fmt.Errorf("tile: unknown scratchpad mapping policy %q", s)
	}
}

// Geometry holds the bit-width derivation spec.md's AccessDirector state
// describes: line/way sizes and the counts derived from them.
type Geometry struct {
	LineSize     uint64
	SizeKB       uint64
	Associativity uint64
	NumTiles     uint64
	BanksPerTile uint64
	NumCores     uint64
	NumVRegsPerCore uint64

	MCShift uint64
	MCMask  uint64

	BlockOffsetBits uint8
	TileBits        uint8
	BankBits        uint8
	SetBits         uint8
	TagBits         uint8
	VRegBits        uint8
	CoreBits        uint8

	NumWays uint64
	WaySize uint64
}

// log2Ceil returns ceil(log2(n)), with log2Ceil(0) == 0 and log2Ceil(1) == 0.
func log2Ceil(n uint64) uint8 {
	if n <= 1 {
		return 0
	}
	var bits uint8
	v := uint64(1)
	for v < n {
		v <<= 1
		bits++
	}
	return bits
}

// NewGeometry derives the bit-width fields from the sizing parameters,
// mirroring AccessDirector::setMemoryInfo in the original implementation.
func NewGeometry(lineSize, sizeKB, assoc, banksPerTile, numTiles, numCores, numVRegsPerCore, mcShift, mcMask uint64) Geometry {
	g := Geometry{
		LineSize:        lineSize,
		SizeKB:          sizeKB,
		Associativity:   assoc,
		NumTiles:        numTiles,
		BanksPerTile:    banksPerTile,
		NumCores:        numCores,
		NumVRegsPerCore: numVRegsPerCore,
		MCShift:         mcShift,
		MCMask:          mcMask,
		NumWays:         assoc,
	}

	g.BlockOffsetBits = log2Ceil(lineSize)
	g.TileBits = log2Ceil(numTiles)
	g.BankBits = log2Ceil(banksPerTile)
	g.VRegBits = log2Ceil(numVRegsPerCore)
	g.CoreBits = log2Ceil(numCores)

	totalSize := sizeKB * 1024 * numTiles
	numSets := totalSize / (assoc * lineSize)
	g.SetBits = log2Ceil(numSets)
	g.TagBits = 64 - (g.SetBits + g.BlockOffsetBits)
	g.WaySize = (sizeKB / assoc) * 1024

	return g
}
