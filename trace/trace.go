// Package trace writes the newline-delimited execution trace (spec.md §6):
// one record per cycle/core/kind tuple, plus the per-thousand-instruction
// heartbeat. A nil *Writer disables tracing entirely, mirroring the
// original's LogCapable trace_ boolean guard.
package trace

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sarchlab/coyote-go/orchestrator"
)

// LevelTrace sits above slog's built-in levels so a trace-only handler can
// be filtered independently of ordinary Info/Warn logging.
const LevelTrace slog.Level = slog.LevelInfo + 4

// Kind is the closed set of record kinds spec.md §6 names.
type Kind string

// Record kinds.
const (
	L2Read            Kind = "l2_read"
	L2Write           Kind = "l2_write"
	L2Miss            Kind = "l2_miss"
	L2Hit             Kind = "l2_hit"
	L2Writeback       Kind = "l2_wb"
	LLCRead           Kind = "llc_read"
	LLCWrite          Kind = "llc_write"
	LocalBankRequest  Kind = "local_bank_request"
	RemoteBankRequest Kind = "remote_bank_request"
	TileSendAck       Kind = "tile_send_ack"
	NoCSource         Kind = "noc_src"
	NoCDestination    Kind = "noc_dst"
	MissServiced      Kind = "miss_serviced"
	MissOnEvicted     Kind = "miss_on_evicted"
	Stall             Kind = "stall"
	Resume            Kind = "resume"
	KI                Kind = "ki"

	// Per-message waypoint kinds (SPEC_FULL.md §4 supplement), each emitted
	// as a record of its own by the matching Log* method.
	ReachArbiter  Kind = "reach-arbiter"
	ReachCacheBank Kind = "reach-cache-bank"
	ReachMC       Kind = "reach-MC"
	MCIssue       Kind = "MC-issue"
)

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(s), "_", " "))
}

// Writer emits trace records through an slog.Logger. A nil *Writer is valid
// and every method on it becomes a no-op, so callers can pass it through
// unconditionally instead of threading an `if traceEnabled` check everywhere.
type Writer struct {
	logger         *slog.Logger
	instructionsKI uint64
}

// New builds a Writer around logger. Pass slog.New(slog.NewTextHandler(w,
// &slog.HandlerOptions{Level: trace.LevelTrace})) to get one trace record
// per output line.
func New(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

func (w *Writer) emit(kind Kind, cycle uint64, core int, pc uint32, a, b any) {
	if w == nil || w.logger == nil {
		return
	}
	w.logger.Log(context.Background(), LevelTrace, string(kind),
		"cycle", cycle, "core", core, "pc", pc, "kind", string(kind), "a", a, "b", b)
}

// LogLocalBankRequest implements tile.RequestLogger.
func (w *Writer) LogLocalBankRequest(cycle uint64, coreID int, pc uint32, bank int, address uint64) {
	w.emit(LocalBankRequest, cycle, coreID, pc, bank, address)
}

// LogRemoteBankRequest implements tile.RequestLogger.
func (w *Writer) LogRemoteBankRequest(cycle uint64, coreID int, pc uint32, homeTile int, address uint64) {
	w.emit(RemoteBankRequest, cycle, coreID, pc, homeTile, address)
}

// LogMissServiced implements tile.RequestLogger.
func (w *Writer) LogMissServiced(cycle uint64, coreID int, pc uint32, address uint64) {
	w.emit(MissServiced, cycle, coreID, pc, address, nil)
}

// LogTileSendAck implements tile.RequestLogger.
func (w *Writer) LogTileSendAck(cycle uint64, coreID int, pc uint32, sourceTile int, address uint64) {
	w.emit(TileSendAck, cycle, coreID, pc, sourceTile, address)
}

// LogMissOnEvicted records a miss that landed on a just-evicted line,
// carrying the evicted line's age in cycles as its second field.
func (w *Writer) LogMissOnEvicted(cycle uint64, coreID int, pc uint32, address uint64, evictedAge uint64) {
	w.emit(MissOnEvicted, cycle, coreID, pc, address, evictedAge)
}

// LogInstruction implements orchestrator.Logger. Every thousandth
// instruction retired (across all cores) also emits a `ki` heartbeat record.
func (w *Writer) LogInstruction(cycle uint64, core int) {
	if w == nil {
		return
	}
	w.instructionsKI++
	if w.instructionsKI%1000 == 0 {
		w.emit(KI, cycle, core, 0, w.instructionsKI/1000, nil)
	}
}

// LogStall implements orchestrator.Logger.
func (w *Writer) LogStall(cycle uint64, core int, reason orchestrator.StallReason) {
	w.emit(Stall, cycle, core, 0, titleCase(reason.String()), nil)
}

// LogResume implements orchestrator.Logger.
func (w *Writer) LogResume(cycle uint64, core int) {
	w.emit(Resume, cycle, core, 0, nil, nil)
}

// LogNoCSource records a message's departure from its source PE.
func (w *Writer) LogNoCSource(cycle uint64, core int, pc uint32, destination int) {
	w.emit(NoCSource, cycle, core, pc, destination, nil)
}

// LogNoCDestination records a message's arrival at its destination PE.
func (w *Writer) LogNoCDestination(cycle uint64, core int, pc uint32, source int) {
	w.emit(NoCDestination, cycle, core, pc, source, nil)
}

// LogReachArbiter implements tile.RequestLogger.
func (w *Writer) LogReachArbiter(cycle uint64, coreID int, pc uint32, address uint64) {
	w.emit(ReachArbiter, cycle, coreID, pc, address, nil)
}

// LogReachCacheBank implements tile.RequestLogger.
func (w *Writer) LogReachCacheBank(cycle uint64, coreID int, pc uint32, address uint64) {
	w.emit(ReachCacheBank, cycle, coreID, pc, address, nil)
}

// LogReachMC implements tile.RequestLogger.
func (w *Writer) LogReachMC(cycle uint64, coreID int, pc uint32, address uint64) {
	w.emit(ReachMC, cycle, coreID, pc, address, nil)
}

// LogMCIssue implements tile.RequestLogger.
func (w *Writer) LogMCIssue(cycle uint64, coreID int, pc uint32, address uint64) {
	w.emit(MCIssue, cycle, coreID, pc, address, nil)
}

// LogLLCRead implements tile.RequestLogger.
func (w *Writer) LogLLCRead(cycle uint64, coreID int, pc uint32, address uint64) {
	w.emit(LLCRead, cycle, coreID, pc, address, nil)
}

// LogLLCWrite implements tile.RequestLogger.
func (w *Writer) LogLLCWrite(cycle uint64, coreID int, pc uint32, address uint64) {
	w.emit(LLCWrite, cycle, coreID, pc, address, nil)
}
