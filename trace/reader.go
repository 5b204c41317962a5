package trace

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/orchestrator"
)

// Reader streams parsed trace records out of a CSV file, grounded on
// TraceDrivenSimulationOrchestrator::parse: one
// timestamp,core,pc,type,size,address record per line (pc and address in
// hex, everything else decimal), type one of l2_read/memory_read (a LOAD) or
// l2_write/memory_write (a STORE). The first line is always a header and is
// discarded.
//
// There is no CSV library among this tree's dependencies or the rest of the
// reference pack, so this reads with encoding/csv directly rather than
// introducing an unfamiliar one for a single six-column format.
type Reader struct {
	csv *csv.Reader
}

// NewReader wraps r and consumes its header line immediately.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = 6
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("trace: reading header: %w", err)
	}
	return &Reader{csv: cr}, nil
}

// Next parses the next record. It returns io.EOF (wrapped through
// encoding/csv) once the trace is exhausted, matching orchestrator.TraceReader.
func (r *Reader) Next() (orchestrator.Access, error) {
	fields, err := r.csv.Read()
	if err != nil {
		return orchestrator.Access{}, err
	}

	timestamp, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return orchestrator.Access{}, fmt.Errorf("trace: bad timestamp %q: %w", fields[0], err)
	}
	core, err := strconv.Atoi(fields[1])
	if err != nil {
		return orchestrator.Access{}, fmt.Errorf("trace: bad core %q: %w", fields[1], err)
	}
	pc, err := strconv.ParseUint(fields[2], 16, 32)
	if err != nil {
		return orchestrator.Access{}, fmt.Errorf("trace: bad pc %q: %w", fields[2], err)
	}

	var typ event.CacheRequestType
	switch fields[3] {
	case "l2_read", "memory_read":
		typ = event.Load
	case "l2_write", "memory_write":
		typ = event.Store
	default:
		return orchestrator.Access{}, fmt.Errorf("trace: unexpected event type %q", fields[3])
	}

	size, err := strconv.ParseUint(fields[4], 10, 32)
	if err != nil {
		return orchestrator.Access{}, fmt.Errorf("trace: bad size %q: %w", fields[4], err)
	}
	address, err := strconv.ParseUint(fields[5], 16, 64)
	if err != nil {
		return orchestrator.Access{}, fmt.Errorf("trace: bad address %q: %w", fields[5], err)
	}

	return orchestrator.Access{
		Timestamp: timestamp,
		Core:      core,
		PC:        uint32(pc),
		Type:      typ,
		Size:      uint32(size),
		Address:   address,
	}, nil
}
