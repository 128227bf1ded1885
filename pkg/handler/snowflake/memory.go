package snowflake

import (
	"context"
	"runtime/debug"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryProbe reports the memory currently available to the process, in bytes.
type MemoryProbe func(ctx context.Context) (uint64, error)

// SystemMemory reads available memory from the operating system.
func SystemMemory(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// MemoryPool is an allocator whose unused memory can be handed back.
type MemoryPool interface {
	BackendName() string
	ReleaseUnused()
}

// releasableBackend is the pool backend that is released after every query.
const releasableBackend = "go"

// RuntimePool returns freed Go heap memory to the operating system.
type RuntimePool struct{}

// BackendName implements MemoryPool.
func (RuntimePool) BackendName() string { return releasableBackend }

// ReleaseUnused implements MemoryPool.
func (RuntimePool) ReleaseUnused() { debug.FreeOSMemory() }

// memoryGuard decides once per query whether the rest of a result fits in memory.
type memoryGuard struct {
	threshold int64
	fraction  float64
	probe     MemoryProbe

	done bool
}

// guardEstimate is the outcome of a memory check.
type guardEstimate struct {
	AccumulatedRows  int64
	AccumulatedBytes int64
	TotalRows        int64
	EstimatedBytes   float64
	AvailableBytes   uint64
}

// exceeded reports whether the estimate is above the allowed share of memory.
func (e guardEstimate) exceeded(fraction float64) bool {
	return e.EstimatedBytes > fraction*float64(e.AvailableBytes)
}

// check runs the estimate the first time accumulated rows exceed the
// threshold. It returns ok=false when no estimate was made.
func (g *memoryGuard) check(ctx context.Context, accumulatedRows, accumulatedBytes, totalRows int64) (guardEstimate, bool, error) {
	if g.done || accumulatedRows <= g.threshold {
		return guardEstimate{}, false, nil
	}
	g.done = true

	available, err := g.probe(ctx)
	if err != nil {
		return guardEstimate{}, false, err
	}

	remaining := totalRows - accumulatedRows
	if remaining < 0 {
		remaining = 0
	}
	return guardEstimate{
		AccumulatedRows:  accumulatedRows,
		AccumulatedBytes: accumulatedBytes,
		TotalRows:        totalRows,
		EstimatedBytes:   float64(remaining) / float64(accumulatedRows) * float64(accumulatedBytes),
		AvailableBytes:   available,
	}, true, nil
}
