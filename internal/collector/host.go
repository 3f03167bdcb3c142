package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// cpuSampleWindow is how long the CPU sampler measures for. Short enough
// to be negligible against the tick interval, long enough for a stable
// reading.
const cpuSampleWindow = 500 * time.Millisecond

// sampleHostMetrics reads CPU load and memory usage of the monitor host.
// Either value is nil when its sampler fails; a sampler failure never
// fails the tick.
func sampleHostMetrics(ctx context.Context) (cpuPct, memPct *float64) {
	if percents, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false); err == nil && len(percents) > 0 {
		cpuPct = &percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		used := vm.UsedPercent
		memPct = &used
	}

	return cpuPct, memPct
}
