// internal/sampler/probe.go
package sampler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/mwiater/lmperf/internal/session"
)

// SystemProbe reads host CPU and memory plus CPU and RSS of one process.
type SystemProbe struct {
	proc *process.Process
}

// NewSystemProbe watches the process with the given pid; zero means the current process.
func NewSystemProbe(pid int32) (*SystemProbe, error) {
	if pid == 0 {
		pid = int32(os.Getpid())
	}
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	return &SystemProbe{proc: proc}, nil
}

// Sample implements Probe. CPU figures are deltas since the previous call.
func (p *SystemProbe) Sample(ctx context.Context) (session.ResourceSample, error) {
	sample := session.ResourceSample{Timestamp: time.Now()}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return sample, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percents) > 0 {
		sample.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return sample, fmt.Errorf("virtual memory: %w", err)
	}
	sample.MemoryUsedBytes = vm.Used
	sample.MemoryPercent = vm.UsedPercent

	if p.proc != nil {
		if pct, err := p.proc.PercentWithContext(ctx, 0); err == nil {
			sample.ProcessCPUPercent = pct
		}
		if info, err := p.proc.MemoryInfoWithContext(ctx); err == nil && info != nil {
			sample.ProcessRSSBytes = info.RSS
		}
	}
	return sample, nil
}
