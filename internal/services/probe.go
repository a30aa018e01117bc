package services

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessProbe reads resource usage of a running process.
type ProcessProbe interface {
	Usage(ctx context.Context, pid int32) (memoryMB, cpuPercent float64, err error)
}

// PsutilProbe reads /proc through gopsutil.
type PsutilProbe struct{}

func (PsutilProbe) Usage(ctx context.Context, pid int32) (float64, float64, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return 0, 0, err
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	cpu, err := p.CPUPercentWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return float64(mem.RSS) / 1024 / 1024, cpu, nil
}
