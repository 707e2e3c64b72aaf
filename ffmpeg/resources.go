package ffmpeg

import (
	"errors"
	"fmt"
	"log"
	"time"

	"video2voice/config"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// ErrInsufficientResources is returned by ResourceLimits.Check.
var ErrInsufficientResources = errors.New("insufficient system resources")

// ResourceLimits gates new work on host load. A zero field disables that check.
type ResourceLimits struct {
	IdleCPU  float64 // minimum idle CPU percent
	FreeMem  int64
	FreeDisk int64
	Dir      string // filesystem checked for FreeDisk
}

func LimitsFromConfig(cfg *config.Config) ResourceLimits {
	return ResourceLimits{
		IdleCPU:  cfg.ThrottleCPU,
		FreeMem:  cfg.ThrottleFreeMem,
		FreeDisk: cfg.ThrottleFreeDisk,
		Dir:      cfg.OutputDir,
	}
}

// Check verifies that the system has enough free resources to start a new job.
func (l ResourceLimits) Check() error {
	if l.IdleCPU > 0 {
		p, err := cpu.Percent(200*time.Millisecond, false)
		if err != nil {
			log.Printf("Warning: could not get CPU usage: %v", err)
		} else if len(p) > 0 && p[0] > (100.0-l.IdleCPU) {
			return fmt.Errorf("%w: not enough idle CPU. Current usage: %.2f%%, Idle threshold: %.2f%%", ErrInsufficientResources, p[0], l.IdleCPU)
		}
	}

	if l.FreeMem > 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			log.Printf("Warning: could not get memory usage: %v", err)
		} else if vm.Available < uint64(l.FreeMem) {
			return fmt.Errorf("%w: not enough free memory. Available: %d, Required: %d", ErrInsufficientResources, vm.Available, l.FreeMem)
		}
	}

	if l.FreeDisk > 0 && l.Dir != "" {
		d, err := disk.Usage(l.Dir)
		if err != nil {
			log.Printf("Warning: could not get disk usage for %s: %v", l.Dir, err)
		} else if d.Free < uint64(l.FreeDisk) {
			return fmt.Errorf("%w: not enough free disk space. Available: %d, Required: %d", ErrInsufficientResources, d.Free, l.FreeDisk)
		}
	}
	return nil
}
