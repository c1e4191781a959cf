package metrics

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessSampler refreshes the process CPU/memory gauges on its own ticker
// (StartPeriodicSampling, which the maintenance scheduler starts), smoothing CPU with an exponential moving average the way
// adred-codev-ws_poc's SystemMetrics does, so a single noisy sample doesn't
// cause the gauge to spike and immediately drop back.
type ProcessSampler struct {
	mu         sync.Mutex
	proc       *process.Process
	cpuPercent float64
}

// NewProcessSampler resolves the current process for repeated sampling.
// A failure to resolve it (unusual, but possible in constrained sandboxes)
// degrades to a no-op sampler rather than failing startup.
func NewProcessSampler() *ProcessSampler {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return &ProcessSampler{}
	}
	return &ProcessSampler{proc: p}
}

// Sample refreshes ProcessCPUPercent and ProcessMemoryBytes. It runs on the
// goroutine StartPeriodicSampling starts; internally locked in case a
// caller also wants it from a health-check endpoint.
func (s *ProcessSampler) Sample() {
	if s.proc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if pct, err := s.proc.CPUPercent(); err == nil {
		const alpha = 0.3
		if s.cpuPercent == 0 {
			s.cpuPercent = pct
		} else {
			s.cpuPercent = alpha*pct + (1-alpha)*s.cpuPercent
		}
		ProcessCPUPercent.Set(s.cpuPercent)
	}

	if mem, err := s.proc.MemoryInfo(); err == nil && mem != nil {
		ProcessMemoryBytes.Set(float64(mem.RSS))
	}
}

// StartPeriodicSampling runs Sample on the given interval until stop is closed.
func (s *ProcessSampler) StartPeriodicSampling(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sample()
			case <-stop:
				return
			}
		}
	}()
}
