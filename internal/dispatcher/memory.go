package dispatcher

import (
	"runtime"
)

// MemorySampler reports process heap usage as a fraction of system memory
type MemorySampler interface {
	Usage() (float64, error)
}

// systemMemory compares the Go heap with total physical memory
type systemMemory struct{}

// NewSystemMemory returns the default MemorySampler
func NewSystemMemory() MemorySampler {
	return systemMemory{}
}

func (systemMemory) Usage() (float64, error) {
	total, err := totalMemory()
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / float64(total), nil
}
