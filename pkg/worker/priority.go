package worker

import "fmt"

// Priority is a thread scheduling priority on the runtime's 1..11 scale.
type Priority int

const (
	MinPriority      Priority = 1
	NormPriority     Priority = 5
	NearMaxPriority  Priority = 9
	MaxPriority      Priority = 10
	CriticalPriority Priority = 11
)

// niceByPriority maps a Priority to a Linux nice value. Index 0 is unused.
var niceByPriority = [...]int{0, 4, 3, 2, 1, 0, -1, -2, -3, -4, -5, -5}

// Valid reports whether p is on the supported scale.
func (p Priority) Valid() bool {
	return p >= MinPriority && p <= CriticalPriority
}

// Nice returns the nice value the goroutine facility applies for p.
func (p Priority) Nice() int {
	if !p.Valid() {
		return 0
	}
	return niceByPriority[p]
}

func (p Priority) String() string {
	switch p {
	case MinPriority:
		return "min"
	case NormPriority:
		return "norm"
	case NearMaxPriority:
		return "near-max"
	case MaxPriority:
		return "max"
	case CriticalPriority:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Kind names the role of a thread; facilities may use it for naming or
// placement.
type Kind int

const (
	KindWorker Kind = iota
	KindConcurrentGC
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindWorker:
		return "worker"
	case KindConcurrentGC:
		return "concurrent-gc"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}
