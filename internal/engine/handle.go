package engine

import "fmt"

// Handle identifies an engine slot. The low 32 bits hold the slot index and
// the next 31 bits a generation counter, so a handle is always non-negative
// and a stale handle never resolves to the engine that later reuses its slot.
type Handle int64

// InvalidHandle is returned when initialization fails.
const InvalidHandle Handle = -1

const (
	indexBits     = 32
	indexMask     = 1<<indexBits - 1
	maxGeneration = 1<<31 - 1
)

func makeHandle(index uint32, gen uint32) Handle {
	return Handle(int64(gen)<<indexBits | int64(index))
}

func (h Handle) index() uint32 {
	return uint32(int64(h) & indexMask)
}

func (h Handle) generation() uint32 {
	return uint32(int64(h) >> indexBits)
}

func (h Handle) String() string {
	if h < 0 {
		return "invalid"
	}
	return fmt.Sprintf("%d@%d", h.index(), h.generation())
}
