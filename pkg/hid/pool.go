package hid

// PoolCapacity is the hard ceiling on simultaneously attached devices.
const PoolCapacity = 128

// HandleSlot is the guest-visible descriptor of an attached device. Exactly
// one live slot exists per attached device; the slot's lifetime equals the
// device's attached lifetime. Slots are identified by pool index, which is
// stable for the process lifetime.
type HandleSlot struct {
	Handle            uint32
	VendorID          uint16
	ProductID         uint16
	InterfaceIndex    uint8
	InterfaceSubClass uint8
	Protocol          uint8
	MaxPacketSizeRX   uint16
	MaxPacketSizeTX   uint16

	index int
}

// handlePool is a fixed-capacity table of handle slots with a FIFO
// free-index queue. It has no locking of its own; the bus lock serializes
// all access.
type handlePool struct {
	slots [PoolCapacity]HandleSlot
	free  []int
}

// newHandlePool returns a pool with every slot free.
func newHandlePool() *handlePool {
	p := &handlePool{free: make([]int, 0, PoolCapacity)}
	for i := range p.slots {
		p.slots[i].index = i
		p.free = append(p.free, i)
	}
	return p
}

// acquire pops the next free slot. Returns false when the pool is
// exhausted; the caller surfaces that as an attach failure.
func (p *handlePool) acquire() (*HandleSlot, bool) {
	if len(p.free) == 0 {
		return nil, false
	}
	index := p.free[0]
	p.free = p.free[1:]
	return &p.slots[index], true
}

// release clears the slot and pushes its index back on the free queue.
func (p *handlePool) release(slot *HandleSlot) {
	*slot = HandleSlot{index: slot.index}
	p.free = append(p.free, slot.index)
}

// freeCount returns the number of free slots.
func (p *handlePool) freeCount() int {
	return len(p.free)
}
