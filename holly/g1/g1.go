// Package g1 provides the mutual exclusion domain of the G1 bus. The GD-ROM
// drive and the optional ATA device share the bus, so both driver classes
// must serialize on the same lock.
package g1

import (
	"runtime"
	"sync/atomic"

	"github.com/clktmr/dc/debug"
)

// Ticket names a prospective lock owner. Tickets substitute for thread
// identity: an interrupt handler that completes a transfer on behalf of a
// goroutine hands the held lock over to that goroutine's ticket instead of
// unlocking, so no third party can grab the bus in between.
type Ticket int32

// IntrContext marks a transfer issued from interrupt context. There is no
// goroutine to hand the lock to, completion unlocks instead.
const IntrContext Ticket = -1

// A Mutex serializes access to the bus. The zero value is unusable, use
// [NewMutex].
//
// Besides Lock/Unlock it supports two operations ordinary mutexes lack,
// both needed by DMA completion interrupts: TryLock, which fails instead of
// blocking so it is safe in interrupt context, and Handoff, which transfers
// ownership of the held lock to a designated ticket without ever releasing
// it.
type Mutex struct {
	sem    chan struct{}
	owner  atomic.Int32 // ticket that may claim the held lock, 0 otherwise
	ticket atomic.Int32 // ticket allocator
}

func NewMutex() *Mutex {
	return &Mutex{sem: make(chan struct{}, 1)}
}

// Lock blocks until the bus is free.
func (m *Mutex) Lock() {
	m.sem <- struct{}{}
}

// TryLock acquires the bus if it is free and reports whether it did. Safe in
// interrupt context.
func (m *Mutex) TryLock() bool {
	select {
	case m.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases the bus.
func (m *Mutex) Unlock() {
	m.owner.Store(0)
	select {
	case <-m.sem:
	default:
		panic("g1: unlock of unlocked bus")
	}
}

// NewTicket allocates a ticket for a future [Handoff].
func (m *Mutex) NewTicket() Ticket {
	return Ticket(m.ticket.Add(1))
}

// Handoff transfers ownership of the held lock to t. The lock is never
// released: the holder of t proceeds via [Mutex.LockTicket], every other
// caller keeps blocking in Lock.
func (m *Mutex) Handoff(t Ticket) {
	debug.Assert(t > 0, "g1: handoff to invalid ticket")
	m.owner.Store(int32(t))
}

// LockTicket acquires the bus. If the held lock was (or is about to be)
// handed off to t, it is claimed without waiting for other lockers;
// otherwise LockTicket degrades to Lock.
func (m *Mutex) LockTicket(t Ticket) {
	for t > 0 {
		if m.owner.CompareAndSwap(int32(t), 0) {
			return
		}
		// Not handed off yet. The lock may also have been released
		// normally in the meantime.
		if m.TryLock() {
			return
		}
		runtime.Gosched()
	}
	m.Lock()
}

// HandedOff reports whether the held lock is claimable by t.
func (m *Mutex) HandedOff(t Ticket) bool {
	return t > 0 && Ticket(m.owner.Load()) == t
}
