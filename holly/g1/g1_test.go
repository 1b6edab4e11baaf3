package g1

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestMutexBasics(t *testing.T) {
	m := NewMutex()
	m.Lock()
	if m.TryLock() {
		t.Fatal("TryLock succeeded on held mutex")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatal("TryLock failed on free mutex")
	}
	m.Unlock()
}

func TestMutexUnlockUnlocked(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("unlock of unlocked mutex did not panic")
		}
	}()
	NewMutex().Unlock()
}

func TestMutexHandoff(t *testing.T) {
	m := NewMutex()
	m.Lock()
	tk := m.NewTicket()

	var got atomic.Bool
	go func() {
		m.LockTicket(tk)
		got.Store(true)
	}()

	// A competing locker must stay blocked across the handoff.
	var stolen atomic.Bool
	go func() {
		m.Lock()
		stolen.Store(true)
		m.Unlock()
	}()

	time.Sleep(time.Millisecond)
	m.Handoff(tk)
	for !got.Load() {
		runtime.Gosched()
	}
	if stolen.Load() {
		t.Fatal("third party acquired the mutex during handoff")
	}
	if m.TryLock() {
		t.Fatal("mutex free after handoff claim")
	}

	m.Unlock()
	for !stolen.Load() {
		runtime.Gosched()
	}
}

func TestLockTicketBeforeHandoff(t *testing.T) {
	// The claimant may arrive before the handoff happens.
	m := NewMutex()
	m.Lock()
	tk := m.NewTicket()

	claimed := make(chan struct{})
	go func() {
		m.LockTicket(tk)
		close(claimed)
	}()

	time.Sleep(time.Millisecond)
	m.Handoff(tk)
	<-claimed
	m.Unlock()
}

func TestLockTicketWithoutHandoff(t *testing.T) {
	// Zero and unrelated tickets degrade to a plain lock: a normal unlock
	// must satisfy them.
	m := NewMutex()
	m.Lock()

	claimed := make(chan struct{})
	go func() {
		m.LockTicket(m.NewTicket())
		m.Unlock()
		close(claimed)
	}()

	time.Sleep(time.Millisecond)
	m.Unlock()
	<-claimed

	m.LockTicket(0)
	m.Unlock()
}

func TestHandedOff(t *testing.T) {
	m := NewMutex()
	m.Lock()
	tk := m.NewTicket()
	if m.HandedOff(tk) {
		t.Fatal("unhandled ticket reported as handed off")
	}
	m.Handoff(tk)
	if !m.HandedOff(tk) {
		t.Fatal("handoff not visible")
	}
	if m.HandedOff(tk + 1) {
		t.Fatal("foreign ticket reported as handed off")
	}
	m.LockTicket(tk)
	m.Unlock()
}
