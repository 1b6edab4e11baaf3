package holly

import (
	"sync"
	"sync/atomic"
)

// Vertical blank hooks. Peripheral drivers use them as a low-overhead
// polling tick to advance commands nobody is actively blocked on.

type vblankHook struct {
	id  int
	fn  Handler
	arg any
}

var vblank struct {
	sync.Mutex
	hooks     atomic.Pointer[[]vblankHook] // copy-on-write, read by the handler
	nextID    int
	installed bool
}

// VBlankAdd registers fn to be called on every vertical blank and returns an
// id for [VBlankRemove]. The first registration hooks the vblank-out event.
func VBlankAdd(fn Handler, arg any) int {
	vblank.Lock()
	defer vblank.Unlock()

	if !vblank.installed {
		SetHandler(EvtVBlankOut, vblankDispatch, nil)
		Enable(EvtVBlankOut, IRQ9)
		vblank.installed = true
	}

	vblank.nextID++
	hooks := []vblankHook{}
	if p := vblank.hooks.Load(); p != nil {
		hooks = append(hooks, *p...)
	}
	hooks = append(hooks, vblankHook{vblank.nextID, fn, arg})
	vblank.hooks.Store(&hooks)
	return vblank.nextID
}

// VBlankRemove unregisters a hook previously added with [VBlankAdd].
func VBlankRemove(id int) {
	vblank.Lock()
	defer vblank.Unlock()

	old := vblank.hooks.Load()
	if old == nil {
		return
	}
	hooks := make([]vblankHook, 0, len(*old))
	for _, h := range *old {
		if h.id != id {
			hooks = append(hooks, h)
		}
	}
	vblank.hooks.Store(&hooks)
}

//go:nosplit
func vblankDispatch(evt Event, _ any) {
	Ack(evt)
	if hooks := vblank.hooks.Load(); hooks != nil {
		for _, h := range *hooks {
			h.fn(evt, h.arg)
		}
	}
}
