package holly

import "testing"

func TestHandlerChaining(t *testing.T) {
	const evt = EvtGDDMAOverrun

	var calls []string
	old := SetHandler(evt, func(Event, any) { calls = append(calls, "first") }, nil)
	if old.Fn != nil {
		t.Fatalf("fresh event line already had a handler")
	}
	defer RemoveHandler(evt)

	old = SetHandler(evt, func(e Event, _ any) {
		calls = append(calls, "second")
		old.Fn(e, old.Arg)
	}, nil)
	if old.Fn == nil {
		t.Fatal("SetHandler did not return the displaced entry")
	}

	Raise(evt)
	if len(calls) != 2 || calls[0] != "second" || calls[1] != "first" {
		t.Errorf("calls = %v", calls)
	}
}

func TestRaiseUnhandled(t *testing.T) {
	Raise(EvtGDDMAIllAddr) // must not panic
}

func TestInHandler(t *testing.T) {
	const evt = EvtGDDMAOverrun

	if InHandler() {
		t.Fatal("InHandler outside of dispatch")
	}
	var inside bool
	SetHandler(evt, func(Event, any) { inside = InHandler() }, nil)
	defer RemoveHandler(evt)

	Raise(evt)
	if !inside {
		t.Error("InHandler false during dispatch")
	}
	if InHandler() {
		t.Error("InHandler true after dispatch")
	}
}

func TestHandlerArg(t *testing.T) {
	const evt = EvtGDDMAOverrun

	var got any
	SetHandler(evt, func(_ Event, arg any) { got = arg }, 42)
	defer RemoveHandler(evt)

	Raise(evt)
	if got != 42 {
		t.Errorf("arg = %v, want 42", got)
	}
}

func TestVBlankHooks(t *testing.T) {
	var a, b int
	idA := VBlankAdd(func(Event, any) { a++ }, nil)
	idB := VBlankAdd(func(Event, any) { b++ }, nil)
	defer VBlankRemove(idB)

	Raise(EvtVBlankOut)
	if a != 1 || b != 1 {
		t.Fatalf("hooks ran a=%d b=%d, want 1 each", a, b)
	}

	VBlankRemove(idA)
	Raise(EvtVBlankOut)
	if a != 1 || b != 2 {
		t.Errorf("after remove a=%d b=%d, want 1 and 2", a, b)
	}
}
