package sh4

import "testing"

func TestMakePaddedSlice(t *testing.T) {
	for _, size := range []int{1, 31, 32, 33, 2048} {
		buf := MakePaddedSlice[byte](size)
		if len(buf) != size {
			t.Fatalf("len = %d, want %d", len(buf), size)
		}
		if !IsPadded(buf) {
			t.Errorf("size %d: slice not padded", size)
		}
		if AddressSlice(buf)%CacheLineSize != 0 {
			t.Errorf("size %d: start not cache aligned", size)
		}
	}
}

func TestPaddedSliceCopies(t *testing.T) {
	raw := make([]byte, 64)[1:33]
	for i := range raw {
		raw[i] = byte(i)
	}

	padded := PaddedSlice(raw)
	if !IsPadded(padded) {
		t.Fatal("result not padded")
	}
	for i := range raw {
		if padded[i] != raw[i] {
			t.Fatalf("content differs at %d", i)
		}
	}

	already := MakePaddedSlice[byte](32)
	if got := PaddedSlice(already); AddressSlice(got) != AddressSlice(already) {
		t.Error("padded slice was copied needlessly")
	}
}

func TestPhysicalAddress(t *testing.T) {
	if got := PhysicalAddress(P1 | 0x0c00_0000); got != 0x0c00_0000 {
		t.Errorf("got %#x", got)
	}
	if got := PhysicalAddress(P2 | 0x0c00_0000); got != 0x0c00_0000 {
		t.Errorf("got %#x", got)
	}
}

func TestUncached(t *testing.T) {
	if !Uncached(P2 | 0x0c00_0000) {
		t.Error("P2 address reported cached")
	}
	if Uncached(P1 | 0x0c00_0000) {
		t.Error("P1 address reported uncached")
	}
}
