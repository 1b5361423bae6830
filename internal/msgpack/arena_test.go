package msgpack

import "testing"

func TestArena_AllocatesDownward(t *testing.T) {
	var a Arena
	first := a.Bytes(10)
	second := a.Bytes(10)

	if len(a.bytes.block) != minByteBlock {
		t.Fatalf("block size = %d, want %d", len(a.bytes.block), minByteBlock)
	}
	if a.bytes.top != minByteBlock-20 {
		t.Errorf("top = %d, want %d", a.bytes.top, minByteBlock-20)
	}
	// second lies directly below first.
	if &second[9] != &a.bytes.block[minByteBlock-11] || &first[0] != &a.bytes.block[minByteBlock-10] {
		t.Error("allocations are not contiguous from the block end")
	}
}

func TestArena_GrowRetiresBlock(t *testing.T) {
	var a Arena
	a.Values(1)
	big := a.Values(minValueBlock)

	if len(big) != minValueBlock {
		t.Fatalf("len = %d", len(big))
	}
	if got := len(a.values.retired); got != 1 {
		t.Fatalf("retired blocks = %d, want 1", got)
	}
	if got := len(a.values.block); got != 2*minValueBlock {
		t.Errorf("new block size = %d, want %d", got, 2*minValueBlock)
	}

	huge := a.Pairs(10 * minPairBlock)
	if got := len(a.pairs.block); got != 20*minPairBlock {
		t.Errorf("pair block size = %d, want %d", got, 20*minPairBlock)
	}
	if len(huge) != 10*minPairBlock {
		t.Errorf("len = %d", len(huge))
	}
}

func TestArena_ResetReleasesEverything(t *testing.T) {
	var a Arena
	a.Values(minValueBlock)
	a.Values(minValueBlock)
	a.Reset()

	if len(a.values.retired) != 0 {
		t.Errorf("retired blocks survive Reset: %d", len(a.values.retired))
	}
	if a.values.top != len(a.values.block) {
		t.Errorf("top = %d, want %d", a.values.top, len(a.values.block))
	}

	vals := a.Values(4)
	for i, v := range vals {
		if v.Kind() != Invalid {
			t.Errorf("value %d not zeroed: %v", i, v.Kind())
		}
	}
}

func TestArena_ZeroLength(t *testing.T) {
	var a Arena
	if a.Bytes(0) != nil || a.Values(0) != nil || a.Pairs(0) != nil {
		t.Error("zero-length allocations should be nil")
	}
	if a.bytes.block != nil {
		t.Error("zero-length allocation created a block")
	}
}
