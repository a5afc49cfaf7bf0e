package bits_test

import (
	"testing"

	"malhf/pkg/bits"
)

func TestSetAndTestBit(t *testing.T) {
	var v bits.Bits
	for _, i := range []int{0, 1, 7, 31} {
		v = bits.SetBit(v, i)
		if !bits.BitIsSet(v, i) {
			t.Errorf("expected bit %d to be set", i)
		}
	}
	v = bits.ClearBit(v, 7)
	if bits.BitIsSet(v, 7) {
		t.Error("expected bit 7 to be cleared")
	}
	if !bits.BitIsSet(v, 31) {
		t.Error("expected bit 31 to remain set")
	}
}

func TestGetLower(t *testing.T) {
	v := bits.Bits(0b1011010)
	tests := []struct {
		k    int
		want bits.Bits
	}{
		{0, 0},
		{1, 0},
		{3, 0b010},
		{7, 0b1011010},
		{32, 0b1011010},
	}
	for _, tt := range tests {
		if got := bits.GetLower(v, tt.k); got != tt.want {
			t.Errorf("GetLower(%b, %d) = %b, want %b", v, tt.k, got, tt.want)
		}
	}
}

func TestStringFormatsMSBFirst(t *testing.T) {
	v := bits.SetBit(bits.SetBit(0, 0), 31)
	s := bits.String(v)
	if len(s) != 32 {
		t.Fatalf("expected 32-char string, got %d", len(s))
	}
	if s[0] != '1' || s[31] != '1' {
		t.Errorf("expected MSB and LSB set in %q", s)
	}
}

func TestOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range bit index")
		}
	}()
	bits.SetBit(0, 32)
}
