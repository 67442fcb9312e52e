package cpu

import (
	"math"
	"testing"
)

func TestFClassKnownValues(t *testing.T) {
	tests := []struct {
		name string
		bits uint32
		want uint32
	}{
		{"-Inf", 0xff800000, FClassNegInf},
		{"+Inf", 0x7f800000, FClassPosInf},
		{"-0", 0x80000000, FClassNegZero},
		{"+0", 0x00000000, FClassPosZero},
		{"-1.0 normal", math.Float32bits(-1.0), FClassNegNormal},
		{"+1.0 normal", math.Float32bits(1.0), FClassPosNormal},
		{"-subnormal", 0x807fffff & 0x807fffff, FClassNegSubnorm},
		{"+subnormal", 0x00000001, FClassPosSubnorm},
		{"signaling NaN", 0x7f800001, FClassSignalingNaN},
		{"quiet NaN", 0x7fc00000, FClassQuietNaN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FClass(tt.bits); got != tt.want {
				t.Errorf("FClass(%#x) = %#x, want %#x", tt.bits, got, tt.want)
			}
		})
	}
}

func TestFClassExactlyOneBitSet(t *testing.T) {
	inputs := []uint32{
		0, 1, 0x7f800000, 0xff800000, 0x80000000, 0x7fc00000, 0x7f800001,
		0xffc00000, 0xff800001, 0x3f800000, 0xbf800000, 0x007fffff, 0x807fffff,
		0xffffffff, 0x7fffffff,
	}
	for _, bits := range inputs {
		got := FClass(bits)
		if got == 0 || got&(got-1) != 0 {
			t.Errorf("FClass(%#x) = %#x, want exactly one bit set", bits, got)
		}
	}
}

func TestFClassSignalingVsQuietNaNBoundary(t *testing.T) {
	// Fraction top bit (bit 22) clear -> signaling, set -> quiet.
	sNaN := uint32(0x7f800001) // frac = 1, top bit clear
	qNaN := uint32(0x7fc00001) // frac has top bit set
	if got := FClass(sNaN); got != FClassSignalingNaN {
		t.Errorf("FClass(%#x) = %#x, want signaling NaN", sNaN, got)
	}
	if got := FClass(qNaN); got != FClassQuietNaN {
		t.Errorf("FClass(%#x) = %#x, want quiet NaN", qNaN, got)
	}
}
