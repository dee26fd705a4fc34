package fixp

import (
	"math"
	"testing"
)

func TestSatAdd(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint64
		want    uint64
	}{
		{"zero", 0, 0, 0},
		{"simple", 2, 3, 5},
		{"saturates", math.MaxUint64, 1, math.MaxUint64},
		{"saturates both large", math.MaxUint64 - 1, math.MaxUint64 - 1, math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SatAdd(tt.a, tt.b); got != tt.want {
				t.Errorf("SatAdd(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSatSub(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want uint64
	}{
		{"simple", 5, 3, 2},
		{"equal", 7, 7, 0},
		{"underflow clamps", 3, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SatSub(tt.a, tt.b); got != tt.want {
				t.Errorf("SatSub(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSatMul(t *testing.T) {
	if got := SatMul(1<<32, 1<<33); got != math.MaxUint64 {
		t.Errorf("SatMul overflow = %d, want MaxUint64", got)
	}
	if got := SatMul(123, 456); got != 56088 {
		t.Errorf("SatMul(123, 456) = %d, want 56088", got)
	}
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name       string
		a, b, den  uint64
		want       uint64
	}{
		{"exact", 100, 50, 10000, 0},
		{"basis points", 1000, 50, 10000, 5},
		{"large intermediate", math.MaxUint64, 2, 4, math.MaxUint64 / 2},
		{"saturates", math.MaxUint64, math.MaxUint64, 2, math.MaxUint64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MulDiv(tt.a, tt.b, tt.den); got != tt.want {
				t.Errorf("MulDiv(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.den, got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 10, 20); got != 10 {
		t.Errorf("Clamp below = %d, want 10", got)
	}
	if got := Clamp(25, 10, 20); got != 20 {
		t.Errorf("Clamp above = %d, want 20", got)
	}
	if got := Clamp(15, 10, 20); got != 15 {
		t.Errorf("Clamp inside = %d, want 15", got)
	}
}
