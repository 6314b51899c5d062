package mathx

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int8 }{
		{5, 0, 14, 5},
		{-3, 0, 14, 0},
		{21, 2, 17, 17},
		{9, 14, 0, 9}, // swapped bounds
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%d,%d,%d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestBetween(t *testing.T) {
	if !Between(uint32(904_000_000), 137_000_000, 1_020_000_000) {
		t.Fatal("904 MHz in band")
	}
	if Between(12, 7, 11) {
		t.Fatal("12 outside 7..11")
	}
}

func TestCeilDiv(t *testing.T) {
	if got := CeilDiv(int64(417), 36); got != 12 {
		t.Fatalf("CeilDiv = %d", got)
	}
	if got := CeilDiv(uint8(8), 4); got != 2 {
		t.Fatalf("exact CeilDiv = %d", got)
	}
	if got := CeilDiv(5, 0); got != 0 {
		t.Fatalf("div by zero = %d", got)
	}
}
