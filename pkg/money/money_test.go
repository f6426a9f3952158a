package money

import "testing"

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{12.5 * 2, 25.00},
		{30.0 * 0.1, 3.00},
		{0.1 + 0.2, 0.30},
		{67.005, 67.0}, // %.2f 对 67.005 的二进制表示向下取
		{0, 0},
		{99.999, 100.00},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Errorf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(45.0); got != "45.00" {
		t.Errorf("Format(45.0) = %q, want 45.00", got)
	}
	if got := Format(3.1); got != "3.10" {
		t.Errorf("Format(3.1) = %q, want 3.10", got)
	}
}

func TestToCents(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{25.00, 2500},
		{0.01, 1},
		{45.0, 4500},
		{12.50, 1250},
		{19.99, 1999},
	}
	for _, c := range cases {
		if got := ToCents(c.in); got != c.want {
			t.Errorf("ToCents(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}
