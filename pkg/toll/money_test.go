package toll

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"50.0", 5000},
		{"100.0", 10000},
		{"12.75", 1275},
		{"0", 0},
		{"7", 700},
		{".5", 50},
		{" 75.0 ", 7500},
		{"-3.5", -350},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseAmount(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseAmountErrors(t *testing.T) {
	// signs and stray characters inside either component must be rejected,
	// not forwarded to ParseInt
	for _, in := range []string{"", "1.234", "abc", "1.2x", "1.-5", "1.+5", "--1", "+5", "."} {
		if _, err := ParseAmount(in); err == nil {
			t.Fatalf("ParseAmount(%q): expected error", in)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{5000, "50.00"},
		{1275, "12.75"},
		{0, "0.00"},
		{7, "0.07"},
		{-350, "-3.50"},
	}
	for _, c := range cases {
		if got := FormatAmount(c.in); got != c.want {
			t.Fatalf("FormatAmount(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAmountRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 5000, 123456} {
		back, err := ParseAmount(FormatAmount(cents))
		if err != nil {
			t.Fatalf("round trip %d: %v", cents, err)
		}
		if back != cents {
			t.Fatalf("round trip %d came back as %d", cents, back)
		}
	}
}
