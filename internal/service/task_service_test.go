package service

import "testing"

func TestNormalizeTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"07:30", "07:30"},
		{"7:30", "07:30"},
		{"7:5", "07:05"},
		{"0:00", "00:00"},
		{"23:59", "23:59"},
		{" 9:15 ", "09:15"},
	}
	for _, c := range cases {
		got, err := NormalizeTime(c.in)
		if err != nil {
			t.Errorf("NormalizeTime(%q) error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeTime(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeTimeRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "730", "24:00", "12:60", "-1:00", "ab:cd", "12:34:56"} {
		if got, err := NormalizeTime(in); err == nil {
			t.Errorf("NormalizeTime(%q) = %q, want error", in, got)
		}
	}
}
