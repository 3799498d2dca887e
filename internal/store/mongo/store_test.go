package mongo

import "testing"

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		year, month int
		start, end  string
	}{
		{2024, 6, "2024-06-01", "2024-06-31"},
		{2024, 12, "2024-12-01", "2024-12-31"},
		{999, 1, "0999-01-01", "0999-01-31"},
	}
	for _, c := range cases {
		start, end := monthBounds(c.year, c.month)
		if start != c.start || end != c.end {
			t.Errorf("monthBounds(%d, %d) = (%q, %q), want (%q, %q)",
				c.year, c.month, start, end, c.start, c.end)
		}
	}
}

func TestMonthBoundsCoverShortMonths(t *testing.T) {
	// February dates compare inside the bounds even though day 31 never
	// exists; string ordering keeps the range from leaking into March.
	start, end := monthBounds(2024, 2)
	for _, date := range []string{"2024-02-01", "2024-02-29"} {
		if date < start || date > end {
			t.Errorf("date %s outside bounds [%s, %s]", date, start, end)
		}
	}
	if "2024-03-01" <= end {
		t.Errorf("march date inside bounds [%s, %s]", start, end)
	}
}
