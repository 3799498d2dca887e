package streak

import (
	"testing"
	"time"
)

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestComputeEmpty(t *testing.T) {
	current, best := Compute(nil, day("2024-01-03"))
	if current != 0 || best != 0 {
		t.Fatalf("expected (0, 0), got (%d, %d)", current, best)
	}
}

func TestComputeRunEndingToday(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"}
	current, best := Compute(dates, day("2024-01-03"))
	if current != 3 {
		t.Errorf("current = %d, want 3", current)
	}
	if best != 3 {
		t.Errorf("best = %d, want 3", best)
	}
}

func TestComputeTodayMissing(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"}
	current, best := Compute(dates, day("2024-01-06"))
	if current != 0 {
		t.Errorf("current = %d, want 0", current)
	}
	if best != 3 {
		t.Errorf("best = %d, want 3", best)
	}
}

func TestComputeSingleDate(t *testing.T) {
	current, best := Compute([]string{"2024-02-10"}, day("2024-02-10"))
	if current != 1 || best != 1 {
		t.Fatalf("expected (1, 1), got (%d, %d)", current, best)
	}
}

func TestComputeDuplicatesAndGarbage(t *testing.T) {
	dates := []string{"2024-03-01", "2024-03-01", "not-a-date", "2024-03-02"}
	current, best := Compute(dates, day("2024-03-02"))
	if current != 2 || best != 2 {
		t.Fatalf("expected (2, 2), got (%d, %d)", current, best)
	}
}

func TestComputeBestInThePast(t *testing.T) {
	dates := []string{
		"2024-04-01", "2024-04-02", "2024-04-03", "2024-04-04",
		"2024-04-10", "2024-04-11",
	}
	current, best := Compute(dates, day("2024-04-11"))
	if current != 2 {
		t.Errorf("current = %d, want 2", current)
	}
	if best != 4 {
		t.Errorf("best = %d, want 4", best)
	}
}
