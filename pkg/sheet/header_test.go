package sheet

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Trip ID", "trip id"},
		{"trip_id", "trip id"},
		{"TRIP  ID", "trip id"},
		{"  Last_Name ", "last name"},
		{"__", ""},
		{"", ""},
		{"E-mail", "e-mail"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildIndexLastWins(t *testing.T) {
	index := BuildIndex([]string{"Trip ID", "", "Name", "trip_id"})

	if got := index["trip id"]; got != 3 {
		t.Fatalf("expected duplicate header to resolve to last column 3, got %d", got)
	}
	if _, ok := index[""]; ok {
		t.Fatalf("empty header must not be indexed")
	}
	if got := index["name"]; got != 2 {
		t.Fatalf("expected name at 2, got %d", got)
	}
}

func TestResolveSpellings(t *testing.T) {
	for _, header := range []string{"Trip ID", "trip_id", "TRIP  ID", "Trip_Id "} {
		index := BuildIndex([]string{"Other", header})
		i, ok := Resolve(index, TripIDColumn)
		if !ok || i != 1 {
			t.Errorf("header %q: Resolve = (%d, %v), want (1, true)", header, i, ok)
		}
	}
}

func TestResolvePreference(t *testing.T) {
	index := BuildIndex([]string{"Amount", "Total"})

	if i, _ := Resolve(index, TotalColumn); i != 1 {
		t.Errorf("total candidates should prefer Total column, got %d", i)
	}
	if i, _ := Resolve(index, AmountColumn); i != 0 {
		t.Errorf("amount candidates should prefer Amount column, got %d", i)
	}
}

func TestResolveMissing(t *testing.T) {
	index := BuildIndex([]string{"Trip ID"})
	if i, ok := Resolve(index, EmailColumn); ok || i != -1 {
		t.Fatalf("expected (-1, false), got (%d, %v)", i, ok)
	}
}
