package fuzzy

import "testing"

func TestMatcher_Exact(t *testing.T) {
	m := NewMatcher(nil)

	a := Identity{Name: "Ram Kumar", FatherName: "Shyam Lal", Address: "Sirsa"}
	b := Identity{Name: "  ram kumar ", FatherName: "SHYAM LAL", Address: "sirsa"}

	result := m.Match(a, b)
	if result.Kind != MatchExact {
		t.Fatalf("expected exact match, got %s", result.Kind)
	}
	if result.TotalDifference != 0 {
		t.Errorf("expected total difference 0, got %d", result.TotalDifference)
	}
}

func TestMatcher_Similar(t *testing.T) {
	m := NewMatcher(nil)

	a := Identity{Name: "Ram Kumar", FatherName: "Shyam Lal", Address: "Sirsa"}
	b := Identity{Name: "Ram Kumer", FatherName: "Shyam Lal", Address: "Sirsa"}

	result := m.Match(a, b)
	if result.Kind != MatchSimilar {
		t.Fatalf("expected similar match, got %s", result.Kind)
	}
	if result.NameDiff != 1 {
		t.Errorf("expected name diff 1, got %d", result.NameDiff)
	}
	if !result.Matched() {
		t.Error("expected similar result to count as matched")
	}
}

func TestMatcher_RejectedSingleField(t *testing.T) {
	m := NewMatcher(nil)

	// Three substitutions in one field exceeds the per-field cap of 2
	a := Identity{Name: "Ram Kumar", FatherName: "Shyam Lal", Address: "Sirsa"}
	b := Identity{Name: "Rox Kuxer", FatherName: "Shyam Lal", Address: "Sirsa"}

	result := m.Match(a, b)
	if result.Kind != MatchRejected {
		t.Fatalf("expected rejection, got %s (name diff %d)", result.Kind, result.NameDiff)
	}
}

func TestMatcher_RejectedTotal(t *testing.T) {
	m := NewMatcher(nil)

	// 2+2+1 = 5 exceeds the combined cap of 4 even though each field passes
	a := Identity{Name: "Ram Kumar", FatherName: "Shyam Lal", Address: "Sirsa"}
	b := Identity{Name: "Rax Kumer", FatherName: "Shyem Lel", Address: "Sirse"}

	result := m.Match(a, b)
	if result.NameDiff > 2 || result.FatherDiff > 2 || result.AddressDiff > 2 {
		t.Fatalf("test fixture broken: per-field diffs %d/%d/%d must each be <= 2",
			result.NameDiff, result.FatherDiff, result.AddressDiff)
	}
	if result.TotalDifference != 5 {
		t.Fatalf("expected total difference 5, got %d", result.TotalDifference)
	}
	if result.Kind != MatchRejected {
		t.Fatalf("expected rejection on total, got %s", result.Kind)
	}
}

func TestMatcher_MissingFields(t *testing.T) {
	m := NewMatcher(nil)

	// missing-vs-missing contributes 0
	a := Identity{Name: "Ram", FatherName: "", Address: ""}
	b := Identity{Name: "Ram", FatherName: "", Address: ""}
	if result := m.Match(a, b); result.Kind != MatchExact {
		t.Errorf("expected exact match for identical records with missing fields, got %s", result.Kind)
	}

	// missing-vs-present contributes the length of the present string
	c := Identity{Name: "Ram", FatherName: "Lal", Address: ""}
	result := m.Match(a, c)
	if result.FatherDiff != 3 {
		t.Errorf("expected father diff 3 for missing-vs-present, got %d", result.FatherDiff)
	}
	if result.Kind != MatchRejected {
		t.Errorf("expected rejection (field diff 3 > 2), got %s", result.Kind)
	}
}

func TestMatcher_Symmetry(t *testing.T) {
	m := NewMatcher(nil)

	pairs := []struct {
		a, b Identity
	}{
		{Identity{"Ram Kumar", "Shyam Lal", "Sirsa"}, Identity{"Ram Kumer", "Shyam Lal", "Sirsa"}},
		{Identity{"Mohan", "", ""}, Identity{"Mohen", "Des Raj", "Ellenabad"}},
		{Identity{"", "", ""}, Identity{"A", "B", "C"}},
		{Identity{"Suresh", "Ramesh", "Rania"}, Identity{"Suresh", "Ramesh", "Rania"}},
	}

	for i, pair := range pairs {
		forward := m.Match(pair.a, pair.b)
		backward := m.Match(pair.b, pair.a)
		if forward != backward {
			t.Errorf("pair %d: match is not symmetric: %s vs %s", i, forward, backward)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}

	bad := &Config{MaxFieldDifference: -1, MaxTotalDifference: 4}
	if err := bad.Validate(); err == nil {
		t.Error("expected validation error for negative field difference")
	}
}
