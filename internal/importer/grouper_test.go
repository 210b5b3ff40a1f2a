package importer

import "testing"

func TestGroupRowsPartition(t *testing.T) {
	rows := []Row{
		{Title: "Motor", SKU: "M-1"},
		{Title: "Door Panel", SKU: "D-1"},
		{Title: "Motor", SKU: "M-2"},
		{Title: "Buffer", SKU: "B-1"},
		{Title: "Motor", SKU: "M-3"},
	}

	groups := GroupRows(rows)

	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3 (distinct titles)", len(groups))
	}

	// Groups emitted in first-appearance order.
	wantOrder := []string{"Motor", "Door Panel", "Buffer"}
	total := 0
	for i, g := range groups {
		if g.Title != wantOrder[i] {
			t.Errorf("group[%d] = %q, want %q", i, g.Title, wantOrder[i])
		}
		total += len(g.Variants)
	}

	// Partition: every row lands in exactly one group.
	if total != len(rows) {
		t.Errorf("variant total = %d, want %d", total, len(rows))
	}
}

func TestGroupRowsTwoRowsOneProduct(t *testing.T) {
	rows := []Row{
		{Title: "Motor", SKU: "M-220"},
		{Title: "Motor", SKU: "M-380"},
	}

	groups := GroupRows(rows)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(groups[0].Variants))
	}
	if groups[0].Variants[0].SKU != "M-220" || groups[0].Variants[1].SKU != "M-380" {
		t.Errorf("variant order not preserved: %q, %q",
			groups[0].Variants[0].SKU, groups[0].Variants[1].SKU)
	}
}

func TestGroupRowsSingleRowActsAsOwnVariant(t *testing.T) {
	groups := GroupRows([]Row{{Title: "Buffer", SKU: "B-1"}})

	if len(groups) != 1 || len(groups[0].Variants) != 1 {
		t.Fatalf("single row must yield one group with one variant, got %+v", groups)
	}
	if groups[0].Base.SKU != groups[0].Variants[0].SKU {
		t.Error("base row should act as its own variant")
	}
}

func TestGroupRowsCaseSensitiveTitles(t *testing.T) {
	groups := GroupRows([]Row{
		{Title: "Motor"},
		{Title: "motor"},
	})
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2: titles differ by case", len(groups))
	}
}

func TestGroupRowsNoValidation(t *testing.T) {
	// Rows that will fail validation later must still group, so Preview can
	// show every intended product.
	rows := []Row{
		{Title: "Broken", Price: NumericField{Raw: "abc"}},
		{Title: "Broken", Price: NumericField{Raw: "-1"}},
	}
	groups := GroupRows(rows)
	if len(groups) != 1 || len(groups[0].Variants) != 2 {
		t.Fatalf("invalid rows must still group: %+v", groups)
	}
}
