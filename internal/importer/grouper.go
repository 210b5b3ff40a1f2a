package importer

// GroupRows partitions rows into product groups keyed on the trimmed,
// case-sensitive product title. Rows join their group in first-seen order and
// groups are emitted in order of first appearance.
//
// No validation happens here: grouping must succeed even for rows that will
// later fail validation so the Preview stage can show every intended product.
func GroupRows(rows []Row) []*ProductGroup {
	var groups []*ProductGroup
	byTitle := make(map[string]*ProductGroup)

	for _, row := range rows {
		g, ok := byTitle[row.Title]
		if !ok {
			g = &ProductGroup{Title: row.Title, Base: row}
			byTitle[row.Title] = g
			groups = append(groups, g)
		}
		// Every row is a variant; a single-row group's base row acts as its
		// own variant.
		g.Variants = append(g.Variants, row)
	}

	return groups
}
