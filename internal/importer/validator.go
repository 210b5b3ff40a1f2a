package importer

import (
	"fmt"
	"strings"
)

// Messages shown inline next to the offending field.
const (
	MsgPositivePrice = "Price must be a positive number."
	MsgInvalidJSON   = "Invalid JSON."
)

// ShouldMarkDraft reports whether the draft policy applies: a group whose
// application or category could not be resolved imports as draft. Subcategory,
// elevator type and collection resolution never affect status.
func ShouldMarkDraft(lookup *LookupResult) bool {
	return lookup.ApplicationID == nil || lookup.CategoryID == nil
}

// Decide applies the field rules and the draft policy to one group. The
// result is derived, never stored; callers recompute it whenever source data
// changes.
//
// File-level rules (duplicate SKUs across groups) live in DecideAll.
func Decide(group *ProductGroup, lookup *LookupResult) *Decision {
	d := &Decision{
		Group:  group,
		Lookup: lookup,
		Status: StatusActive,
	}

	for _, row := range group.Variants {
		if !row.Price.Positive() {
			d.Issues = append(d.Issues, Issue{
				Field:    ColPrice,
				Message:  MsgPositivePrice,
				Severity: SeverityBlocking,
			})
		}
		if !row.MRP.Positive() {
			d.Issues = append(d.Issues, Issue{
				Field:    ColMRP,
				Message:  MsgPositivePrice,
				Severity: SeverityBlocking,
			})
		}
		if !row.Attributes.Valid {
			d.Issues = append(d.Issues, Issue{
				Field:    ColAttributes,
				Message:  MsgInvalidJSON,
				Severity: SeverityBlocking,
			})
		}
	}

	// A requested draft status is honored; the draft policy can force it but
	// never the other way around.
	if group.Base.Status == StatusDraft || ShouldMarkDraft(lookup) {
		d.Status = StatusDraft
	}

	return d
}

// DecideAll derives decisions for every group and applies the file-level
// duplicate SKU rule: the same SKU appearing in two different groups is a
// blocking issue on each offending group.
//
// Groups and lookups must be positionally aligned (as returned by GroupRows
// and ResolveAll).
func DecideAll(groups []*ProductGroup, lookups []*LookupResult) []*Decision {
	decisions := make([]*Decision, len(groups))
	for i, group := range groups {
		decisions[i] = Decide(group, lookups[i])
	}

	// SKU -> index of the group that first claimed it.
	owners := make(map[string]int)
	flagged := make(map[int]map[string]bool)

	flag := func(idx int, sku string) {
		if flagged[idx] == nil {
			flagged[idx] = make(map[string]bool)
		}
		if flagged[idx][sku] {
			return
		}
		flagged[idx][sku] = true
		decisions[idx].Issues = append(decisions[idx].Issues, Issue{
			Field:    ColSKU,
			Message:  fmt.Sprintf("duplicate SKU %q appears in multiple products", sku),
			Severity: SeverityBlocking,
		})
	}

	for i, group := range groups {
		for _, row := range group.Variants {
			sku := strings.TrimSpace(row.SKU)
			if sku == "" {
				continue
			}
			if owner, ok := owners[sku]; ok {
				if owner != i {
					flag(owner, sku)
					flag(i, sku)
				}
				continue
			}
			owners[sku] = i
		}
	}

	return decisions
}

// Blocked reports whether any decision carries a blocking issue. The Confirm
// gate is its negation: warning and draft-forcing issues never block.
func Blocked(decisions []*Decision) bool {
	for _, d := range decisions {
		if len(d.BlockingIssues()) > 0 {
			return true
		}
	}
	return false
}
