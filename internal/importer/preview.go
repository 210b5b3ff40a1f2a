package importer

import "fmt"

// Preview is what the UI shows between Upload and Confirm: counts, per-group
// draft flags, and whether the Confirm affordance is enabled.
type Preview struct {
	Products       int            `json:"products"`
	Variants       int            `json:"variants"`
	BlockingCount  int            `json:"blockingCount"`
	WarningCount   int            `json:"warningCount"`
	ConfirmEnabled bool           `json:"confirmEnabled"`
	Groups         []GroupPreview `json:"groups"`
}

// GroupPreview is one product group as shown in the preview table. A group
// forced to draft is surfaced as "Will import as DRAFT", distinct from a
// blocking error.
type GroupPreview struct {
	Title             string  `json:"title"`
	Variants          int     `json:"variants"`
	WillImportAsDraft bool    `json:"willImportAsDraft"`
	Issues            []Issue `json:"issues,omitempty"`
}

func buildPreview(decisions []*Decision) *Preview {
	p := &Preview{
		Products: len(decisions),
		Groups:   make([]GroupPreview, len(decisions)),
	}

	for i, d := range decisions {
		issues := d.AllIssues()
		for _, is := range issues {
			switch is.Severity {
			case SeverityBlocking:
				p.BlockingCount++
			case SeverityWarning:
				p.WarningCount++
			}
		}

		p.Variants += len(d.Group.Variants)
		p.Groups[i] = GroupPreview{
			Title:             d.Group.Title,
			Variants:          len(d.Group.Variants),
			WillImportAsDraft: d.Status == StatusDraft,
			Issues:            issues,
		}
	}

	p.ConfirmEnabled = p.BlockingCount == 0
	return p
}

// Message renders the terminal human-readable completion line for the
// result screen.
func (s *Summary) Message() string {
	if s.Failed == 0 {
		return fmt.Sprintf("Import complete: %d products imported (%d as draft).", s.Succeeded, s.DraftCount)
	}
	return fmt.Sprintf("Import finished with errors: %d of %d products imported (%d as draft), %d failed.",
		s.Succeeded, s.Total, s.DraftCount, s.Failed)
}
