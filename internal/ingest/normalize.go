package ingest

import (
	"go.uber.org/zap"

	"github.com/metrolabs/beatcast/internal/model"
)

// Normalize deduplicates incidents by case identifier: exactly one record
// survives per distinct ID, first occurrence in input order wins, and no
// field-level reconciliation is attempted. The duplicate count is returned
// and logged, never silently dropped. First-seen order depends on feed
// order, which the upstream portal does not guarantee; the warning below
// flags that reproducibility risk on every run that removes duplicates.
func Normalize(incidents []model.Incident) ([]model.Incident, int) {
	if len(incidents) == 0 {
		return nil, 0
	}

	seen := make(map[string]bool, len(incidents))
	kept := make([]model.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if seen[inc.CaseID] {
			continue
		}
		seen[inc.CaseID] = true
		kept = append(kept, inc)
	}

	dups := len(incidents) - len(kept)
	if dups > 0 {
		zap.L().Warn("ingest: removed duplicate case identifiers (dedup policy first-seen, sensitive to feed order)",
			zap.Int("duplicates", dups),
			zap.Int("kept", len(kept)),
		)
	}
	return kept, dups
}
