package enrich

import (
	"go.uber.org/zap"

	"github.com/metrolabs/beatcast/internal/model"
)

// Enricher annotates incidents with derived temporal and categorical
// features using a fixed category registry.
type Enricher struct {
	registry *model.CategoryRegistry
}

// NewEnricher creates an Enricher backed by the given registry.
func NewEnricher(registry *model.CategoryRegistry) *Enricher {
	return &Enricher{registry: registry}
}

// Enrich annotates a single incident.
func (e *Enricher) Enrich(inc model.Incident) model.EnrichedIncident {
	date, bucket, weekday, month := Temporal(inc.OccurredAt)
	cat, violent, _ := e.registry.Collapse(inc.PrimaryType)
	return model.EnrichedIncident{
		Incident: inc,
		Date:     date,
		Bucket:   bucket,
		Weekday:  weekday,
		Month:    month,
		Season:   model.SeasonOf(month),
		Category: cat,
		Violent:  violent,
	}
}

// EnrichAll annotates a batch and reports any descriptions that fell outside
// the category vocabulary. Unknown descriptions never fail the pipeline;
// they pass through as singleton categories for later addition to the table.
func (e *Enricher) EnrichAll(incidents []model.Incident) []model.EnrichedIncident {
	out := make([]model.EnrichedIncident, len(incidents))
	for i, inc := range incidents {
		out[i] = e.Enrich(inc)
	}
	if unknown := e.registry.UnknownDescriptions(); len(unknown) > 0 {
		zap.L().Warn("enrich: descriptions outside category vocabulary, passed through as singleton categories",
			zap.Strings("descriptions", unknown),
		)
	}
	return out
}
