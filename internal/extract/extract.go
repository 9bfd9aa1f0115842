// Package extract builds a weighted colour palette from a rendered document.
// The Sampler reads colours from each element's visual channels, the
// Normalizer turns computed values into canonical hex and the Extractor
// aggregates, ranks and collapses the result.
package extract

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/dom"
)

// Options configures an Extractor.
type Options struct {
	// MinArea is passed to the Sampler.
	MinArea float64

	// MaxRanked caps the aggregated palette before collapsing. Zero means
	// colour.MaxRanked.
	MaxRanked int

	// Policy collapses near-duplicates. The zero value means
	// colour.ExtractionPolicy.
	Policy colour.CollapsePolicy
}

// DefaultOptions returns the options used by the extraction flow.
func DefaultOptions() Options {
	return Options{
		MinArea:   DefaultMinArea,
		MaxRanked: colour.MaxRanked,
		Policy:    colour.ExtractionPolicy,
	}
}

// Validate checks the options are usable.
func (o Options) Validate() error {
	if o.MinArea < 0 {
		return fmt.Errorf("min area must be non-negative, got %v", o.MinArea)
	}
	if o.MaxRanked < 0 {
		return fmt.Errorf("max ranked must be non-negative, got %d", o.MaxRanked)
	}
	if o.Policy != (colour.CollapsePolicy{}) {
		if err := o.Policy.Validate(); err != nil {
			return fmt.Errorf("invalid collapse policy: %w", err)
		}
	}
	return nil
}

// Extractor turns a document into a ranked palette.
type Extractor struct {
	sampler   *Sampler
	maxRanked int
	policy    colour.CollapsePolicy
	logger    hclog.Logger
}

// New creates an Extractor.
func New(opts Options, logger hclog.Logger) *Extractor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.MaxRanked == 0 {
		opts.MaxRanked = colour.MaxRanked
	}
	if opts.Policy == (colour.CollapsePolicy{}) {
		opts.Policy = colour.ExtractionPolicy
	}
	return &Extractor{
		sampler:   NewSampler(SamplerOptions{MinArea: opts.MinArea}, logger.Named("sampler")),
		maxRanked: opts.MaxRanked,
		policy:    opts.Policy,
		logger:    logger,
	}
}

// Ranked samples doc and returns the aggregated palette before collapsing.
func (e *Extractor) Ranked(doc dom.Document) []colour.WeightedColour {
	agg := colour.NewAggregator()
	for _, s := range e.sampler.Sample(doc) {
		agg.Add(s.Colour, s.Weight)
	}
	return agg.Ranked(e.maxRanked)
}

// Extract samples doc and returns the collapsed palette.
func (e *Extractor) Extract(doc dom.Document) []colour.WeightedColour {
	ranked := e.Ranked(doc)
	collapsed := colour.Collapse(ranked, e.policy)
	e.logger.Debug("extracted palette", "ranked", len(ranked), "collapsed", len(collapsed))
	return collapsed
}
