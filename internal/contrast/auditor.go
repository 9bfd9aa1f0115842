// Package contrast flags text whose colour does not reach the WCAG AA
// contrast ratio against its effective background.
package contrast

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/dom"
	"github.com/jmylchreest/pagetint/internal/extract"
)

const (
	// DefaultMaxIssues caps the issues returned by one audit.
	DefaultMaxIssues = 20

	// dedupRunes is how much of the text participates in the dedup key.
	dedupRunes = 50

	// maxTextRunes is how much of the text an Issue carries.
	maxTextRunes = 150

	// maxSelectorClasses limits the classes included in a selector.
	maxSelectorClasses = 2
)

// candidateTags are the text-bearing elements that are audited.
var candidateTags = map[string]bool{
	"p": true, "span": true, "a": true, "button": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "td": true, "th": true, "label": true, "div": true,
}

// Issue is a foreground/background pair below the threshold.
type Issue struct {
	Foreground   colour.Hex `json:"foreground"`
	Background   colour.Hex `json:"background"`
	Ratio        float64    `json:"ratio"`
	Text         string     `json:"text"`
	Selector     string     `json:"selector"`
	ElementIndex int        `json:"elementIndex"`
}

// Level classifies the issue's ratio.
func (i Issue) Level() colour.Level {
	return colour.ContrastLevel(i.Ratio)
}

// Result is the outcome of one audit. It keeps the flagged elements so an
// Issue's ElementIndex can be resolved back to the page.
type Result struct {
	ID     string  `json:"id"`
	Issues []Issue `json:"issues"`

	elements []dom.Element
}

// Element returns the element behind issue index i.
func (r *Result) Element(i int) (dom.Element, bool) {
	if r == nil || i < 0 || i >= len(r.elements) {
		return nil, false
	}
	return r.elements[i], true
}

// Options configures an Auditor.
type Options struct {
	// Threshold is the minimum acceptable ratio. Zero means
	// colour.MinContrastAA.
	Threshold float64

	// MaxIssues caps the result. Zero means DefaultMaxIssues.
	MaxIssues int
}

// Validate checks the options are usable.
func (o Options) Validate() error {
	if o.Threshold != 0 && (o.Threshold < 1 || o.Threshold > 21) {
		return fmt.Errorf("contrast threshold must be between 1 and 21, got %v", o.Threshold)
	}
	if o.MaxIssues < 0 {
		return fmt.Errorf("max issues must be non-negative, got %d", o.MaxIssues)
	}
	return nil
}

// Auditor checks text contrast.
type Auditor struct {
	threshold float64
	maxIssues int
	logger    hclog.Logger
}

// NewAuditor creates an Auditor.
func NewAuditor(opts Options, logger hclog.Logger) *Auditor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.Threshold == 0 {
		opts.Threshold = colour.MinContrastAA
	}
	if opts.MaxIssues == 0 {
		opts.MaxIssues = DefaultMaxIssues
	}
	return &Auditor{threshold: opts.Threshold, maxIssues: opts.MaxIssues, logger: logger}
}

// Audit walks the candidate elements of doc in document order. Each call
// returns a new Result.
func (a *Auditor) Audit(doc dom.Document) *Result {
	norm := extract.NewNormalizer(doc, a.logger.Named("normalize"))
	res := &Result{ID: uuid.NewString(), Issues: []Issue{}}
	seen := make(map[string]struct{})

	for _, el := range doc.Elements() {
		if len(res.Issues) >= a.maxIssues {
			break
		}
		if !candidateTags[el.Tag()] {
			continue
		}

		issue, ok := a.check(norm, el)
		if !ok {
			continue
		}

		key := string(issue.Foreground) + "|" + string(issue.Background) + "|" + truncate(issue.Text, dedupRunes)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		issue.Text = excerpt(issue.Text)
		issue.Selector = Selector(el)
		issue.ElementIndex = len(res.elements)
		res.elements = append(res.elements, el)
		res.Issues = append(res.Issues, issue)
	}

	a.logger.Debug("contrast audit complete", "id", res.ID, "issues", len(res.Issues))
	return res
}

// check returns an issue for el when it is visible text below the threshold.
// Issue.Text holds the full trimmed text.
func (a *Auditor) check(norm *extract.Normalizer, el dom.Element) (Issue, bool) {
	if el.Rect().Empty() {
		return Issue{}, false
	}
	st, err := el.Style(dom.PseudoNone)
	if err != nil {
		a.logger.Trace("skipping element", "tag", el.Tag(), "error", err)
		return Issue{}, false
	}
	if st.Get("display") == "none" || st.Get("visibility") == "hidden" || st.Get("opacity") == "0" {
		return Issue{}, false
	}

	text := strings.TrimSpace(el.Text())
	if text == "" {
		return Issue{}, false
	}

	fg, ok := norm.Normalize(st.Get("color"), el)
	if !ok {
		return Issue{}, false
	}
	bg, ok := EffectiveBackground(norm, el)
	if !ok {
		return Issue{}, false
	}

	ratio := colour.ContrastRatio(fg.RGB(), bg.RGB())
	if ratio >= a.threshold {
		return Issue{}, false
	}
	return Issue{Foreground: fg, Background: bg, Ratio: ratio, Text: text}, true
}

// EffectiveBackground walks from el up through its ancestors and returns the
// first background that normalises to a colour, or white when none does.
// The boolean is false only when a style lookup fails along the way.
func EffectiveBackground(norm *extract.Normalizer, el dom.Element) (colour.Hex, bool) {
	for cur := el; cur != nil; cur = cur.Parent() {
		st, err := cur.Style(dom.PseudoNone)
		if err != nil {
			return "", false
		}
		if bg, ok := norm.Normalize(st.Get("background-color"), cur); ok {
			return bg, true
		}
	}
	return "#FFFFFF", true
}

// Selector builds a short CSS selector: #id, tag.class1.class2 or tag.
func Selector(el dom.Element) string {
	if id := el.ID(); id != "" {
		return "#" + id
	}
	classes := el.Classes()
	if len(classes) > maxSelectorClasses {
		classes = classes[:maxSelectorClasses]
	}
	if len(classes) > 0 {
		return el.Tag() + "." + strings.Join(classes, ".")
	}
	return el.Tag()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= maxTextRunes {
		return s
	}
	return truncate(s, maxTextRunes) + "..."
}
