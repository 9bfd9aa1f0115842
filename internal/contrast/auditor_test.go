package contrast

import (
	"context"
	"strings"
	"testing"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/dom"
	"github.com/jmylchreest/pagetint/internal/dom/domtest"
	"github.com/jmylchreest/pagetint/internal/dom/static"
	"github.com/jmylchreest/pagetint/internal/extract"
)

func audit(t *testing.T, markup string) *Result {
	t.Helper()
	doc, err := static.ParseString(context.Background(), markup, static.Options{})
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return NewAuditor(Options{}, nil).Audit(doc)
}

func TestAuditBlackOnWhitePasses(t *testing.T) {
	res := audit(t, `<body style="background:#ffffff"><p style="color:#000000">Readable</p></body>`)
	if len(res.Issues) != 0 {
		t.Errorf("Audit() = %+v, want no issues", res.Issues)
	}
}

func TestAuditLightGreyOnWhiteFails(t *testing.T) {
	res := audit(t, `<body style="background:#ffffff"><p id="faint" style="color:#cccccc">Faint text</p></body>`)
	if len(res.Issues) != 1 {
		t.Fatalf("Audit() = %+v, want one issue", res.Issues)
	}
	got := res.Issues[0]
	if got.Foreground != "#CCCCCC" || got.Background != "#FFFFFF" {
		t.Errorf("pair = %s on %s", got.Foreground, got.Background)
	}
	if got.Ratio >= 4.5 || got.Ratio < 1.5 || got.Ratio > 1.7 {
		t.Errorf("Ratio = %v, want about 1.6", got.Ratio)
	}
	if got.Level() != colour.LevelFail {
		t.Errorf("Level() = %s", got.Level())
	}
	if got.Selector != "#faint" || got.Text != "Faint text" || got.ElementIndex != 0 {
		t.Errorf("issue = %+v", got)
	}
	if el, ok := res.Element(0); !ok || el.ID() != "faint" {
		t.Errorf("Element(0) = %v, %v", el, ok)
	}
}

func TestAuditEffectiveBackground(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		wantBg colour.Hex
	}{
		{
			name:   "nearest ancestor",
			markup: `<div style="background:#333333"><section><p style="color:#444444">Dark</p></section></div>`,
			wantBg: "#333333",
		},
		{
			name:   "own background",
			markup: `<div style="background:#000000;color:#ffffff"><p style="color:#777777;background:#888888">Own</p></div>`,
			wantBg: "#888888",
		},
		{
			name:   "defaults to white",
			markup: `<p style="color:#eeeeee">Nothing behind</p>`,
			wantBg: "#FFFFFF",
		},
		{
			name:   "transparent layers skipped",
			markup: `<div style="background:#222222"><div style="background:rgba(255,255,255,0)"><p style="color:#333333">Layered</p></div></div>`,
			wantBg: "#222222",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := audit(t, tt.markup)
			if len(res.Issues) == 0 {
				t.Fatal("Audit() found no issues")
			}
			for _, issue := range res.Issues {
				if issue.Background != tt.wantBg {
					t.Errorf("issue %+v, want background %s", issue, tt.wantBg)
				}
			}
		})
	}
}

func TestAuditSkips(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"display none", `<p style="color:#eeeeee;display:none">hidden</p>`},
		{"visibility hidden", `<p style="color:#eeeeee;visibility:hidden">hidden</p>`},
		{"opacity zero", `<p style="color:#eeeeee;opacity:0">hidden</p>`},
		{"opacity zero decimal", `<p style="color:#cccccc;opacity:0.0">hidden</p>`},
		{"opacity zero percent", `<p style="color:#cccccc;opacity:0%">hidden</p>`},
		{"opacity negative", `<p style="color:#cccccc;opacity:-2">hidden</p>`},
		{"display none uppercase", `<p style="color:#cccccc;display:NONE">hidden</p>`},
		{"visibility hidden uppercase", `<p style="color:#cccccc;visibility:HIDDEN">hidden</p>`},
		{"display none from stylesheet", `<style>p{display:None}</style><p style="color:#cccccc">hidden</p>`},
		{"whitespace only", `<p style="color:#eeeeee;height:20px">   </p>`},
		{"zero size", `<p style="color:#eeeeee;height:0">tiny</p>`},
		{"transparent text", `<p style="color:transparent">invisible</p>`},
		{"non candidate tag", `<em style="color:#eeeeee">emphasis</em>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := audit(t, tt.markup); len(res.Issues) != 0 {
				t.Errorf("Audit() = %+v, want none", res.Issues)
			}
		})
	}
}

func TestAuditDedupAndCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString(`<li style="color:#dddddd">Same row</li>`)
	}
	res := audit(t, `<ul>`+b.String()+`</ul>`)
	if len(res.Issues) != 1 {
		t.Errorf("duplicates: got %d issues, want 1", len(res.Issues))
	}

	b.Reset()
	for i := 0; i < 30; i++ {
		b.WriteString(`<li style="color:#dddddd">Row ` + strings.Repeat("x", i) + `</li>`)
	}
	res = audit(t, `<ul>`+b.String()+`</ul>`)
	if len(res.Issues) != DefaultMaxIssues {
		t.Fatalf("cap: got %d issues, want %d", len(res.Issues), DefaultMaxIssues)
	}
	for i, issue := range res.Issues {
		if issue.ElementIndex != i {
			t.Errorf("issue %d has ElementIndex %d", i, issue.ElementIndex)
		}
		if _, ok := res.Element(i); !ok {
			t.Errorf("Element(%d) missing", i)
		}
	}
	if _, ok := res.Element(DefaultMaxIssues); ok {
		t.Error("Element() out of range reported ok")
	}
	if _, ok := res.Element(-1); ok {
		t.Error("Element(-1) reported ok")
	}
}

func TestAuditTextTruncation(t *testing.T) {
	long := strings.Repeat("é", 200)
	res := audit(t, `<p style="color:#dddddd">`+long+`</p>`)
	if len(res.Issues) != 1 {
		t.Fatalf("Audit() = %d issues", len(res.Issues))
	}
	want := strings.Repeat("é", 150) + "..."
	if res.Issues[0].Text != want {
		t.Errorf("Text has %d runes, want 150 plus ellipsis", len([]rune(res.Issues[0].Text)))
	}
}

func TestAuditDedupUsesTextPrefix(t *testing.T) {
	prefix := strings.Repeat("a", 50)
	res := audit(t, `<p style="color:#dddddd">`+prefix+`one</p><p style="color:#dddddd">`+prefix+`two</p>`)
	if len(res.Issues) != 1 {
		t.Errorf("got %d issues, want texts sharing a 50 rune prefix to dedup", len(res.Issues))
	}
}

func TestAuditNewResultEachCall(t *testing.T) {
	doc, err := static.ParseString(context.Background(), `<p style="color:#dddddd">x</p>`, static.Options{})
	if err != nil {
		t.Fatal(err)
	}
	a := NewAuditor(Options{}, nil)
	first, second := a.Audit(doc), a.Audit(doc)
	if first.ID == second.ID || first == second {
		t.Error("Audit() reused a result")
	}
}

func TestAuditEmptyDocument(t *testing.T) {
	res := NewAuditor(Options{}, nil).Audit(domtest.NewDocument())
	if res.Issues == nil || len(res.Issues) != 0 {
		t.Errorf("Issues = %#v, want empty non-nil slice", res.Issues)
	}
}

func TestAuditThreshold(t *testing.T) {
	// #777777 on white is about 4.48: AA Large but not AA.
	markup := `<p style="color:#777777">Grey</p>`
	doc, err := static.ParseString(context.Background(), markup, static.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := NewAuditor(Options{}, nil).Audit(doc); len(got.Issues) != 1 {
		t.Errorf("AA threshold: %d issues, want 1", len(got.Issues))
	}
	if got := NewAuditor(Options{Threshold: colour.MinContrastLarge}, nil).Audit(doc); len(got.Issues) != 0 {
		t.Errorf("large text threshold: %d issues, want 0", len(got.Issues))
	}
}

func TestSelector(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  string
	}{
		{"id", map[string]string{"id": "main", "class": "a b"}, "#main"},
		{"classes", map[string]string{"class": "  one two three "}, "div.one.two"},
		{"single class", map[string]string{"class": "one"}, "div.one"},
		{"tag", nil, "div"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := &domtest.Element{TagName: "div", Attrs: tt.attrs}
			if got := Selector(el); got != tt.want {
				t.Errorf("Selector() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEffectiveBackgroundStyleError(t *testing.T) {
	parent := &domtest.Element{TagName: "div"}
	child := domtest.NewElement("p", dom.Rect{Width: 1, Height: 1}, dom.StyleMap{})
	child.ParentEl = parent
	norm := extract.NewNormalizer(domtest.NewDocument(child), nil)
	if _, ok := EffectiveBackground(norm, child); ok {
		t.Error("EffectiveBackground() ok despite unavailable ancestor style")
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		opts    Options
		wantErr bool
	}{
		{Options{}, false},
		{Options{Threshold: 4.5, MaxIssues: 20}, false},
		{Options{Threshold: 0.5}, true},
		{Options{Threshold: 22}, true},
		{Options{MaxIssues: -1}, true},
	}
	for _, tt := range tests {
		if err := tt.opts.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.opts, err, tt.wantErr)
		}
	}
}
