package static

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmylchreest/pagetint/internal/dom"
	httputil "github.com/jmylchreest/pagetint/internal/util/http"
)

func mustParse(t *testing.T, markup string, opts Options) *Document {
	t.Helper()
	doc, err := ParseString(context.Background(), markup, opts)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return doc
}

func byID(t *testing.T, doc *Document, id string) dom.Element {
	t.Helper()
	for _, el := range doc.Elements() {
		if el.ID() == id {
			return el
		}
	}
	t.Fatalf("no element with id %q", id)
	return nil
}

func styleOf(t *testing.T, el dom.Element, pseudo dom.Pseudo) dom.Style {
	t.Helper()
	st, err := el.Style(pseudo)
	if err != nil {
		t.Fatalf("Style(%q) error = %v", pseudo, err)
	}
	return st
}

func TestComputedStyle(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		id       string
		property string
		want     string
	}{
		{
			name:     "id beats type selector",
			markup:   `<style>#a{color:red} p{color:blue}</style><p id="a">x</p>`,
			id:       "a",
			property: "color",
			want:     "rgb(255, 0, 0)",
		},
		{
			name:     "later rule wins at equal specificity",
			markup:   `<style>p{color:red} p{color:#0000ff}</style><p id="a">x</p>`,
			id:       "a",
			property: "color",
			want:     "rgb(0, 0, 255)",
		},
		{
			name:     "inline style beats id",
			markup:   `<style>#a{color:red}</style><p id="a" style="color: lime">x</p>`,
			id:       "a",
			property: "color",
			want:     "rgb(0, 255, 0)",
		},
		{
			name:     "important beats inline",
			markup:   `<style>p{color:blue !important}</style><p id="a" style="color:red">x</p>`,
			id:       "a",
			property: "color",
			want:     "rgb(0, 0, 255)",
		},
		{
			name:     "color inherits",
			markup:   `<style>body{color:#336699}</style><div><span id="a">x</span></div>`,
			id:       "a",
			property: "color",
			want:     "rgb(51, 102, 153)",
		},
		{
			name:     "background does not inherit",
			markup:   `<style>body{background:#112233}</style><div id="a">x</div>`,
			id:       "a",
			property: "background-color",
			want:     "rgba(0, 0, 0, 0)",
		},
		{
			name:     "background shorthand",
			markup:   `<style>div{background:url(x.png) #112233 no-repeat}</style><div id="a">x</div>`,
			id:       "a",
			property: "background-color",
			want:     "rgb(17, 34, 51)",
		},
		{
			name:     "translucent background",
			markup:   `<div id="a" style="background-color: rgba(255, 0, 0, 0.5)">x</div>`,
			id:       "a",
			property: "background-color",
			want:     "rgba(255, 0, 0, 0.5)",
		},
		{
			name:     "border defaults to currentcolor",
			markup:   `<style>p{color:#0000ff;border:1px solid}</style><p id="a">x</p>`,
			id:       "a",
			property: "border-color",
			want:     "rgb(0, 0, 255)",
		},
		{
			name:     "border-color box values",
			markup:   `<p id="a" style="border-color: red blue">x</p>`,
			id:       "a",
			property: "border-color",
			want:     "rgb(255, 0, 0) rgb(0, 0, 255) rgb(255, 0, 0) rgb(0, 0, 255)",
		},
		{
			name:     "custom property from root",
			markup:   `<style>:root{--brand:#ff0000} p{color:var(--brand)}</style><p id="a">x</p>`,
			id:       "a",
			property: "color",
			want:     "rgb(255, 0, 0)",
		},
		{
			name:     "custom property chain",
			markup:   `<style>:root{--base:#00ff00;--brand:var(--base)} p{background-color:var(--brand)}</style><p id="a">x</p>`,
			id:       "a",
			property: "background-color",
			want:     "rgb(0, 255, 0)",
		},
		{
			name:     "var fallback",
			markup:   `<style>p{color:var(--missing, #00ff00)}</style><p id="a">x</p>`,
			id:       "a",
			property: "color",
			want:     "rgb(0, 255, 0)",
		},
		{
			name:     "missing var without fallback is unset",
			markup:   `<style>body{color:#123456} p{color:var(--missing)}</style><p id="a">x</p>`,
			id:       "a",
			property: "color",
			want:     "rgb(18, 52, 86)",
		},
		{
			name:     "var cycle is unset",
			markup:   `<style>p{--a:var(--b);--b:var(--a);background-color:var(--a)}</style><p id="a">x</p>`,
			id:       "a",
			property: "background-color",
			want:     "rgba(0, 0, 0, 0)",
		},
		{
			name:     "raw custom property value",
			markup:   `<style>:root{--brand:#ff0000}</style><p id="a">x</p>`,
			id:       "a",
			property: "--brand",
			want:     "#ff0000",
		},
		{
			name:     "named colour",
			markup:   `<p id="a" style="outline: 2px dashed rebeccapurple">x</p>`,
			id:       "a",
			property: "outline-color",
			want:     "rgb(102, 51, 153)",
		},
		{
			name:     "box-shadow colours serialised",
			markup:   `<div id="a" style="box-shadow: 0 1px 2px #000000, 0 0 4px red">x</div>`,
			id:       "a",
			property: "box-shadow",
			want:     "0 1px 2px rgb(0, 0, 0), 0 0 4px rgb(255, 0, 0)",
		},
		{
			name:     "svg fill attribute",
			markup:   `<svg><rect id="a" width="10" height="10" fill="#ff0000"/></svg>`,
			id:       "a",
			property: "fill",
			want:     "rgb(255, 0, 0)",
		},
		{
			name:     "author rule beats presentation attribute",
			markup:   `<style>rect{fill:blue}</style><svg><rect id="a" width="10" height="10" fill="#ff0000"/></svg>`,
			id:       "a",
			property: "fill",
			want:     "rgb(0, 0, 255)",
		},
		{
			name:     "media query not matching",
			markup:   `<style>p{color:red} @media (max-width: 600px){p{color:blue}}</style><p id="a">x</p>`,
			id:       "a",
			property: "color",
			want:     "rgb(255, 0, 0)",
		},
		{
			name:     "print media ignored",
			markup:   `<style media="print">p{color:blue}</style><p id="a">x</p>`,
			id:       "a",
			property: "color",
			want:     "rgb(0, 0, 0)",
		},
		{
			name:     "ua display",
			markup:   `<ul><li id="a">x</li></ul>`,
			id:       "a",
			property: "display",
			want:     "list-item",
		},
		{
			name:     "em font size",
			markup:   `<div style="font-size:20px"><p id="a" style="font-size:1.5em">x</p></div>`,
			id:       "a",
			property: "font-size",
			want:     "30px",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.markup, Options{})
			st := styleOf(t, byID(t, doc, tt.id), dom.PseudoNone)
			if got := st.Get(tt.property); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.property, got, tt.want)
			}
		})
	}
}

func TestMediaQueries(t *testing.T) {
	markup := `<style>
p{color:red}
@media (max-width: 600px){p{color:blue}}
@media (prefers-color-scheme: dark){p{background-color:black}}
</style><p id="a">x</p>`

	tests := []struct {
		name  string
		opts  Options
		color string
		bg    string
	}{
		{"desktop light", Options{}, "rgb(255, 0, 0)", "rgba(0, 0, 0, 0)"},
		{"narrow", Options{ViewportWidth: 500}, "rgb(0, 0, 255)", "rgba(0, 0, 0, 0)"},
		{"dark", Options{ColorScheme: "dark"}, "rgb(255, 0, 0)", "rgb(0, 0, 0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := styleOf(t, byID(t, mustParse(t, markup, tt.opts), "a"), dom.PseudoNone)
			if got := st.Get("color"); got != tt.color {
				t.Errorf("color = %q, want %q", got, tt.color)
			}
			if got := st.Get("background-color"); got != tt.bg {
				t.Errorf("background-color = %q, want %q", got, tt.bg)
			}
		})
	}
}

func TestPseudoElementStyles(t *testing.T) {
	doc := mustParse(t, `<style>
p{color:#ff0000}
p::before{content:"*";color:#00ff00;background:#0000ff}
p:after{content:"!"}
</style><p id="a">x</p>`, Options{})
	el := byID(t, doc, "a")

	before := styleOf(t, el, dom.PseudoBefore)
	if got := before.Get("color"); got != "rgb(0, 255, 0)" {
		t.Errorf("::before color = %q", got)
	}
	if got := before.Get("background-color"); got != "rgb(0, 0, 255)" {
		t.Errorf("::before background-color = %q", got)
	}

	after := styleOf(t, el, dom.PseudoAfter)
	if got := after.Get("color"); got != "rgb(255, 0, 0)" {
		t.Errorf("::after color = %q, want inherited rgb(255, 0, 0)", got)
	}

	own := styleOf(t, el, dom.PseudoNone)
	if got := own.Get("background-color"); got != "rgba(0, 0, 0, 0)" {
		t.Errorf("pseudo rule leaked into element: background-color = %q", got)
	}

	if _, err := el.Style(dom.Pseudo("::marker")); !errors.Is(err, dom.ErrStyleUnavailable) {
		t.Errorf("Style(::marker) error = %v, want ErrStyleUnavailable", err)
	}
}

func TestLayout(t *testing.T) {
	doc := mustParse(t, `<body>
<div id="box" style="width:100px;height:100px"></div>
<div id="full">block</div>
<div id="hidden" hidden>gone</div>
<div id="none" style="display:none"><p id="child">gone</p></div>
<div id="upper" style="width:50px;height:50px;display:NONE"></div>
<span id="inline">hello</span>
<svg id="svg" width="40" height="20"><circle id="dot" cx="10" cy="10" r="5"/></svg>
<table><tr><td id="c1">a</td><td id="c2">b</td></tr></table>
</body>`, Options{ViewportWidth: 1000})

	tests := []struct {
		id            string
		width, height float64
	}{
		{"box", 100, 100},
		{"hidden", 0, 0},
		{"none", 0, 0},
		{"child", 0, 0},
		{"upper", 0, 0},
		{"svg", 40, 20},
		{"dot", 10, 10},
		{"c1", 500, 19.2},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r := byID(t, doc, tt.id).Rect()
			if !approx(r.Width, tt.width) || !approx(r.Height, tt.height) {
				t.Errorf("rect = %vx%v, want %vx%v", r.Width, r.Height, tt.width, tt.height)
			}
		})
	}

	full := byID(t, doc, "full").Rect()
	if full.Width != 1000 || full.Empty() {
		t.Errorf("block rect = %+v, want full width and non-zero height", full)
	}

	inline := byID(t, doc, "inline").Rect()
	if inline.Empty() || inline.Width >= 1000 {
		t.Errorf("inline rect = %+v, want shrink-to-fit", inline)
	}

	c1, c2 := byID(t, doc, "c1").Rect(), byID(t, doc, "c2").Rect()
	if c2.X <= c1.X {
		t.Errorf("table cells not side by side: %+v %+v", c1, c2)
	}
}

func TestComputedKeywordsAndOpacity(t *testing.T) {
	tests := []struct {
		style    string
		property string
		want     string
	}{
		{"display:BLOCK", "display", "block"},
		{"display: Inline-Block ", "display", "inline-block"},
		{"visibility:HIDDEN", "visibility", "hidden"},
		{"opacity:0.0", "opacity", "0"},
		{"opacity:0%", "opacity", "0"},
		{"opacity:50%", "opacity", "0.5"},
		{"opacity:.25", "opacity", "0.25"},
		{"opacity:3", "opacity", "1"},
		{"opacity:-1", "opacity", "0"},
		{"opacity:bogus", "opacity", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.style, func(t *testing.T) {
			doc := mustParse(t, `<p id="a" style="`+tt.style+`">x</p>`, Options{})
			if got := styleOf(t, byID(t, doc, "a"), dom.PseudoNone).Get(tt.property); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.property, got, tt.want)
			}
		})
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 0.001 && d > -0.001
}

func TestLinkedStylesheets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		switch r.URL.Path {
		case "/css/site.css":
			_, _ = w.Write([]byte(`@import url("theme.css"); p{color:#00ff00}`))
		case "/css/theme.css":
			_, _ = w.Write([]byte(`p{color:red;background-color:#abcdef}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	markup := `<html><head>
<link rel="stylesheet" href="css/site.css">
<link rel="stylesheet" href="css/missing.css">
</head><body><p id="a">x</p></body></html>`

	t.Run("fetched", func(t *testing.T) {
		doc := mustParse(t, markup, Options{
			BaseURL: srv.URL + "/",
			Fetcher: HTTPFetcher(httputil.FetchOptions{}),
		})
		st := styleOf(t, byID(t, doc, "a"), dom.PseudoNone)
		if got := st.Get("color"); got != "rgb(0, 255, 0)" {
			t.Errorf("color = %q, want rule after @import to win", got)
		}
		if got := st.Get("background-color"); got != "rgb(171, 205, 239)" {
			t.Errorf("background-color = %q, want imported rule", got)
		}
	})

	t.Run("no fetcher", func(t *testing.T) {
		doc := mustParse(t, markup, Options{BaseURL: srv.URL + "/"})
		st := styleOf(t, byID(t, doc, "a"), dom.PseudoNone)
		if got := st.Get("color"); got != "rgb(0, 0, 0)" {
			t.Errorf("color = %q, want default", got)
		}
	})
}

func TestDocumentStructure(t *testing.T) {
	doc := mustParse(t, `<p class="lead intro" id="a">Hello <b>world</b></p>`, Options{})

	if doc.Root() == nil || doc.Root().Tag() != "html" {
		t.Fatalf("Root() = %v", doc.Root())
	}
	if doc.Body() == nil || doc.Body().Tag() != "body" {
		t.Fatalf("Body() = %v", doc.Body())
	}
	if doc.Root().Parent() != nil {
		t.Errorf("root has a parent")
	}

	el := byID(t, doc, "a")
	if got := el.Text(); got != "Hello world" {
		t.Errorf("Text() = %q", got)
	}
	if got := el.Classes(); len(got) != 2 || got[0] != "lead" || got[1] != "intro" {
		t.Errorf("Classes() = %v", got)
	}
	if el.Parent() == nil || el.Parent().Tag() != "body" {
		t.Errorf("Parent() = %v", el.Parent())
	}
}

func TestLengthToPx(t *testing.T) {
	lc := lengthContext{percent: 200, fontSize: 20, vw: 1000, vh: 500}
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"10px", 10, true},
		{"2rem", 32, true},
		{"2em", 40, true},
		{"10vw", 100, true},
		{"10vh", 50, true},
		{"50%", 100, true},
		{"12pt", 16, true},
		{"7", 7, true},
		{"auto", 0, false},
		{"", 0, false},
		{"calc(1px + 2px)", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := lengthToPx(tt.in, lc)
			if ok != tt.ok || !approx(got, tt.want) {
				t.Errorf("lengthToPx(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
