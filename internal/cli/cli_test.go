package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/store"
)

const fixturePage = `<html style="color: transparent"><body style="background:#ffffff">
<div style="width:200px;height:100px;background:#3366ff"></div>
<div style="width:100px;height:100px;background:#ff9900"></div>
<p style="color:#cccccc">Faint</p>
<p style="color:#000000">Readable</p>
</body></html>`

// setup isolates configuration and history, and returns a page file.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("PAGETINT_STORE_PATH", filepath.Join(dir, "history.db"))
	t.Setenv("PAGETINT_TEMPLATE_DIR", filepath.Join(dir, "templates"))
	t.Setenv("PAGETINT_PLUGIN_DIR", filepath.Join(dir, "exporters"))

	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte(fixturePage), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveKind(t *testing.T) {
	tests := []struct {
		target  string
		kind    string
		want    string
		wantErr bool
	}{
		{"https://example.com", "auto", sourceStatic, false},
		{"page.html", "", sourceStatic, false},
		{"capture.JSON", "auto", sourceSnapshot, false},
		{"capture.json", "static", sourceStatic, false},
		{"https://example.com", "live", sourceLive, false},
		{"page.html", "live", "", true},
		{"page.html", "carrier-pigeon", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.target+"/"+tt.kind, func(t *testing.T) {
			got, err := resolveKind(tt.target, tt.kind)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveKind() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractCommand(t *testing.T) {
	page := setup(t)

	out, err := execute(t, "extract", "--format", "json", page)
	if err != nil {
		t.Fatalf("extract error = %v", err)
	}
	var colours []colour.WeightedColour
	if err := json.Unmarshal([]byte(out), &colours); err != nil {
		t.Fatalf("output is not a colour list: %v\n%s", err, out)
	}
	if len(colours) == 0 || colours[0].Color != "#FFFFFF" {
		t.Errorf("colours = %+v, want the body background first", colours)
	}

	out, err = execute(t, "extract", "--format", "hex", "--filter", "3366", page)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "#3366FF" {
		t.Errorf("filtered hex output = %q", out)
	}
}

func TestExtractClassifiedByRole(t *testing.T) {
	page := setup(t)

	out, err := execute(t, "extract", "--format", "classified", "--role", "accent", page)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"primary (0)", "secondary (0)", "accent ("} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "extract", "--role", "background", page); err == nil {
		t.Error("unknown role accepted")
	}
}

func TestAuditCommand(t *testing.T) {
	page := setup(t)

	out, err := execute(t, "audit", "--format", "json", page)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"foreground": "#CCCCCC"`) {
		t.Errorf("audit output = %s", out)
	}

	out, err = execute(t, "audit", "--format", "table", page)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "#CCCCCC on #FFFFFF") || !strings.Contains(out, "Fail") {
		t.Errorf("audit table = %s", out)
	}

	// Highlighting is ignored for static pages.
	if _, err := execute(t, "audit", "--format", "table", "--highlight", "0", page); err != nil {
		t.Errorf("audit --highlight on a static page error = %v", err)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	page := setup(t)

	out, err := execute(t, "analyze", "--format", "json", page)
	if err != nil {
		t.Fatal(err)
	}
	var r report
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatal(err)
	}
	if len(r.Colors) == 0 || len(r.Issues) != 1 || r.Classified.Len() == 0 {
		t.Errorf("report = %+v", r)
	}
}

func TestContrastCommand(t *testing.T) {
	setup(t)

	out, err := execute(t, "contrast", "--json", "#777777", "white")
	if err != nil {
		t.Fatal(err)
	}
	var r colour.PairResult
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatal(err)
	}
	if r.Level != colour.LevelAALarge || r.Foreground != "#777777" || r.Background != "#FFFFFF" {
		t.Errorf("pair = %+v", r)
	}

	if _, err := execute(t, "contrast", "transparent", "white"); err == nil {
		t.Error("transparent foreground accepted")
	}
}

func TestScaleCommand(t *testing.T) {
	setup(t)

	out, err := execute(t, "scale", "--json", "#3366FF")
	if err != nil {
		t.Fatal(err)
	}
	var steps []scaleStep
	if err := json.Unmarshal([]byte(out), &steps); err != nil {
		t.Fatal(err)
	}
	if len(steps) != colour.ScaleSteps {
		t.Fatalf("got %d steps", len(steps))
	}
	if steps[0].Percent != -100 || steps[0].Color != "#000000" || steps[5].Color != "#3366FF" {
		t.Errorf("steps = %+v", steps)
	}
}

func TestExportCommand(t *testing.T) {
	page := setup(t)

	out, err := execute(t, "export", "--format", "css", "--stdout", page)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, ":root {") || !strings.Contains(out, "--color-primary-1:") {
		t.Errorf("css export = %s", out)
	}

	dir := filepath.Join(t.TempDir(), "out")
	if _, err := execute(t, "export", "--format", "png", "--output", dir, page); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "palette.png")); err != nil {
		t.Errorf("palette.png not written: %v", err)
	}

	if _, err := execute(t, "export", "--format", "sass", page); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestExportListAndDump(t *testing.T) {
	setup(t)

	out, err := execute(t, "export", "--list")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"css", "tailwind", "figma", "json", "png"} {
		if !strings.Contains(out, name) {
			t.Errorf("--list missing %s", name)
		}
	}

	out, err = execute(t, "export", "--dump-template")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(os.Getenv("PAGETINT_TEMPLATE_DIR"), "css", "css.tmpl")
	if !strings.Contains(out, path) {
		t.Errorf("dump output = %q, want %s", out, path)
	}
	if _, err := execute(t, "export", "--dump-template"); err == nil {
		t.Error("second dump without --force succeeded")
	}
}

func TestHistoryCommand(t *testing.T) {
	page := setup(t)

	if _, err := execute(t, "extract", "--format", "hex", "--save", page); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "audit", "--format", "json", "--save", page); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "history", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var scans []store.Scan
	if err := json.Unmarshal([]byte(out), &scans); err != nil {
		t.Fatal(err)
	}
	if len(scans) != 2 || scans[0].Kind != store.KindAudit || scans[1].Kind != store.KindPalette {
		t.Fatalf("scans = %+v", scans)
	}

	out, err = execute(t, "history", scans[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "#3366FF") {
		t.Errorf("history detail = %s", out)
	}

	out, err = execute(t, "export", "--scan", scans[1].ID, "--format", "json", "--stdout")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "#3366FF") {
		t.Errorf("export from history = %s", out)
	}

	if _, err := execute(t, "history", "--kind", "screenshot"); err == nil {
		t.Error("unknown kind accepted")
	}
}
