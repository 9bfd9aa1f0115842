package cli

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/pagetint/internal/colour"
	"github.com/jmylchreest/pagetint/internal/contrast"
)

const previewWidth = 6

// formatPalette formats ranked colours in the requested format.
func formatPalette(colours []colour.WeightedColour, format string, preview bool) (string, error) {
	switch format {
	case "hex", "":
		return formatHex(colours, preview), nil
	case "table":
		return formatColourTable(colours, colour.ClassifiedPalette{}, preview), nil
	case "json":
		if colours == nil {
			colours = []colour.WeightedColour{}
		}
		var b strings.Builder
		if err := writeJSON(&b, colours); err != nil {
			return "", err
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: hex, table, json, classified)", format)
	}
}

// formatHex lists one colour per line.
func formatHex(colours []colour.WeightedColour, preview bool) string {
	var b strings.Builder
	for _, c := range colours {
		if preview {
			b.WriteString(colour.FormatColourWithPreview(c.Color, previewWidth))
		} else {
			b.WriteString(string(c.Color))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatColourTable renders a table of colours with their share of the page
// and, when classified is non-empty, their role.
func formatColourTable(colours []colour.WeightedColour, classified colour.ClassifiedPalette, preview bool) string {
	withRoles := classified.Len() > 0
	headers := []string{"Colour", "Weight", "Share"}
	if withRoles {
		headers = append(headers, "Role")
	}

	t := NewTable(headers)
	for _, c := range colours {
		cell := string(c.Color)
		if preview {
			cell = colour.FormatColourWithPreview(c.Color, previewWidth)
		}
		row := []string{cell, fmt.Sprintf("%.1f", c.Weight), fmt.Sprintf("%.1f%%", c.Percentage)}
		if withRoles {
			row = append(row, string(classified.RoleOf(c.Color)))
		}
		t.AddRow(row)
	}
	return t.Render()
}

// formatClassified groups the palette by role.
func formatClassified(p colour.ClassifiedPalette, format string, preview bool) (string, error) {
	if format == "json" {
		data, err := p.ToJSON()
		if err != nil {
			return "", fmt.Errorf("failed to convert to JSON: %w", err)
		}
		return string(data) + "\n", nil
	}

	var b strings.Builder
	for _, role := range colour.Roles {
		group := p.Get(role)
		fmt.Fprintf(&b, "%s (%d)\n", role, len(group))
		for _, c := range group {
			label := string(c.Color)
			if preview {
				label = colour.FormatColourWithPreview(c.Color, previewWidth)
			}
			fmt.Fprintf(&b, "  %s  %5.1f%%\n", label, c.Percentage)
		}
	}
	return b.String(), nil
}

// formatIssues renders contrast issues as a table.
func formatIssues(issues []contrast.Issue, preview bool) string {
	if len(issues) == 0 {
		return "No contrast issues found.\n"
	}

	t := NewTable([]string{"#", "Ratio", "Level", "Colours", "Selector", "Text"})
	t.SetColumnMaxWidth(5, 40)
	for _, issue := range issues {
		pair := fmt.Sprintf("%s on %s", issue.Foreground, issue.Background)
		if preview && colour.SupportsANSIColours() {
			pair = colour.TextSample(issue.Foreground.RGB(), issue.Background.RGB(), " Aa ") + " " + pair
		}
		t.AddRow([]string{
			fmt.Sprintf("%d", issue.ElementIndex),
			fmt.Sprintf("%.2f", issue.Ratio),
			string(issue.Level()),
			pair,
			issue.Selector,
			issue.Text,
		})
	}
	return t.Render()
}

// formatPair renders a contrast pair check.
func formatPair(r colour.PairResult, preview bool) string {
	line := fmt.Sprintf("%s on %s: %.2f:1 %s", r.Foreground, r.Background, r.Ratio, r.Level)
	if preview && colour.SupportsANSIColours() {
		line = colour.TextSample(r.Foreground.RGB(), r.Background.RGB(), " Sample text ") + " " + line
	}
	return line + "\n"
}
