package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pagetint/internal/colour"
)

var (
	// Scale command flags
	scaleJSON    bool
	scalePreview bool
)

// scaleStep is one entry of a tint/shade scale.
type scaleStep struct {
	Percent int        `json:"percent"`
	Color   colour.Hex `json:"color"`
}

// scaleCmd represents the scale command
var scaleCmd = &cobra.Command{
	Use:   "scale <colour>",
	Short: "Show the tint and shade scale of a colour",
	Long: `Print eleven shades of a colour from -100% (black) through the colour
itself to +100%, each channel scaled by the same factor.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := parseColourArg(args[0])
		if err != nil {
			return err
		}

		ramp := colour.Scale(base)
		steps := make([]scaleStep, len(ramp))
		for i, c := range ramp {
			steps[i] = scaleStep{Percent: i*20 - 100, Color: c}
		}

		if scaleJSON {
			return writeJSON(cmd.OutOrStdout(), steps)
		}

		t := NewTable([]string{"Step", "Colour"})
		for _, s := range steps {
			cell := string(s.Color)
			if scalePreview {
				cell = colour.FormatColourWithPreview(s.Color, previewWidth)
			}
			t.AddRow([]string{fmt.Sprintf("%+d%%", s.Percent), cell})
		}
		fmt.Fprint(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

func init() {
	scaleCmd.Flags().BoolVar(&scaleJSON, "json", false, "print as JSON")
	scaleCmd.Flags().BoolVar(&scalePreview, "preview", true, "show colour previews in terminal")
}
