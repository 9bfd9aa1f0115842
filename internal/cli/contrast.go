package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pagetint/internal/colour"
)

var (
	// Contrast command flags
	contrastJSON    bool
	contrastPreview bool
)

// contrastCmd represents the contrast command
var contrastCmd = &cobra.Command{
	Use:   "contrast <foreground> <background>",
	Short: "Check the contrast ratio of a colour pair",
	Long: `Compute the WCAG contrast ratio of a foreground colour on a background
colour and the level it reaches: AAA (7:1), AA (4.5:1), AA Large (3:1) or Fail.

Colours may be given in any CSS colour syntax.

Examples:
  pagetint contrast '#777' white
  pagetint contrast 'rgb(51, 102, 255)' '#101010' --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fg, err := parseColourArg(args[0])
		if err != nil {
			return err
		}
		bg, err := parseColourArg(args[1])
		if err != nil {
			return err
		}

		result := colour.CheckPair(fg, bg)
		if contrastJSON {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprint(cmd.OutOrStdout(), formatPair(result, contrastPreview))
		return nil
	},
}

func init() {
	contrastCmd.Flags().BoolVar(&contrastJSON, "json", false, "print as JSON")
	contrastCmd.Flags().BoolVar(&contrastPreview, "preview", true, "show a text sample in terminal")
}

// parseColourArg accepts any CSS colour and returns its opaque hex form.
func parseColourArg(value string) (colour.Hex, error) {
	c, err := colour.ParseCSS(value)
	if err != nil {
		return "", fmt.Errorf("invalid colour %q: %w", value, err)
	}
	if c.Transparent() {
		return "", fmt.Errorf("colour %q is transparent", value)
	}
	return c.RGB.Hex(), nil
}
