package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/theirongolddev/jobmetrics/internal/cli"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printShown prints the "showing N of M" footnote when --limit cut rows off.
func printShown(shown, matched int) {
	if shown < matched {
		fmt.Print(cli.RenderNote(fmt.Sprintf("Showing %d of %d. Use --limit 0 for all.", shown, matched)))
	}
}

func printEmpty(what string) {
	fmt.Printf("\n  No %s match the current filters.\n", what)
}
