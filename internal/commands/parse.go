package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"fintrack/internal/service"
	"fintrack/pkg/llm"
	"fintrack/pkg/spreadsheet"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newParseCommand runs the offline half of the import pipeline against a
// local statement so layouts can be checked without the API.
func newParseCommand() *cobra.Command {
	var (
		sampleRows int
		dayFirst   bool
	)

	cmd := &cobra.Command{
		Use:   "parse <statement.xlsx|statement.csv>",
		Short: "Read a bank statement and print the heuristically mapped rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			return runParse(cmd.OutOrStdout(), filepath.Base(args[0]), data, sampleRows, dayFirst)
		},
	}

	cmd.Flags().IntVar(&sampleRows, "sample-rows", 40, "rows inspected when locating the header")
	cmd.Flags().BoolVar(&dayFirst, "day-first", true, "read ambiguous dates as DD/MM")

	return cmd
}

func runParse(w io.Writer, name string, data []byte, sampleRows int, dayFirst bool) error {
	grid, err := spreadsheet.Read(name, data)
	if err != nil {
		return err
	}

	detector := service.NewLayoutDetector(llm.NewClient(zap.NewNop()), sampleRows, dayFirst, zap.NewNop())
	result, err := detector.DetectHeuristic(grid)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
