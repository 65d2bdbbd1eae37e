package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/csvimport"
	"go.uber.org/zap"
)

type lineOutcome struct {
	Line   int
	Status string
	Detail string
}

func newValidateCommand(logger func() *zap.Logger) *cobra.Command {
	var (
		strict   bool
		timezone string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a CSV file the way the import endpoint would",
		Long: `Parse a CSV file and print one outcome per data line: ok, invalid
(well formed but failing validation) or failed (unreadable).

Use "-" to read from standard input.

Examples:
  healthctl validate records.csv
  healthctl validate --strict --timezone Europe/Budapest records.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone: %w", err)
			}
			policy := csvimport.DateBestEffort
			if strict {
				policy = csvimport.DateStrict
			}

			res := csvimport.NewParser(policy, loc, time.Now, logger()).Parse(content)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				printOutcomes(cmd.OutOrStdout(), res)
			}
			return res.Err()
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat unparseable measurement times as invalid instead of using the current time")
	cmd.Flags().StringVar(&timezone, "timezone", "Local", "Time zone for measurement times without an offset")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full parse result as JSON")
	return cmd
}

func readInput(cmd *cobra.Command, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

func printOutcomes(w io.Writer, res *csvimport.Result) {
	outcomes := make([]lineOutcome, 0, res.Total())
	for _, c := range res.Valid {
		detail := c.RecordType
		if c.TimeDefaulted {
			detail += " (measurement time defaulted to now)"
		}
		outcomes = append(outcomes, lineOutcome{c.Line, "ok", detail})
	}
	for _, r := range res.Invalid {
		outcomes = append(outcomes, lineOutcome{r.Candidate.Line, "invalid", r.Reason})
	}
	for _, f := range res.Failed {
		outcomes = append(outcomes, lineOutcome{f.Line, "failed", f.Reason})
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Line < outcomes[j].Line })

	if res.HeaderSkipped {
		fmt.Fprintln(w, "line 1\theader")
	}
	for _, o := range outcomes {
		fmt.Fprintf(w, "line %d\t%s\t%s\n", o.Line, o.Status, o.Detail)
	}
	fmt.Fprintf(w, "%d lines: %d ok, %d invalid, %d failed\n",
		res.Total(), len(res.Valid), len(res.Invalid), len(res.Failed))
}
