package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evalforge/ablate/internal/record"
	"github.com/evalforge/ablate/internal/store"
)

// TableSource selects where an analysis command reads its result table:
// a canonical CSV file, or a stored run in a SQLite database.
type TableSource struct {
	CSV   string
	DB    string
	RunID string // empty means the latest stored run
}

// addTableFlags registers the shared table-source flags on a command.
func addTableFlags(cmd *cobra.Command, s *TableSource) {
	cmd.Flags().StringVar(&s.CSV, "csv", "", "path to a canonical CSV result table")
	cmd.Flags().StringVar(&s.DB, "db", "", "path to a SQLite database of stored runs")
	cmd.Flags().StringVar(&s.RunID, "run", "", "run id within --db (default: latest)")
}

// Load reads the result table from whichever source was configured.
// Exactly one of --csv / --db must be set.
func (s *TableSource) Load(ctx context.Context) ([]record.Evaluation, error) {
	switch {
	case s.CSV != "" && s.DB != "":
		return nil, NewExitError(ExitCommandError, "set either --csv or --db, not both")
	case s.CSV != "":
		f, err := os.Open(s.CSV)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open table", err)
		}
		defer f.Close()
		records, err := record.ReadCSV(f)
		if err != nil {
			return nil, WrapExitError(ExitFailure, "read table", err)
		}
		return records, nil
	case s.DB != "":
		st, err := store.Open(s.DB)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open database", err)
		}
		defer st.Close()
		runID := s.RunID
		if runID == "" {
			latest, err := st.LatestRun(ctx)
			if err != nil {
				return nil, WrapExitError(ExitCommandError, "resolve latest run", err)
			}
			runID = latest.ID
		}
		records, err := st.LoadRun(ctx, runID)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "load run", err)
		}
		return records, nil
	default:
		return nil, NewExitError(ExitCommandError, "a result table is required: set --csv or --db")
	}
}

// formatCell renders a float for text tables, keeping NaN readable.
func formatCell(v float64) string {
	if v != v {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
