package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/profilecache/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the health snapshot of a running server",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	body, _, err := call(context.Background(), "GET", "/health/detailed")
	if err != nil {
		slog.Error("Failed to fetch status", "error", err)
		os.Exit(1)
	}

	var d health.Detailed
	if err := json.Unmarshal(body, &d); err != nil {
		slog.Error("Failed to parse status", "error", err)
		os.Exit(1)
	}
	printStatus(os.Stdout, d)
}

func printStatus(out io.Writer, d health.Detailed) {
	snap := d.Snapshot

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "STATUS\t%s\n", d.Status)
	_, _ = fmt.Fprintf(w, "HEALTH\t%s (%d/4 gates)\n", snap.Health, snap.Gates.Passed())
	_, _ = fmt.Fprintf(w, "HIT RATE\t%.2f%% of %d lookups\n", snap.Cache.HitRate*100, snap.Cache.Lookups)
	_, _ = fmt.Fprintf(w, "SUCCESS RATE\t%.2f%% of %d calls\n", snap.Recovery.SuccessRate*100, snap.Recovery.Calls)
	_, _ = fmt.Fprintf(w, "FAILURE STREAK\t%d\n", snap.Recovery.ConsecutiveFailures)
	_, _ = fmt.Fprintf(w, "AVG LATENCY\t%v\n", snap.Recovery.AverageLatency)
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TIER\tHITS\tMISSES\tERRORS")
	for _, t := range snap.Cache.Tiers {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", t.Name, t.Hits, t.Misses, t.Errors)
	}
	_ = w.Flush()

	if len(d.Checks) > 0 {
		names := make([]string, 0, len(d.Checks))
		for name := range d.Checks {
			names = append(names, name)
		}
		sort.Strings(names)

		_, _ = fmt.Fprintln(out)
		for _, name := range names {
			_, _ = fmt.Fprintf(out, "%s: %s\n", name, d.Checks[name])
		}
	}
}
