package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportPath    string
	invalidateAll bool
	refresh       bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the metrics snapshot of a running server as JSON",
	Run:   runExport,
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate [subject_id]",
	Short: "Drop a subject, or every subject with --all, from all cache tiers",
	Args: func(cmd *cobra.Command, args []string) error {
		if invalidateAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Run: runInvalidate,
}

var getCmd = &cobra.Command{
	Use:   "get [subject_id]",
	Short: "Look up a profile through the running server",
	Args:  cobra.ExactArgs(1),
	Run:   runGet,
}

func init() {
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "output file (default stdout)")
	invalidateCmd.Flags().BoolVar(&invalidateAll, "all", false, "invalidate every subject")
	getCmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache and fetch from the source")
	rootCmd.AddCommand(exportCmd, invalidateCmd, getCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	body, _, err := call(context.Background(), "GET", "/health/detailed")
	if err != nil {
		slog.Error("Failed to fetch snapshot", "error", err)
		os.Exit(1)
	}

	if exportPath == "" {
		_, _ = os.Stdout.Write(body)
		return
	}
	if err := os.WriteFile(exportPath, body, 0o644); err != nil {
		slog.Error("Failed to write snapshot", "path", exportPath, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Snapshot written to %s\n", exportPath)
}

func runInvalidate(cmd *cobra.Command, args []string) {
	path := "/profiles"
	target := "all subjects"
	if !invalidateAll {
		path = profilePath(args[0])
		target = args[0]
	}

	if _, _, err := call(context.Background(), "DELETE", path); err != nil {
		slog.Error("Failed to invalidate", "target", target, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Invalidated %s\n", target)
}

func runGet(cmd *cobra.Command, args []string) {
	path := profilePath(args[0])
	if refresh {
		path += "?refresh=true"
	}
	body, header, err := call(context.Background(), "GET", path)
	if err != nil {
		slog.Error("Failed to fetch profile", "subject", args[0], "error", err)
		os.Exit(1)
	}
	fmt.Printf("origin=%s source=%s\n%s", header.Get("X-Profile-Origin"), header.Get("X-Profile-Source"), body)
}
