// Command deltasyncctl is a cobra-based admin CLI for a running
// deltasyncd host's query surface, grounded on the teacher's
// cmd/rechainctl/main.go command tree — rewired from gRPC calls to
// plain HTTP requests against internal/api, since this repo drops the
// gRPC surface (see DESIGN.md).
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var apiAddr string

func main() {
	rootCmd := &cobra.Command{
		Use:   "deltasyncctl",
		Short: "Admin CLI for a deltasyncd host",
	}
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api-addr", "http://localhost:8080", "deltasyncd API address")

	rootCmd.AddCommand(
		headsCmd(),
		deltaCmd(),
		statsCmd(),
		contentHashCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func headsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heads",
		Short: "Show the current frontier",
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(getJSON("/heads"))
		},
	}
}

func deltaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delta",
		Short: "Delta operations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [id]",
			Short: "Get a delta by id",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				printJSON(getJSON("/deltas/" + args[0]))
			},
		},
		&cobra.Command{
			Use:   "has [id]",
			Short: "Check whether a delta is known",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				printJSON(getJSON("/deltas/" + args[0] + "/has"))
			},
		},
		&cobra.Command{
			Use:   "applied [id]",
			Short: "Check whether a delta is applied",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				printJSON(getJSON("/deltas/" + args[0] + "/applied"))
			},
		},
		&cobra.Command{
			Use:   "missing-parents [id]",
			Short: "List a delta's unrecorded parents",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				printJSON(getJSON("/deltas/" + args[0] + "/missing-parents"))
			},
		},
		&cobra.Command{
			Use:   "retry [id]",
			Short: "Retry applying a delta whose earlier apply failed",
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				printJSON(postJSON("/deltas/"+args[0]+"/retry", nil))
			},
		},
	)
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pending-buffer statistics and backpressure",
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(getJSON("/stats"))
		},
	}
}

func contentHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "content-hash",
		Short: "Show the current application content hash",
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(getJSON("/content-hash"))
		},
	}
}

func getJSON(path string) map[string]interface{} {
	resp, err := http.Get(apiAddr + path)
	if err != nil {
		fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return decodeBody(resp.Body)
}

func postJSON(path string, body io.Reader) map[string]interface{} {
	resp, err := http.Post(apiAddr+path, "application/json", body)
	if err != nil {
		fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	return decodeBody(resp.Body)
}

func decodeBody(r io.Reader) map[string]interface{} {
	var out map[string]interface{}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		fatalf("failed to decode response: %v", err)
	}
	return out
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("failed to marshal JSON: %v", err)
	}
	fmt.Println(string(data))
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
