// ABOUTME: Help display for the nodewire CLI with subcommands, flags, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for configuration variable detection.
package main

import (
	"fmt"
	"io"
	"os"
)

// printHelp writes usage patterns, flags, examples, and the state of the
// server's environment variables to w.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "nodewire %s: input/output workflow validator and editor server\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  nodewire serve [-env-file .env]           Start the HTTP API server")
	fmt.Fprintln(w, "  nodewire validate [-strict] <file.json>   Print validation errors; exit 1 if any")
	fmt.Fprintln(w, "  nodewire export [-format fmt] <file.json> Write the workflow as json, yaml, markdown, or html")
	fmt.Fprintln(w, "  nodewire preview <file.json>              Edit input values with live output preview")
	fmt.Fprintln(w, "  nodewire version                          Print version and exit")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  nodewire validate workflow-2025-03-14.json")
	fmt.Fprintln(w, "  nodewire validate -strict workflow.json")
	fmt.Fprintln(w, "  nodewire export -format markdown workflow.json > workflow.md")
	fmt.Fprintln(w, "  NODEWIRE_BACKEND=jsonl nodewire serve")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	for _, key := range []string{
		"NODEWIRE_HOME",
		"NODEWIRE_BIND",
		"NODEWIRE_ALLOW_REMOTE",
		"NODEWIRE_AUTH_TOKEN",
		"NODEWIRE_BACKEND",
		"NODEWIRE_REDIS_URL",
		"NODEWIRE_LOG_LEVEL",
		"NODEWIRE_LOG_FORMAT",
	} {
		fmt.Fprintf(w, "  %-22s %s\n", key, envStatus(key))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Docs: https://github.com/2389-research/nodewire")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}
