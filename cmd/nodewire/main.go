// ABOUTME: CLI entrypoint for nodewire with serve, validate, export, preview, and version subcommands.
// ABOUTME: Wires the HTTP server, workflow validator, exporters, and terminal preview to command-line arguments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2389-research/nodewire/server"
	"github.com/2389-research/nodewire/tui"
	"github.com/2389-research/nodewire/workflow"
	"github.com/2389-research/nodewire/workflow/validator"
	tea "github.com/charmbracelet/bubbletea"
)

var version = "dev"

// errUsage marks argument errors, which exit 2 rather than 1.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stderr, version)
		return 2
	}

	switch args[0] {
	case "serve":
		return runServe(args[1:], stderr)
	case "validate":
		return runValidate(args[1:], stdout, stderr)
	case "export":
		return runExport(args[1:], stdout, stderr)
	case "preview":
		return runPreview(args[1:], stderr)
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "nodewire %s\n", version)
		return 0
	case "help", "-h", "-help", "--help":
		printHelp(stdout, version)
		return 0
	default:
		fmt.Fprintf(stderr, "error: unknown command %q\n\n", args[0])
		printHelp(stderr, version)
		return 2
	}
}

// newFlagSet returns a flag set that reports parse errors to stderr.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// exitCode maps a command error to its process exit code.
func exitCode(err error) int {
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}

// parseFlags parses args and returns the exit code to use when parsing
// should stop the command, or -1 to continue.
func parseFlags(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	return -1
}

// readWorkflow loads and imports the workflow file named by the single
// positional argument.
func readWorkflow(fs *flag.FlagSet) (*workflow.Graph, string, error) {
	if fs.NArg() != 1 {
		return nil, "", fmt.Errorf("%w: %s expects exactly one workflow file", errUsage, fs.Name())
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read %s: %w", path, err)
	}
	g, err := workflow.Import(data)
	if err != nil {
		return nil, path, fmt.Errorf("%s: %w", path, err)
	}
	return g, path, nil
}

func runServe(args []string, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	envFile := fs.String("env-file", ".env", "dotenv file to load before reading configuration")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	if err := server.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
	}

	home, err := defaultDataDir()
	if err != nil {
		fmt.Fprintf(stderr, "warning: could not resolve data dir: %v\n", err)
	}

	cfg, err := server.LoadConfig(home)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if err := server.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("validate", stderr)
	strict := fs.Bool("strict", false, "also require the graph to form a single connected component")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	g, path, err := readWorkflow(fs)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}

	msgs := validator.Messages(validator.Lint(g.Nodes, g.Edges, validator.Options{StrictConnectivity: *strict}))
	if len(msgs) == 0 {
		fmt.Fprintln(stdout, tui.ValidStyle.Render(path+": valid"))
		return 0
	}
	for _, msg := range msgs {
		fmt.Fprintln(stdout, tui.ErrorStyle.Render(path+": "+msg))
	}
	return 1
}

func runExport(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("export", stderr)
	format := fs.String("format", "json", "output format: json, yaml, markdown, html")
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	g, _, err := readWorkflow(fs)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	g.Propagate()

	out, err := render(g, *format, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if _, err := io.WriteString(stdout, out); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// render produces g in the named export format.
func render(g *workflow.Graph, format string, now time.Time) (string, error) {
	switch format {
	case "", "json":
		data, err := workflow.Export(g, now)
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case "yaml":
		return workflow.ExportYAML(g, now)
	case "markdown", "md":
		return workflow.ExportMarkdown(g), nil
	case "html":
		return workflow.RenderHTML(workflow.ExportMarkdown(g))
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

func runPreview(args []string, stderr io.Writer) int {
	fs := newFlagSet("preview", stderr)
	if code := parseFlags(fs, args); code >= 0 {
		return code
	}

	g, path, err := readWorkflow(fs)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}

	p := tea.NewProgram(tui.NewPreviewModel(g, path), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
