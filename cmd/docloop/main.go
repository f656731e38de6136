// Command docloop is the CLI for the document feedback loop.
//
// Usage:
//
//	docloop run "Write a memo about code review checklists" --type email
//	docloop run --provider scripted --checkpoint runs.db --run-id memo-1 < prompt.txt
//	docloop resume --run-id memo-1 --checkpoint runs.db
//	docloop schema review
//	docloop ask "What makes a good executive summary?"
package main

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailed     = 1
	exitIncomplete = 2
)

// CLI defines the command-line interface.
type CLI struct {
	Run     RunCmd     `cmd:"" help:"Run the feedback loop for a new document."`
	Resume  ResumeCmd  `cmd:"" help:"Resume a checkpointed run."`
	Schema  SchemaCmd  `cmd:"" help:"Print the JSON schema of the stage records."`
	Ask     AskCmd     `cmd:"" help:"Ask the configured model a single question."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to a YAML or JSON config file." type:"path"`
	EnvFile   string `name:"env-file" help:"Path to a .env file." default:".env" type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFormat string `help:"Log format (text, json)."`
}

// exitError carries a non-zero exit code without an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("docloop version %s\n", version())
	return nil
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
	}
	return "dev"
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("docloop"),
		kong.Description("Plan, draft, review and revise a document until it is final."),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	ctx.FatalIfErrorf(err)
}
