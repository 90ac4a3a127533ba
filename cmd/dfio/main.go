package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

// Version is set at build time
var Version = "dev"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00CED1"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9B30FF")).
			Bold(true)

	descStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

type command struct {
	name string
	desc string
	run  func(args []string) error
}

var commands = []command{
	{"run", "benchmark the configured methods, operations, schemas and lengths", runCommand},
	{"sweep", "benchmark every method over the sweep schemas and lengths", sweepCommand},
	{"summary", "print a filtered summary of recorded results", summaryCommand},
	{"methods", "list the method catalogue with descriptors", methodsCommand},
}

func printUsage() {
	fmt.Fprintln(os.Stderr, titleStyle.Render("Usage:"))
	fmt.Fprintln(os.Stderr, "  dfio <command> [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, titleStyle.Render("Commands:"))
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-9s %s\n", commandStyle.Render(c.name), descStyle.Render(c.desc))
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, descStyle.Render("Settings come from dfio.toml and DFIO_* variables; flags override them."))
	fmt.Fprintln(os.Stderr, descStyle.Render("Run 'dfio <command> -h' for the flags of a command."))
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	name := os.Args[1]
	switch name {
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	case "version", "-version", "--version":
		fmt.Println("dfio", Version)
		return
	}

	for _, c := range commands {
		if c.name != name {
			continue
		}
		err := c.run(os.Args[2:])
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		if err != nil {
			log.Error().Err(err).Str("command", name).Msg("Command failed")
			fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
			if errors.Is(err, errUsage) {
				os.Exit(2)
			}
			os.Exit(1)
		}
		return
	}

	fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), fmt.Sprintf("unknown command %q", name))
	printUsage()
	os.Exit(2)
}
