/*
Glossa is a server for managing multi-party translation projects: it
holds a project's source/target segments, enforces the translation and
review workflow, grows a translation memory from confirmed work,
resolves controlled terminology, and exports finished segments to
plain text or XLIFF.

Various program settings are controlled by a TOML config file, which
must be available for the program to run. By default, the program will
look for a file called 'glossa.toml' in the same directory as its
binary.

The program must be run with a 'command' argument to indicate what you
would like it to do. Available commands are:

  - init-db: Creates or migrates the database schema.
  - serve: Starts an HTTP server providing a JSON API for the translation workflow.
  - export: Writes a project's TXT and XLIFF exports to the configured export path.
  - help: Prints usage instructions
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rmali83/Glossa/config"
	"github.com/rmali83/Glossa/server"
)

var (
	configPath string
)

const (
	cmdMissing      = "missing"
	cmdUnrecognised = "unrecognised"
	cmdHelp         = "help"
	cmdInitDb       = "init-db"
	cmdServe        = "serve"
	cmdExport       = "export"
)

func init() {
	defaultConfigPath := filepath.FromSlash("./glossa.toml")
	flag.StringVar(&configPath, "config", defaultConfigPath, "Full `path` and file name to the config file")
}

type Command interface {
	Run(config.Config)
}

type CommandFunc func(config.Config)

func (f CommandFunc) Run(c config.Config) {
	f(c)
}

// Gets list of available commands
func availableCommands() []string {
	return []string{cmdHelp, cmdInitDb, cmdServe, cmdExport}
}

func checkFatal(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Converts os.Args to one of the cmd* constants.
func parseArgs(args []string) (command string) {
	if len(args) < 1 {
		return cmdMissing
	}

	switch args[0] {
	case cmdHelp:
		return cmdHelp
	case cmdInitDb:
		return cmdInitDb
	case cmdServe:
		return cmdServe
	case cmdExport:
		return cmdExport
	}

	return cmdUnrecognised
}

// Prints a normal usage message.
func printUsage(c config.Config) {
	flag.PrintDefaults()
}

// Prints a usage message indicating that a command must be given.
func printMissingCommandUsage(c config.Config) {
	fmt.Fprintf(os.Stderr, "No command given. Command can be one of: %v\n\n", strings.Join(availableCommands(), ", "))
	printUsage(c)
}

// Prints a usage message indicating that the given command was not recognised.
func printUnrecognisedCommandUsage(cmd string) CommandFunc {
	return func(c config.Config) {
		fmt.Fprintf(os.Stderr, "Command '%v' not recognised. Command must be one of: %v\n\n", os.Args[1], strings.Join(availableCommands(), ", "))
		printUsage(c)
	}
}

func main() {
	flag.Parse()
	config, cfgErr := config.Load(configPath)
	var command = parseArgs(flag.Args())

	var commandFunc = CommandFunc(printMissingCommandUsage)
	switch command {
	case cmdUnrecognised:
		commandFunc = printUnrecognisedCommandUsage(command)
	case cmdHelp:
		commandFunc = CommandFunc(printUsage)
	case cmdInitDb:
		commandFunc = CommandFunc(initDb)
	case cmdServe:
		commandFunc = CommandFunc(server.Serve)
	case cmdExport:
		commandFunc = CommandFunc(exportProject)
	}

	// Invalid config only matters for non-'help' commands
	if command != cmdUnrecognised && command != cmdMissing && command != cmdHelp {
		checkFatal(cfgErr)
	}

	commandFunc.Run(config)
}
