package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Swapped by tests
var (
	stdin          io.Reader = os.Stdin
	stdout         io.Writer = os.Stdout
	stderr         io.Writer = os.Stderr
	writeClipboard           = clipboard.WriteAll
)

const usage = `betabet translates text with a reversible character substitution table.

Usage:
  betabet encrypt  [-mapping file] [-nfc] [-copy] [text...]
  betabet decrypt  [-mapping file] [-nfc] [-copy] [text...]
  betabet validate [-mapping file]
  betabet serve    [-listen addr]
  betabet version

Text is read from stdin when no arguments are given.
`

func main() {
	flag.Usage = func() {
		_, _ = fmt.Fprint(flag.CommandLine.Output(), usage)
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	os.Exit(run(args))
}

func run(args []string) int {
	switch args[0] {
	case "encrypt":
		return runTranslate(opEncrypt, args[1:])
	case "decrypt":
		return runTranslate(opDecrypt, args[1:])
	case "validate":
		return runValidate(args[1:])
	case "serve":
		return runServe(args[1:])
	case "version":
		return runVersion()
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		_, _ = fmt.Fprint(stderr, usage)
		return 2
	}
}

func runVersion() int {
	_, _ = fmt.Fprintf(stdout, "betabet %s\n", Version)
	_, _ = fmt.Fprintf(stdout, "Git Commit: %s\n", GitCommit)
	_, _ = fmt.Fprintf(stdout, "Build Time: %s\n", BuildTime)
	return 0
}
