package main

import (
	"flag"
	"fmt"
	"github.com/funvibe/kerntrace/internal/backend"
	"github.com/funvibe/kerntrace/internal/compiler"
	"github.com/funvibe/kerntrace/internal/config"
	"github.com/funvibe/kerntrace/internal/diagnostics"
	"github.com/funvibe/kerntrace/internal/lexer"
	"github.com/funvibe/kerntrace/internal/parser"
	"github.com/funvibe/kerntrace/internal/pipeline"
	"github.com/mattn/go-isatty"
	"io"
	"log"
	"os"
	"strings"
)

const (
	colorRed   = "\x1b[31m"
	colorReset = "\x1b[0m"
)

// stderrIsTerminal reports whether diagnostics may be colourised.
func stderrIsTerminal() bool {
	if os.Getenv("TERM") == "dumb" || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <kernel%s>\n", os.Args[0], config.SourceFileExtensions[0])
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "YAML options file")
	entry := flag.String("entry", "", "kernel to trace (overrides config)")
	emit := flag.String("emit", "", "output format: text or yaml (overrides config)")
	params := flag.String("params", "", "comma-separated runtime parameter types, e.g. i32,tensor<4xf32>")
	lineInfo := flag.Bool("loc", false, "attach source locations to emitted ops")
	verbose := flag.Bool("v", false, "log specialization events")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	sourcePath := flag.Arg(0)

	opts := config.DefaultOptions()
	if *configPath != "" {
		loaded, err := config.LoadOptions(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading options: %s\n", err)
			os.Exit(1)
		}
		opts = loaded
	}
	if *entry != "" {
		opts.Entry = *entry
	}
	if *emit != "" {
		opts.Emit = *emit
	}
	if *params != "" {
		opts.Params = strings.Split(*params, ",")
	}
	if *lineInfo {
		opts.DisableLineInfo = false
	}
	if *verbose {
		opts.Verbose = true
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	sourceCode, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading source file: %s\n", err)
		os.Exit(1)
	}

	var logOut io.Writer = io.Discard
	if opts.Verbose {
		logOut = os.Stderr
	}
	logger := log.New(logOut, "kerntrace: ", 0)

	out, err := backend.ForOptions(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	initialContext := pipeline.NewPipelineContext(string(sourceCode))
	initialContext.FilePath = sourcePath
	initialContext.Options = opts

	processingPipeline := pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&compiler.TraceProcessor{Logger: logger},
		backend.NewEmitProcessor(out, os.Stdout),
	)

	finalContext := processingPipeline.Run(initialContext)
	if len(finalContext.Errors) > 0 {
		color := stderrIsTerminal()
		for _, err := range finalContext.Errors {
			if color {
				fmt.Fprintf(os.Stderr, "%s%s%s %s\n", colorRed, diagnostics.Code(err), colorReset, err)
			} else {
				fmt.Fprintf(os.Stderr, "%s %s\n", diagnostics.Code(err), err)
			}
		}
		os.Exit(1)
	}
}
