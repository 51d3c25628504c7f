package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/appgraphgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList collects repeatable flag values.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("appgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
appgraph - a declarative application-graph launcher.

Usage:
  appgraph [options] [APP_PATH]

Arguments:
  APP_PATH
    Path to an application manifest (.hcl) or a subgraph definition (.json).

Options:
`)
		flagSet.PrintDefaults()
	}

	appFlag := flagSet.String("app", "", "Path to the application manifest.")
	graphFlag := flagSet.String("graph", "", "Path to a single subgraph JSON file.")
	prefixFlag := flagSet.String("prefix", "", "Node-name prefix applied to the -graph file.")
	var moduleFlags stringList
	flagSet.Var(&moduleFlags, "module", "Compiled-in module to activate. Repeatable.")
	var configFlags stringList
	flagSet.Var(&configFlags, "config", "Config override as node/component/key=value. Repeatable.")
	overlayFlag := flagSet.String("overlay", "", "Path to a JSON config overlay applied at run.")
	watchFlag := flagSet.Bool("watch", false, "Re-apply the overlay whenever the file changes.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	manifestPath := *appFlag
	graphPath := *graphFlag
	if manifestPath == "" && graphPath == "" && flagSet.NArg() > 0 {
		// A positional path is routed on its extension.
		path := flagSet.Arg(0)
		if strings.HasSuffix(path, ".hcl") {
			manifestPath = path
		} else {
			graphPath = path
		}
	}

	if manifestPath == "" && graphPath == "" {
		slog.Debug("No application path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ManifestPath: manifestPath,
		GraphPath:    graphPath,
		Prefix:       *prefixFlag,
		Modules:      moduleFlags,
		Overrides:    configFlags,
		OverlayPath:  *overlayFlag,
		Watch:        *watchFlag,
		StatusPort:   *statusPortFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
