package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/dwigrid/internal/app"
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

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Only flags given on the command line override the run configuration file.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("dwigrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
dwigrid - Assembles the diffusion MRI post-processing graph of a preprocessed dataset.

Usage:
  dwigrid [options] [INPUT_DIR]

Arguments:
  INPUT_DIR
    Root of the preprocessed dataset. Optional when the configuration file sets execution.input_dir.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the run configuration file (.hcl).")
	cFlag := flagSet.String("c", "", "Path to the run configuration file (shorthand).")
	inputDirFlag := flagSet.String("input-dir", "", "Root of the preprocessed dataset.")
	outputDirFlag := flagSet.String("output-dir", "", "Directory receiving the derivatives. Defaults to a sibling of the input directory.")
	workDirFlag := flagSet.String("work-dir", "", "Working directory of the engine.")
	databaseDirFlag := flagSet.String("database-dir", "", "Directory of the persistent dataset index. Empty keeps the index in memory.")
	resetDatabaseFlag := flagSet.Bool("reset-database", true, "Rebuild the persistent dataset index.")
	atlasDirFlag := flagSet.String("atlas-dir", "", "Root of the built-in atlas files.")
	atlasCatalogFlag := flagSet.String("atlas-catalog", "", "File or directory of .hcl files registering additional atlases.")
	engineURLFlag := flagSet.String("engine-url", "", "socket.io endpoint the graph is submitted to.")
	participantFlag := flagSet.String("participant-label", "", "Comma-separated subject ids. Defaults to every subject.")
	atlasesFlag := flagSet.String("atlases", "", "Comma-separated atlas ids, or 'all'.")
	anatOnlyFlag := flagSet.Bool("anat-only", false, "Build the anatomical branch only.")
	tractographyFlag := flagSet.Bool("tractography", true, "Build the tractography and connectome branches.")
	siftFlag := flagSet.Bool("sift", true, "Filter streamlines with SIFT.")
	writeGraphFlag := flagSet.Bool("write-graph", false, "Write the graph to <work-dir>/graph.yaml.")
	stopFlag := flagSet.Bool("stop-on-first-failure", false, "Abort when a subject cannot be assembled.")
	validateAtlasesFlag := flagSet.Bool("validate-atlases", true, "Check that the selected atlas files exist.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	set := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })
	boolIfSet := func(name string, v *bool) *bool {
		if !set[name] {
			return nil
		}
		return v
	}

	configFile := *configFlag
	if configFile == "" {
		configFile = *cFlag
	}
	inputDir := *inputDirFlag
	if inputDir == "" && flagSet.NArg() > 0 {
		inputDir = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %v", flagSet.Args()[1:])}
	}
	slog.Debug("Inputs determined.", "input_dir", inputDir, "config", configFile)

	if inputDir == "" && configFile == "" {
		slog.Debug("No input directory or configuration file provided, printing usage and exiting.")
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
		ConfigFile:         configFile,
		InputDir:           inputDir,
		OutputDir:          *outputDirFlag,
		WorkDir:            *workDirFlag,
		DatabaseDir:        *databaseDirFlag,
		AtlasDir:           *atlasDirFlag,
		AtlasCatalog:       *atlasCatalogFlag,
		EngineURL:          *engineURLFlag,
		ParticipantLabel:   splitList(*participantFlag, "sub-"),
		Atlases:            splitList(*atlasesFlag, ""),
		AnatOnly:           boolIfSet("anat-only", anatOnlyFlag),
		DoTractography:     boolIfSet("tractography", tractographyFlag),
		DoSift:             boolIfSet("sift", siftFlag),
		ResetDatabase:      boolIfSet("reset-database", resetDatabaseFlag),
		WriteGraph:         boolIfSet("write-graph", writeGraphFlag),
		StopOnFirstFailure: boolIfSet("stop-on-first-failure", stopFlag),
		ValidateAtlases:    *validateAtlasesFlag,
		LogFormat:          logFormat,
		LogLevel:           logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// splitList turns "a, b,,c" into [a b c], dropping prefix from each item. An
// empty value yields nil so the configuration file keeps its list.
func splitList(v, prefix string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimPrefix(strings.TrimSpace(item), prefix)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
