// Command totcli checks, reformats and converts Tot documents.
//
//	totcli check config.tot
//	totcli fmt -w config.tot
//	totcli to -f json config.tot
//	totcli from config.yaml
//
// The TOT_LOG environment variable sets the log level; --logfile writes a
// rotated copy of the logs next to the terminal output.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/mitchellh/go-homedir"
	logging "github.com/op/go-logging"
	"gopkg.in/natefinch/lumberjack.v2"

	tot "github.com/totlang/tot-go"
	"github.com/totlang/tot-go/interop"
)

var log = logging.MustGetLogger("totcli")

var stderrFormat = logging.MustStringFormatter(
	`%{color:reset}%{color}%{time:15:04:05.000} [%{level}] [%{module}] %{message}`,
)

var fileFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} [%{level}] [%{module}] %{message}`,
)

type options struct {
	LogFile string `long:"logfile" description:"also write logs to this file, rotated at 10MB"`
}

var opts options
var parser = flags.NewParser(&opts, flags.Default)

func setupLogging() error {
	level := logging.DEBUG
	if env := os.Getenv("TOT_LOG"); env != "" {
		parsed, err := logging.LogLevel(env)
		if err != nil {
			return fmt.Errorf("invalid TOT_LOG %q: %w", env, err)
		}
		level = parsed
	}

	stderr := logging.AddModuleLevel(logging.NewBackendFormatter(
		logging.NewLogBackend(os.Stderr, "", 0), stderrFormat))
	stderr.SetLevel(level, "")
	backends := []logging.Backend{stderr}

	if opts.LogFile != "" {
		path, err := homedir.Expand(opts.LogFile)
		if err != nil {
			return err
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		}
		backends = append(backends, logging.NewBackendFormatter(
			logging.NewLogBackend(rotator, "", 0), fileFormat))
	}

	logging.SetBackend(backends...)
	return nil
}

func readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func writeOutput(name string, data []byte) error {
	if name == "" || name == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(name, data, 0644)
}

type checkCommand struct {
	Args struct {
		Files []string `positional-arg-name:"file" required:"1"`
	} `positional-args:"yes"`
}

func (c *checkCommand) Execute(args []string) error {
	failed := 0
	for _, name := range c.Args.Files {
		data, err := os.ReadFile(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			failed++
			continue
		}
		if _, err := tot.Parse(data); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed++
			continue
		}
		log.Debugf("%s: ok", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to parse", failed, len(c.Args.Files))
	}
	return nil
}

type fmtCommand struct {
	Write   bool `short:"w" long:"write" description:"rewrite files in place instead of printing"`
	Compact bool `short:"c" long:"compact" description:"emit one-line output"`
	Args    struct {
		Files []string `positional-arg-name:"file"`
	} `positional-args:"yes"`
}

func (c *fmtCommand) Execute(args []string) error {
	files := c.Args.Files
	if len(files) == 0 {
		files = []string{"-"}
	}
	if c.Write && files[0] == "-" {
		return errors.New("--write requires file arguments")
	}
	for _, name := range files {
		data, err := readInput(name)
		if err != nil {
			return err
		}
		parsed, err := tot.Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		var out []byte
		if c.Compact {
			out, err = tot.MarshalCompact(parsed)
			out = append(out, '\n')
		} else {
			out, err = tot.Marshal(parsed)
		}
		if err != nil {
			return err
		}
		if c.Write {
			if err := os.WriteFile(name, out, 0644); err != nil {
				return err
			}
			log.Debugf("rewrote %s", name)
		} else if err := writeOutput("", out); err != nil {
			return err
		}
	}
	return nil
}

type toCommand struct {
	Format string `short:"f" long:"format" choice:"json" choice:"yaml" choice:"toml" default:"json" description:"output format"`
	Output string `short:"o" long:"output" description:"write to this file instead of stdout"`
	Args   struct {
		File string `positional-arg-name:"file"`
	} `positional-args:"yes"`
}

func (c *toCommand) Execute(args []string) error {
	data, err := readInput(c.Args.File)
	if err != nil {
		return err
	}
	var out []byte
	switch c.Format {
	case "json":
		out, err = interop.ToJSON(data)
	case "yaml":
		out, err = interop.ToYAML(data)
	case "toml":
		out, err = interop.ToTOML(data)
	}
	if err != nil {
		return err
	}
	log.Debugf("converted %d bytes of Tot to %s", len(data), c.Format)
	return writeOutput(c.Output, out)
}

type fromCommand struct {
	Format string `short:"f" long:"format" choice:"json" choice:"yaml" choice:"toml" description:"input format (default: guessed from the file extension)"`
	Output string `short:"o" long:"output" description:"write to this file instead of stdout"`
	Args   struct {
		File string `positional-arg-name:"file"`
	} `positional-args:"yes"`
}

func (c *fromCommand) Execute(args []string) error {
	format := c.Format
	if format == "" {
		switch strings.ToLower(filepath.Ext(c.Args.File)) {
		case ".json":
			format = "json"
		case ".yaml", ".yml":
			format = "yaml"
		case ".toml":
			format = "toml"
		default:
			return errors.New("cannot guess the input format, pass --format")
		}
	}
	data, err := readInput(c.Args.File)
	if err != nil {
		return err
	}
	var out []byte
	switch format {
	case "json":
		out, err = interop.FromJSON(data)
	case "yaml":
		out, err = interop.FromYAML(data)
	case "toml":
		out, err = interop.FromTOML(data)
	}
	if err != nil {
		return err
	}
	log.Debugf("converted %d bytes of %s to Tot", len(data), format)
	return writeOutput(c.Output, out)
}

func main() {
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}
		return cmd.Execute(args)
	}
	parser.AddCommand("check", "Validate Tot documents",
		"Parse each file and report the first error in it, if any.", &checkCommand{})
	parser.AddCommand("fmt", "Reformat Tot documents",
		"Parse each file (or stdin) and print it back in canonical form.", &fmtCommand{})
	parser.AddCommand("to", "Convert Tot to JSON, YAML or TOML",
		"Parse a Tot file (or stdin) and print it in another format.", &toCommand{})
	parser.AddCommand("from", "Convert JSON, YAML or TOML to Tot",
		"Parse a file in another format (or stdin) and print it as Tot.", &fromCommand{})

	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) {
			if ferr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			// go-flags already printed the usage problem.
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
