// Package cli implements the larder operator command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/LavishGent/larder/internal/config"
)

var (
	errKeyRequired    = errors.New("key required")
	errUnknownCommand = errors.New("unknown command")
)

const usage = `Usage: larder [global flags] <command> [args]

Commands:
  stats                  Show disk cache size and health
  keys [--limit N]       List keys, most recently used first
  get <key>              Print the stored JSON value of key
  rm <key>...            Remove keys
  clear                  Remove every entry
  sweep                  Expire old entries and trim to the configured limits
  init-config [path]     Write a default config file
  print-config           Print the effective configuration

Global flags:
`

type globalFlags struct {
	configPath string
	dir        string
	name       string
	help       bool
}

func newGlobalFlagSet(flags *globalFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("larder", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&flags.configPath, "config", "c", "", "Path to a JSON config file")
	fs.StringVar(&flags.dir, "dir", "", "Override disk.path")
	fs.StringVar(&flags.name, "name", "", "Override disk.name")
	fs.BoolVarP(&flags.help, "help", "h", false, "Show help")
	return fs
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprint(w, usage)
	fmt.Fprint(w, fs.FlagUsages())
}

// Run is the main entry point. Returns exit code.
func Run(out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	var flags globalFlags
	fs := newGlobalFlagSet(&flags)

	if len(args) > 0 {
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		printUsage(errOut, fs)
		return 1
	}

	remaining := fs.Args()
	if flags.help || len(remaining) == 0 {
		printUsage(out, fs)
		return 0
	}

	cmd, cmdArgs := remaining[0], remaining[1:]

	// init-config works without a loadable config.
	if cmd == "init-config" {
		return finish(errOut, cmdInitConfig(out, flags, cmdArgs))
	}

	cfg, err := loadConfig(flags, env)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	var cmdErr error
	switch cmd {
	case "stats":
		cmdErr = cmdStats(out, cfg)
	case "keys":
		cmdErr = cmdKeys(out, cfg, cmdArgs)
	case "get":
		cmdErr = cmdGet(out, cfg, cmdArgs)
	case "rm":
		cmdErr = cmdRemove(out, cfg, cmdArgs)
	case "clear":
		cmdErr = cmdClear(out, cfg)
	case "sweep":
		cmdErr = cmdSweep(out, cfg)
	case "print-config":
		cmdErr = cmdPrintConfig(out, cfg)
	default:
		fmt.Fprintf(errOut, "error: %v: %s\n", errUnknownCommand, cmd)
		printUsage(errOut, fs)
		return 1
	}
	return finish(errOut, cmdErr)
}

func finish(errOut io.Writer, err error) int {
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}

// loadConfig reads the config file, then applies LARDER_CONFIG from env when
// no --config was given, then the --dir and --name overrides.
func loadConfig(flags globalFlags, env map[string]string) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		path = env["LARDER_CONFIG"]
	}

	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	if flags.dir != "" {
		cfg.Disk.Path = flags.dir
	}
	if flags.name != "" {
		cfg.Disk.Name = strings.TrimSpace(flags.name)
	}
	cfg.Disk.Enabled = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
