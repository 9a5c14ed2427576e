package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/LavishGent/larder/internal/cache"
	"github.com/LavishGent/larder/internal/config"
)

// DefaultConfigFile is written by init-config when no path is given.
const DefaultConfigFile = "larder.json"

var errConfigExists = errors.New("config file already exists (use --force)")

// openDisk opens the configured disk cache without a background sweeper.
func openDisk(cfg *config.Config) (*cache.DiskCache[json.RawMessage], error) {
	cfg.Disk.SweepInterval = config.Duration{}
	return cache.NewDiskCache[json.RawMessage](cfg, nil)
}

func withDisk(cfg *config.Config, fn func(*cache.DiskCache[json.RawMessage]) error) (err error) {
	disk, err := openDisk(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, disk.Close())
	}()
	return fn(disk)
}

func cmdStats(out io.Writer, cfg *config.Config) error {
	return withDisk(cfg, func(disk *cache.DiskCache[json.RawMessage]) error {
		h := disk.Health()
		fmt.Fprintf(out, "path:        %s\n", h.Path)
		fmt.Fprintf(out, "status:      %s\n", h.Status)
		fmt.Fprintf(out, "entries:     %d\n", h.EntryCount)
		fmt.Fprintf(out, "size_bytes:  %d\n", h.SizeBytes)
		if h.SizeLimit > 0 {
			fmt.Fprintf(out, "size_limit:  %d\n", h.SizeLimit)
		}
		if h.CountLimit > 0 {
			fmt.Fprintf(out, "count_limit: %d\n", h.CountLimit)
		}
		return nil
	})
}

func cmdKeys(out io.Writer, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("keys", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.IntP("limit", "n", 0, "Show at most N keys")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withDisk(cfg, func(disk *cache.DiskCache[json.RawMessage]) error {
		keys := disk.Keys()
		if *limit > 0 && len(keys) > *limit {
			keys = keys[:*limit]
		}
		for _, k := range keys {
			fmt.Fprintln(out, k)
		}
		return nil
	})
}

func cmdGet(out io.Writer, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errKeyRequired
	}
	key := args[0]

	return withDisk(cfg, func(disk *cache.DiskCache[json.RawMessage]) error {
		raw, ok := disk.Get(key)
		if !ok {
			return fmt.Errorf("%s: not found", key)
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(raw)
		}
		fmt.Fprintln(out, pretty.String())
		return nil
	})
}

func cmdRemove(out io.Writer, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return errKeyRequired
	}

	return withDisk(cfg, func(disk *cache.DiskCache[json.RawMessage]) error {
		removed := 0
		for _, key := range args {
			if disk.Exists(key) {
				removed++
			}
			disk.RemoveObject(key)
		}
		fmt.Fprintf(out, "Removed %d of %d keys\n", removed, len(args))
		return nil
	})
}

func cmdClear(out io.Writer, cfg *config.Config) error {
	return withDisk(cfg, func(disk *cache.DiskCache[json.RawMessage]) error {
		n := disk.TotalItemCount()
		disk.RemoveAll()
		fmt.Fprintf(out, "Cleared %d entries\n", n)
		return nil
	})
}

func cmdSweep(out io.Writer, cfg *config.Config) error {
	return withDisk(cfg, func(disk *cache.DiskCache[json.RawMessage]) error {
		result, err := disk.Sweep()
		fmt.Fprintf(out, "expired: %d\nby_count: %d\nby_cost: %d\n", result.Expired, result.ByCount, result.ByCost)
		return err
	})
}

func cmdPrintConfig(out io.Writer, cfg *config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func cmdInitConfig(out io.Writer, flags globalFlags, args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	force := fs.BoolP("force", "f", false, "Overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := DefaultConfigFile
	switch {
	case fs.NArg() > 0:
		path = fs.Arg(0)
	case flags.configPath != "":
		path = flags.configPath
	}

	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s: %w", path, errConfigExists)
	}

	cfg := config.DefaultConfig()
	if flags.dir != "" {
		cfg.Disk.Path = flags.dir
	}
	if flags.name != "" {
		cfg.Disk.Name = flags.name
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}
