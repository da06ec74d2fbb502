package cli

import (
	"fmt"
	"os"
	"strings"

	"ytgrab/internal/config"
	"ytgrab/internal/runstore"
)

func runConfig(args []string) error {
	fs := newFlagSet("config")
	configPath := fs.String("config", "", "config file (default "+config.DefaultPath()+")")
	initFile := fs.Bool("init", false, "write a config file with default values")
	force := fs.Bool("force", false, "overwrite an existing file with --init")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := strings.TrimSpace(*configPath)
	if *initFile {
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil && !*force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		data, err := config.Defaults().YAML()
		if err != nil {
			return err
		}
		if err := runstore.WriteBytes(path, data); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("config: wrote %s\n", path)
		return nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	if cfg.Source != "" {
		fmt.Printf("# %s\n", cfg.Source)
	} else {
		fmt.Println("# defaults (no config file)")
	}
	fmt.Print(string(data))
	return nil
}
