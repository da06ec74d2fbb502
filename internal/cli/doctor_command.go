package cli

import (
	"errors"
	"fmt"

	"ytgrab/internal/config"
	"ytgrab/internal/doctor"
	"ytgrab/internal/pathutil"
)

func runDoctor(args []string) error {
	fs := newFlagSet("doctor")
	outputDir := fs.StringP("output-dir", "o", "", "output directory to check (default from config)")
	configPath := fs.String("config", "", "config file (default "+config.DefaultPath()+")")
	jsonOut := fs.Bool("json", false, "print JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// A broken config is reported as a failed check rather than aborting.
	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Defaults()
	}
	dir := cfg.OutputDir
	if fs.Changed("output-dir") {
		dir = *outputDir
	}
	resolved, err := pathutil.ResolveOutputDir(dir)
	if err != nil {
		return err
	}

	res := doctor.Run(doctor.Options{
		BinaryPath: cfg.DownloaderPath,
		OutputDir:  resolved,
		ConfigPath: *configPath,
	})
	if *jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		for _, c := range res.Checks {
			status := "ok"
			if !c.OK {
				status = "fail"
				if !c.Required {
					status = "warn"
				}
			}
			fmt.Printf("%s: %s (%s)\n", c.Name, status, c.Message)
			if !c.OK && c.Guidance != "" {
				fmt.Println(c.Guidance)
			}
		}
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	if !*jsonOut {
		fmt.Println("doctor: all checks passed")
	}
	return nil
}
