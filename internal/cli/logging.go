package cli

import (
	"io"
	"log/slog"

	"ytgrab/internal/config"
)

func setupLogging(w io.Writer, level string) error {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}
