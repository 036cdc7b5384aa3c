package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Config holds logging configuration options.
type Config struct {
	Level  string // "trace", "debug", "info", ...
	Format string // "text" or "json"
	Output io.Writer
}

// Configure sets up the standard logrus logger.
func Configure(c Config) error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	switch c.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format '%s'", c.Format)
	}

	if c.Output != nil {
		log.SetOutput(c.Output)
	} else {
		log.SetOutput(os.Stdout)
	}
	return nil
}
