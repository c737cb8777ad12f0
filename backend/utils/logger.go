package utils

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

type LoggerConfig struct {
	// "text" or "json"
	Format string
	Output io.Writer
	// adds ANSI colours to the prefix
	EnableColors bool
}

func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	if cfg.Format == "json" {
		return log.New(jsonLines{out: cfg.Output}, "", 0)
	}

	prefix := "[Learning Platform] "
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m"
	}
	return log.New(cfg.Output, prefix, log.LstdFlags|log.Lshortfile|log.LUTC)
}

// jsonLines wraps every log line into a single JSON object so the output
// can be shipped to a log collector as is.
type jsonLines struct {
	out io.Writer
}

func (w jsonLines) Write(p []byte) (int, error) {
	line, err := json.Marshal(struct {
		Time    string `json:"time"`
		Service string `json:"service"`
		Message string `json:"msg"`
	}{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Service: "learning-platform",
		Message: strings.TrimRight(string(p), "\n"),
	})
	if err != nil {
		return 0, err
	}
	if _, err := w.out.Write(append(line, '\n')); err != nil {
		return 0, err
	}
	return len(p), nil
}
