package logtail

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Filter selects which daemon log lines Render prints.
type Filter struct {
	Level     string // minimum level; empty prints every level
	Component string // exact component match; empty prints all
}

type lineHeader struct {
	Level     string `json:"level"`
	Component string `json:"component"`
}

func (f Filter) keep(h lineHeader) bool {
	if f.Component != "" && h.Component != f.Component {
		return false
	}
	if f.Level == "" {
		return true
	}
	min, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(f.Level)))
	if err != nil {
		return true
	}
	lvl, err := zerolog.ParseLevel(h.Level)
	if err != nil {
		return true
	}
	return lvl >= min
}

// Render writes JSON log lines to w in zerolog's console format. Lines that
// are not JSON objects are copied through unchanged.
func Render(w io.Writer, lines []string, filter Filter, noColor bool) error {
	cw := zerolog.ConsoleWriter{
		Out:           w,
		NoColor:       noColor,
		TimeFormat:    "2006-01-02 15:04:05",
		FieldsExclude: []string{"service"},
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var h lineHeader
		if err := json.Unmarshal([]byte(line), &h); err != nil {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
			continue
		}
		if !filter.keep(h) {
			continue
		}
		if _, err := cw.Write([]byte(line)); err != nil {
			return fmt.Errorf("render log line: %w", err)
		}
	}
	return nil
}
