package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
)

const maxLineBytes = 1 << 20

// Read returns the last n lines of the file at path, oldest first. n <= 0
// returns every line. A missing file yields no lines and no error, since the
// daemon may not have written anything yet.
func Read(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	if n > 0 {
		lines = make([]string, 0, n)
	}
	start := 0 // index of the oldest line once the ring is full
	for scanner.Scan() {
		switch {
		case n <= 0 || len(lines) < n:
			lines = append(lines, scanner.Text())
		default:
			lines[start] = scanner.Text()
			start = (start + 1) % n
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if start == 0 {
		return lines, nil
	}
	return append(lines[start:], lines[:start]...), nil
}
