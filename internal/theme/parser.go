package theme

import (
	"bufio"
	"io"
	"strings"
)

// Parse reads a theme definition: one "Key: #RRGGBB[AA]" pair per line,
// with "#" or "//" comment lines and blank lines skipped. Keys not set in
// the definition keep their default color.
func Parse(r io.Reader) (*Theme, error) {
	t := Default()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if err := SetField(t, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, err
		}
	}
	return t, scanner.Err()
}
