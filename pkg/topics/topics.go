// Package topics holds the case-insensitive topic helpers shared by the
// registry and the command handlers, and the loader of the default topic list.
package topics

import (
	"bufio"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

const (
	separator = ";"
	// Wildcard selects every topic in the remove command.
	Wildcard = "*"
)

// Index returns the position of name in topics, ignoring case, or -1.
func Index(topics []string, name string) int {
	return slices.IndexFunc(topics, func(topic string) bool {
		return strings.EqualFold(topic, name)
	})
}

// Find returns the registered spelling of name.
func Find(topics []string, name string) (string, bool) {
	if i := Index(topics, name); i != -1 {
		return topics[i], true
	}
	return "", false
}

func Contains(topics []string, name string) bool {
	return Index(topics, name) != -1
}

// Valid reports whether topic can be stored: a single non-empty line that
// the add and remove commands can address on its own.
func Valid(topic string) bool {
	trimmed := strings.TrimSpace(topic)
	return trimmed != "" && trimmed != Wildcard && !strings.ContainsAny(topic, "\r\n"+separator)
}

// Split parses a ";"-separated argument. Empty parts and case-insensitive
// duplicates are dropped, first occurrence wins.
func Split(args string) []string {
	var out []string
	for _, part := range strings.Split(args, separator) {
		part = strings.TrimSpace(part)
		if part == "" || Contains(out, part) {
			continue
		}
		out = append(out, part)
	}
	return out
}

// Normalize trims, de-duplicates and sorts topics case-insensitively.
func Normalize(list []string) []string {
	out := make([]string, 0, len(list))
	for _, topic := range list {
		topic = strings.TrimSpace(topic)
		if !Valid(topic) || Contains(out, topic) {
			continue
		}
		out = append(out, topic)
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}

// Load reads a newline-delimited topic list.
func Load(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("topics: error while opening %q: %w", path, err)
	}
	defer f.Close()

	var list []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		list = append(list, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("topics: error while reading %q: %w", path, err)
	}
	return Normalize(list), nil
}
