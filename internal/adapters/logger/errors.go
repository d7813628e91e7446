package logger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// messager is implemented by zerr errors, which report their own message apart from the chain.
type messager interface {
	Message() string
}

// metadataer is implemented by zerr errors carrying key-value pairs.
type metadataer interface {
	Metadata() map[string]any
}

// ErrorEntry is one level of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries walks the chain of err, one entry per zerr level. A standard error
// ends the walk with its full text. Levels without a message come from metadata attached to
// the error they wrap, so their metadata goes to the next entry.
func collectErrorEntries(err error) []ErrorEntry {
	var (
		entries []ErrorEntry
		pending map[string]any
	)
	for current := err; current != nil; current = errors.Unwrap(current) {
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error(), Metadata: pending})
			return entries
		}

		meta := make(map[string]any)
		maps.Copy(meta, pending)
		if md, ok := current.(metadataer); ok {
			maps.Copy(meta, md.Metadata())
		}
		if m.Message() == "" {
			pending = meta
			continue
		}
		pending = nil
		entries = append(entries, ErrorEntry{Message: m.Message(), Metadata: meta})
	}

	if len(pending) > 0 && len(entries) > 0 {
		maps.Copy(entries[len(entries)-1].Metadata, pending)
	}
	return entries
}

// formatErrorEntries renders entries as the main error followed by its causes.
func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string
	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")
		if i == 0 {
			lines = append(lines, "Error: "+msgLines[0])
			for _, line := range msgLines[1:] {
				lines = append(lines, "       "+line)
			}
			lines = appendMetadata(lines, "       ", entry.Metadata)
			continue
		}

		if i == 1 {
			lines = append(lines, "", "  Caused by:")
		}
		lines = append(lines, "    → "+msgLines[0])
		for _, line := range msgLines[1:] {
			lines = append(lines, "      "+line)
		}
		lines = appendMetadata(lines, "      ", entry.Metadata)
	}
	return strings.Join(lines, "\n")
}

func appendMetadata(lines []string, indent string, meta map[string]any) []string {
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		lines = append(lines, fmt.Sprintf("%s%s: %v", indent, k, meta[k]))
	}
	return lines
}
