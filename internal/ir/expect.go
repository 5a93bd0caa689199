package ir

import (
	"encoding/json"
	"sort"
	"strings"

	"meshdoctor/internal/types"
)

// ExpectationEntry binds a mesh-name prefix to the modifier kinds
// required on every mesh matching it.
type ExpectationEntry struct {
	NamePrefix string
	Required   []string // normalized modifier keys, duplicates removed
}

// ExpectationTable resolves mesh names to their modifier expectations.
// A mesh matches at most one entry: the longest matching prefix wins.
type ExpectationTable struct {
	entries []ExpectationEntry // sorted by descending prefix length, then lexically
}

// ExpectationTable builds the table from the document's debug block.
// Documents without a debug block yield an empty table. A value that is
// not a list of strings is a ConfigError.
func (d *Document) ExpectationTable() (*ExpectationTable, error) {
	table := &ExpectationTable{}
	if d == nil || d.Debug == nil || len(d.Debug.ExpectModifiers) == 0 {
		return table, nil
	}

	for prefix, raw := range d.Debug.ExpectModifiers {
		var kinds []string
		if err := json.Unmarshal(raw, &kinds); err != nil {
			return nil, &types.ConfigError{
				Reason: "debug.expect_modifiers[" + prefix + "]: expected a list of modifier kinds",
				Err:    err,
			}
		}

		var normalized []string
		seen := map[string]bool{}
		for _, kind := range kinds {
			key := NormalizeModifierKey(kind)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			normalized = append(normalized, key)
		}
		if len(normalized) == 0 {
			continue
		}
		table.entries = append(table.entries, ExpectationEntry{
			NamePrefix: prefix,
			Required:   normalized,
		})
	}

	sort.Slice(table.entries, func(i, j int) bool {
		a, b := table.entries[i], table.entries[j]
		if len(a.NamePrefix) != len(b.NamePrefix) {
			return len(a.NamePrefix) > len(b.NamePrefix)
		}
		return a.NamePrefix < b.NamePrefix
	})
	return table, nil
}

// Len returns the number of entries.
func (t *ExpectationTable) Len() int { return len(t.entries) }

// Entries returns the entries in match order (longest prefix first).
func (t *ExpectationTable) Entries() []ExpectationEntry { return t.entries }

// Match finds the entry for a mesh name. Because entries are ordered by
// descending prefix length, the first hit is the most specific one; a
// mesh named back_slat_01 matches "back_slat_", never "slat_".
func (t *ExpectationTable) Match(meshName string) (ExpectationEntry, bool) {
	lower := strings.ToLower(meshName)
	for _, entry := range t.entries {
		if strings.HasPrefix(lower, strings.ToLower(entry.NamePrefix)) {
			return entry, true
		}
	}
	return ExpectationEntry{}, false
}

// NormalizeModifierKey canonicalizes a modifier kind identifier:
// uppercase, no spaces, with an optional ":METHOD" suffix for compound
// kinds such as SIMPLE_DEFORM:BEND.
func NormalizeModifierKey(key string) string {
	raw := strings.ToUpper(strings.TrimSpace(key))
	if raw == "" {
		return ""
	}
	raw = strings.ReplaceAll(raw, " ", "")
	if kind, method, ok := strings.Cut(raw, ":"); ok {
		if method == "" {
			return kind
		}
		return kind + ":" + method
	}
	return raw
}
