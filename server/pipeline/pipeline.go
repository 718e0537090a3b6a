// Package pipeline turns the raw incident array of an entity into the ordered, filtered and
// capped list a card displays.
package pipeline

import (
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
)

var (
	roadPrefix = regexp.MustCompile(`^(väg|vag|road)\s+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Options carries the inputs of Visible that are not part of the card configuration.
type Options struct {
	// Hidden holds the event keys that are optimistically removed after a dismissal.
	Hidden map[string]bool

	// Location is used to read timestamps without an offset. Nil means UTC.
	Location *time.Location
}

// Visible returns the records to display, in display order. It is a pure function of its
// inputs and never modifies records.
func Visible(records []incident.Record, cfg cardconfig.Config, opts Options) []incident.Record {
	severities := make([]incident.Bucket, 0, len(cfg.FilterSeverities))
	if cfg.Preset != cardconfig.PresetImportant {
		for _, s := range cfg.FilterSeverities {
			if b, ok := incident.ParseBucket(s); ok {
				severities = append(severities, b)
			}
		}
	}
	roads := RoadTokens(cfg.FilterRoads)

	type entry struct {
		record incident.Record
		rank   int
		time   int64
	}

	entries := make([]entry, 0, len(records))
	for _, r := range records {
		// 1. Optimistic removal
		if key := incident.DismissKey(r); key != "" && opts.Hidden[key] {
			continue
		}

		// 2. Severity filter
		bucket := incident.Classify(r)
		if len(severities) > 0 && !slices.Contains(severities, bucket) {
			continue
		}

		// 3. Road filter
		if !MatchesRoads(r, roads) {
			continue
		}

		entries = append(entries, entry{
			record: r,
			rank:   bucket.Rank(),
			time:   incident.EventTime(r, opts.Location),
		})
	}

	// 4. Sort, keeping the source order for ties
	timeOnly := cfg.SortOrder == cardconfig.SortTimeDesc
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !timeOnly && a.rank != b.rank {
			return a.rank > b.rank
		}
		return a.time > b.time
	})

	// 5. Cap
	if cfg.MaxItems > 0 && len(entries) > cfg.MaxItems {
		entries = entries[:cfg.MaxItems]
	}

	visible := make([]incident.Record, len(entries))
	for i, e := range entries {
		visible[i] = e.record
	}
	return visible
}

// NormalizeRoadToken lowercases and trims a road filter token, strips a leading "väg", "vag" or
// "road" word and collapses whitespace.
func NormalizeRoadToken(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ""
	}
	s = roadPrefix.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// RoadTokens normalizes a road filter list and drops tokens that end up empty.
func RoadTokens(list []string) []string {
	tokens := make([]string, 0, len(list))
	for _, s := range list {
		if token := NormalizeRoadToken(s); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// MatchesRoads reports whether the record matches at least one of the normalized tokens. A token
// matches when it is a substring of "<road name> <road number>" or equals the road number. An
// empty token list matches everything.
func MatchesRoads(r incident.Record, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	haystack := strings.ToLower(r.RoadName.String() + " " + r.RoadNumber.String())
	number := strings.ToLower(strings.TrimSpace(r.RoadNumber.String()))
	for _, token := range tokens {
		if strings.Contains(haystack, token) || (number != "" && token == number) {
			return true
		}
	}
	return false
}
