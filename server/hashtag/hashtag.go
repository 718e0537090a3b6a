package hashtag

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
)

// Mattermost only links hashtags that start with a letter.
var roadNumber = regexp.MustCompile(`^(?i:(?:väg|vag|road)\s*)?([0-9]+[a-z]?)$`)

// Generate creates formatted hashtag text from an incident.
//
// Order of hashtags:
// 1. Severity bucket (#High, #Medium, #Low)
// 2. Road (#E4, #Väg222)
// 3. Message type (#Olycka, #Vägarbete)
// 4. Restrictions (#KörfältAvstängt)
//
// Returns formatted string (e.g., "🏷️ #High, #E4, #Olycka")
func Generate(r incident.Record) string {
	return Format(Tags(r))
}

// Tags returns the deduplicated hashtags of an incident in display order.
func Tags(r incident.Record) []string {
	var allTags []string

	// 1. Severity (unknown severity carries no information)
	if tag := extractSeverityTag(incident.Classify(r)); tag != "" {
		allTags = append(allTags, tag)
	}

	// 2. Road
	if tag := extractRoadTag(r.RoadNumber.String()); tag != "" {
		allTags = append(allTags, tag)
	}

	// 3. Message type
	if tag := phraseTag(r.MessageType.String()); tag != "" {
		allTags = append(allTags, tag)
	}

	// 4. Restrictions, comma separated upstream
	for _, restriction := range strings.Split(r.TrafficRestrictionType.String(), ",") {
		if tag := phraseTag(restriction); tag != "" {
			allTags = append(allTags, tag)
		}
	}

	return deduplicateTags(allTags)
}

// extractSeverityTag extracts the hashtag of a severity bucket.
func extractSeverityTag(b incident.Bucket) string {
	switch b {
	case incident.BucketHigh, incident.BucketMedium, incident.BucketLow:
		s := strings.ToLower(string(b))
		return "#" + strings.ToUpper(s[:1]) + s[1:]
	default:
		return ""
	}
}

// extractRoadTag extracts the hashtag of a road number. Bare numbers are prefixed with "Väg".
func extractRoadTag(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	if m := roadNumber.FindStringSubmatch(number); m != nil {
		return "#Väg" + strings.ToUpper(m[1])
	}
	return phraseTag(number)
}

// phraseTag turns a free text phrase into a single CamelCase hashtag.
func phraseTag(text string) string {
	word := camelCase(sanitize(text))
	if word == "" {
		return ""
	}
	first, _ := utf8.DecodeRuneInString(word)
	if !unicode.IsLetter(first) {
		return ""
	}
	return "#" + word
}

// sanitize replaces every character that cannot be part of a hashtag with a space.
func sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, text)
}

// deduplicateTags removes duplicate tags (case-insensitive) while preserving order.
func deduplicateTags(tags []string) []string {
	seen := make(map[string]bool)
	var uniqueTags []string

	for _, tag := range tags {
		tagLower := strings.ToLower(tag)
		if !seen[tagLower] {
			uniqueTags = append(uniqueTags, tag)
			seen[tagLower] = true
		}
	}

	return uniqueTags
}

// Format formats hashtags as comma-separated text with emoji prefix.
func Format(tags []string) string {
	if len(tags) == 0 {
		return ""
	}

	return "🏷️ " + strings.Join(tags, ", ")
}

// camelCase converts text to CamelCase by capitalizing first letter of each word
// and removing spaces.
func camelCase(text string) string {
	words := strings.Fields(text)
	var result strings.Builder

	for _, word := range words {
		first, size := utf8.DecodeRuneInString(word)
		result.WriteRune(unicode.ToUpper(first))
		result.WriteString(word[size:])
	}

	return result.String()
}
