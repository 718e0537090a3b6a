package incident

import "strings"

// Bucket is the ordered severity class of an incident.
type Bucket string

// Severity buckets, highest first.
const (
	BucketHigh    Bucket = "HIGH"
	BucketMedium  Bucket = "MEDIUM"
	BucketLow     Bucket = "LOW"
	BucketUnknown Bucket = "UNKNOWN"
)

// Buckets lists every bucket from the highest to the lowest rank.
var Buckets = []Bucket{BucketHigh, BucketMedium, BucketLow, BucketUnknown}

// Accent is the visual severity variant used to tint an incident.
type Accent string

// Severity accents
const (
	AccentRed     Accent = "sev-red"
	AccentOrange  Accent = "sev-orange"
	AccentYellow  Accent = "sev-yellow"
	AccentMessage Accent = "sev-message"
)

// Accent colors
const (
	ColorRed     = "#e74c3c"
	ColorOrange  = "#e67e22"
	ColorYellow  = "#f1c40f"
	ColorMessage = "#03a9f4"
)

// Keyword heuristics for severity_text, checked in this order. Swedish and English wording
// is mixed upstream.
var (
	highKeywords   = []string{"extreme", "severe", "mycket stor", "very high", "hög"}
	mediumKeywords = []string{"high", "stor"}
	lowKeywords    = []string{"moderate", "måttlig", "medium", "låg", "liten", "low"}
)

// Classify maps a record to its severity bucket. A numeric severity_code always wins over
// severity_text.
func Classify(r Record) Bucket {
	if r.SeverityCode.Valid {
		code := r.SeverityCode.Value
		switch {
		case code >= 4:
			return BucketHigh
		case code >= 3:
			return BucketMedium
		case code >= 1:
			return BucketLow
		default:
			return BucketUnknown
		}
	}

	txt := strings.ToLower(strings.TrimSpace(r.SeverityText.String()))
	if txt == "" {
		return BucketUnknown
	}
	switch {
	case containsAny(txt, highKeywords):
		return BucketHigh
	case containsAny(txt, mediumKeywords):
		return BucketMedium
	case containsAny(txt, lowKeywords):
		return BucketLow
	default:
		return BucketUnknown
	}
}

// ParseBucket converts a configured bucket name. The boolean result is false for unknown names.
func ParseBucket(s string) (Bucket, bool) {
	b := Bucket(strings.ToUpper(strings.TrimSpace(s)))
	switch b {
	case BucketHigh, BucketMedium, BucketLow, BucketUnknown:
		return b, true
	default:
		return "", false
	}
}

// Rank returns the sort rank of the bucket: HIGH=3, MEDIUM=2, LOW=1, anything else 0.
func (b Bucket) Rank() int {
	switch b {
	case BucketHigh:
		return 3
	case BucketMedium:
		return 2
	case BucketLow:
		return 1
	default:
		return 0
	}
}

// Accent returns the visual variant for the bucket.
func (b Bucket) Accent() Accent {
	switch b {
	case BucketHigh:
		return AccentRed
	case BucketMedium:
		return AccentOrange
	case BucketLow:
		return AccentYellow
	default:
		return AccentMessage
	}
}

// Color returns the hex color of the accent.
func (a Accent) Color() string {
	switch a {
	case AccentRed:
		return ColorRed
	case AccentOrange:
		return ColorOrange
	case AccentYellow:
		return ColorYellow
	default:
		return ColorMessage
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
