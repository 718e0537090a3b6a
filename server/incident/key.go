package incident

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// AlertKey derives the key under which per-item UI state (expanded details, map instance) is
// kept. It combines situation id, deviation id and the first available of start, publication
// and modification time, using the record's index in the source array when no time exists.
//
// The key is best effort. Two distinct incidents sharing identity and timestamp produce the
// same key and therefore share UI state.
func AlertKey(r Record, index int) string {
	t := r.StartTime.String()
	if !r.StartTime.Present() {
		t = r.PublicationTime.String()
	}
	if !r.StartTime.Present() && !r.PublicationTime.Present() {
		t = r.ModifiedTime.String()
	}
	if t == "" {
		t = strconv.Itoa(index)
	}
	return fmt.Sprintf("%s-%s-%s", r.SituationID, r.DeviationID, t)
}

// DismissKey returns the key the provider uses to identify the event for dismissal. Records
// without an event_key cannot be dismissed.
func DismissKey(r Record) string {
	return r.EventKey.String()
}

// Signature returns the content signature sent with an "until update" dismissal. The
// provider's event_signature is used when present, otherwise one is derived from the
// displayed content so that any change brings the event back.
func Signature(r Record) string {
	if r.EventSignature.Present() {
		return r.EventSignature.String()
	}
	sum := sha256.Sum256([]byte(contentTuple(r)))
	return hex.EncodeToString(sum[:8])
}

// Fingerprint returns a compact representation of everything that is displayed for the given
// records. Identical fingerprints render identically, so a re-render can be skipped.
func Fingerprint(records []Record) string {
	tuples := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		tuples = append(tuples, json.RawMessage(contentTuple(r)))
	}
	data, err := json.Marshal(tuples)
	if err != nil {
		return ""
	}
	return string(data)
}

func contentTuple(r Record) string {
	data, err := json.Marshal([]any{
		r.SituationID,
		r.DeviationID,
		r.SeverityCode,
		r.SeverityText,
		r.MessageTypeValue,
		r.Header,
		r.Message,
		r.RoadName,
		r.RoadNumber,
		r.LocationDescriptor,
		r.PositionalDescription,
		r.TemporaryLimit,
		r.NumberOfLanesRestricted,
		r.SafetyRelatedMessage,
		r.Suspended,
		r.StartTime,
		r.EndTime,
		r.PublicationTime,
		r.ModifiedTime,
		r.VersionTime,
		r.Weblink,
		r.GeometryWGS84,
		r.EventKey,
	})
	if err != nil {
		return "[]"
	}
	return string(data)
}
