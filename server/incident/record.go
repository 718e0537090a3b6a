package incident

// Record is a single traffic incident as published by the upstream provider on the entity's
// "events" attribute. Every field is optional; use the accessor methods below to resolve the
// few attributes that have more than one candidate source.
type Record struct {
	// Identity
	SituationID    Text `json:"situation_id"`
	DeviationID    Text `json:"deviation_id"`
	EventKey       Text `json:"event_key"`
	EventSignature Text `json:"event_signature"`

	// Description
	Header           Text `json:"header"`
	Message          Text `json:"message"`
	MessageType      Text `json:"message_type"`
	MessageTypeValue Text `json:"message_type_value"`

	// Location
	RoadName              Text `json:"road_name"`
	RoadNumber            Text `json:"road_number"`
	LocationDescriptor    Text `json:"location_descriptor"`
	PositionalDescription Text `json:"positional_description"`
	GeometryWGS84         Text `json:"geometry_wgs84"`

	// Time
	StartTime               Timestamp `json:"start_time"`
	EndTime                 Timestamp `json:"end_time"`
	PublicationTime         Timestamp `json:"publication_time"`
	ModifiedTime            Timestamp `json:"modified_time"`
	VersionTime             Timestamp `json:"version_time"`
	ValidUntilFurtherNotice Flag      `json:"valid_until_further_notice"`

	// Severity
	SeverityCode Number `json:"severity_code"`
	SeverityText Text   `json:"severity_text"`

	// Misc
	TrafficRestrictionType  Text   `json:"traffic_restriction_type"`
	AffectedDirection       Text   `json:"affected_direction"`
	AffectedDirectionValue  Text   `json:"affected_direction_value"`
	TemporaryLimit          Text   `json:"temporary_limit"`
	NumberOfLanesRestricted Number `json:"number_of_lanes_restricted"`
	SafetyRelatedMessage    Flag   `json:"safety_related_message"`
	Suspended               Flag   `json:"suspended"`
	Weblink                 Text   `json:"weblink"`
	IconURL                 Text   `json:"icon_url"`

	// Index is the position of the record in the source array.
	Index int `json:"-"`
}

// Key returns the alert key of the record. See AlertKey.
func (r Record) Key() string {
	return AlertKey(r, r.Index)
}

// Location returns the location descriptor, falling back to the positional description.
func (r Record) Location() string {
	return firstText(r.LocationDescriptor, r.PositionalDescription)
}

// Direction returns the affected direction, falling back to its coded value.
func (r Record) Direction() string {
	return firstText(r.AffectedDirection, r.AffectedDirectionValue)
}

// SeverityLabel returns the free text severity, falling back to the numeric code.
func (r Record) SeverityLabel() string {
	if r.SeverityText.Present() {
		return r.SeverityText.String()
	}
	return r.SeverityCode.String()
}

// HasSeverity reports whether any severity attribute was supplied.
func (r Record) HasSeverity() bool {
	return r.SeverityText.Present() || r.SeverityCode.Present()
}

// Updated returns the modification time, falling back to the version time.
func (r Record) Updated() Timestamp {
	return firstTimestamp(r.ModifiedTime, r.VersionTime)
}

// DetailsText returns the long form text of the incident: the message when it has content,
// otherwise the header.
func (r Record) DetailsText() string {
	if !r.Message.Blank() {
		return r.Message.String()
	}
	if !r.Header.Blank() {
		return r.Header.String()
	}
	return ""
}

// HasPeriod reports whether the validity period has anything to show.
func (r Record) HasPeriod() bool {
	return r.StartTime.Present() || r.EndTime.Present() || r.ValidUntilFurtherNotice.IsTrue()
}

// eventTimeCandidates lists the time attributes in the order they are tried when ordering
// incidents by time.
func (r Record) eventTimeCandidates() []Timestamp {
	return []Timestamp{r.StartTime, r.PublicationTime, r.ModifiedTime, r.VersionTime, r.EndTime}
}

func firstText(values ...Text) string {
	for _, v := range values {
		if v.Present() {
			return v.String()
		}
	}
	return ""
}

func firstTimestamp(values ...Timestamp) Timestamp {
	for _, v := range values {
		if v.Present() {
			return v
		}
	}
	return Timestamp{}
}
