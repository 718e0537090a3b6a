package formatter

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
)

// Formatter produces the display strings of incidents for one card configuration.
type Formatter struct {
	cfg cardconfig.Config
	tr  Translator
	loc *time.Location
}

// New creates a Formatter. cfg must be normalized. A nil loc formats times in UTC.
func New(cfg cardconfig.Config, tr Translator, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{cfg: cfg, tr: tr, loc: loc}
}

// T translates key.
func (f *Formatter) T(key string) string {
	return f.tr.T(key)
}

// Translator returns the translator in use.
func (f *Formatter) Translator() Translator {
	return f.tr
}

// Location returns the time zone times are formatted in.
func (f *Formatter) Location() *time.Location {
	return f.loc
}

// Headline composes the title of an incident. With headline_fields configured, the non-empty
// values of those fields are joined with the headline separator. Otherwise, or when none of them
// has a value, the first present of header, location, positional description, road and message
// type is used, and finally the generic incident label.
func (f *Formatter) Headline(r incident.Record) string {
	if len(f.cfg.HeadlineFields) > 0 {
		parts := make([]string, 0, len(f.cfg.HeadlineFields))
		for _, key := range f.cfg.HeadlineFields {
			if v := strings.TrimSpace(headlineValue(r, key)); v != "" {
				parts = append(parts, v)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, f.cfg.Separator())
		}
	}

	for _, v := range []string{
		r.Header.String(),
		r.LocationDescriptor.String(),
		r.PositionalDescription.String(),
		Road(r),
		r.MessageType.String(),
	} {
		if v != "" {
			return v
		}
	}
	return f.tr.T(KeyIncident)
}

func headlineValue(r incident.Record, key string) string {
	switch key {
	case cardconfig.HeadlineHeader:
		return r.Header.String()
	case cardconfig.HeadlineType:
		return r.MessageType.String()
	case cardconfig.HeadlineRoad:
		return Road(r)
	case cardconfig.HeadlineLocation:
		return r.Location()
	case cardconfig.HeadlineRestriction:
		return r.TrafficRestrictionType.String()
	case cardconfig.HeadlineSeverity:
		return r.SeverityLabel()
	case cardconfig.HeadlineDirection:
		return r.Direction()
	case cardconfig.HeadlineTemporaryLimit:
		return r.TemporaryLimit.String()
	default:
		return ""
	}
}

// Road formats the road as "name (number)" when both are present, otherwise whichever is.
func Road(r incident.Record) string {
	name := strings.TrimSpace(r.RoadName.String())
	number := strings.TrimSpace(r.RoadNumber.String())
	switch {
	case name != "" && number != "":
		return fmt.Sprintf("%s (%s)", name, number)
	case name != "":
		return name
	default:
		return number
	}
}

// Period formats the validity period as "start – end".
func (f *Formatter) Period(r incident.Record) string {
	start := f.tr.T(KeyUnknown)
	if r.StartTime.Present() {
		start = f.Timestamp(r.StartTime)
	}

	end := f.tr.T(KeyUnknown)
	switch {
	case r.ValidUntilFurtherNotice.IsTrue():
		end = f.tr.T(KeyUntilFurtherNotice)
	case r.EndTime.Present():
		end = f.Timestamp(r.EndTime)
	}

	return start + " – " + end
}

// Timestamp formats a date-like value according to date_format. Values that cannot be parsed are
// returned as supplied.
func (f *Formatter) Timestamp(ts incident.Timestamp) string {
	if !ts.Present() {
		return ""
	}
	t, ok := incident.ParseTime(ts, f.loc)
	if !ok {
		return ts.String()
	}
	return FormatTime(t.In(f.loc), f.cfg.DateFormat, f.tr.Tag())
}

var (
	monthsEnglish   = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	monthsSwedish   = []string{"jan", "feb", "mar", "apr", "maj", "jun", "jul", "aug", "sep", "okt", "nov", "dec"}
	weekdaysEnglish = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	weekdaysSwedish = []string{"sön", "mån", "tis", "ons", "tors", "fre", "lör"}
)

// FormatTime renders t in the given mode and language. Times always use the 24-hour clock
// except in the English locale default.
func FormatTime(t time.Time, mode cardconfig.DateFormat, tag language.Tag) string {
	months, weekdays := monthsEnglish, weekdaysEnglish
	swedish := tag == language.Swedish
	if swedish {
		months, weekdays = monthsSwedish, weekdaysSwedish
	}

	clock := t.Format("15:04")
	switch mode {
	case cardconfig.DateDayMonthTime:
		return fmt.Sprintf("%d %s %s", t.Day(), months[t.Month()-1], clock)
	case cardconfig.DateWeekdayTime:
		return fmt.Sprintf("%s %s", weekdays[t.Weekday()], clock)
	case cardconfig.DateDayMonthTimeYear:
		return fmt.Sprintf("%d %s %d %s", t.Day(), months[t.Month()-1], t.Year(), clock)
	default:
		if swedish {
			return t.Format("2006-01-02 15:04:05")
		}
		return t.Format("1/2/2006, 3:04:05 PM")
	}
}
