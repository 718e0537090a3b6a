// Package layout turns an incident into the blocks of its card item, following the configured
// meta_order. Fields before the divider are always shown; fields after it sit behind the
// details toggle.
package layout

import (
	"slices"
	"strings"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/formatter"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/view"
)

// Sections is a meta order split at the divider.
type Sections struct {
	Inline  []string
	Details []string
}

// Resolve splits order at the divider. The order is canonicalized first, so deprecated and
// duplicate keys are dropped and the text and divider markers are always present. An order
// without a divider gets one appended, which leaves every field inline.
func Resolve(order []string) Sections {
	keys := cardconfig.NormalizeMetaOrder(order)
	idx := slices.Index(keys, cardconfig.Divider)
	return Sections{
		Inline:  slices.Clone(keys[:idx]),
		Details: slices.Clone(keys[idx+1:]),
	}
}

// Options are the per-item inputs of Build.
type Options struct {
	Expanded bool

	// MapContainer names the container of the map block.
	MapContainer string
}

// Result is the laid out content of one item.
type Result struct {
	Inline []view.Block

	// Details holds the detail blocks. It is empty unless the item is expanded.
	Details []view.Block

	// Expandable is true when the details section has content for this incident.
	Expandable bool

	// Compact is true when nothing besides the headline is shown.
	Compact bool

	// Geometry is the parsed geometry of the incident.
	Geometry []geo.Coord

	// MapShown is true when a map block is among the rendered blocks.
	MapShown bool
}

// Builder lays out items for one card configuration.
type Builder struct {
	cfg      cardconfig.Config
	f        *formatter.Formatter
	sections Sections
}

// New creates a Builder. cfg must be normalized.
func New(cfg cardconfig.Config, f *formatter.Formatter) *Builder {
	return &Builder{
		cfg:      cfg,
		f:        f,
		sections: Resolve(cfg.MetaOrder),
	}
}

// Sections returns the resolved sections of the builder.
func (b *Builder) Sections() Sections {
	return b.sections
}

// Build lays out r.
func (b *Builder) Build(r incident.Record, opts Options) Result {
	var res Result
	if b.cfg.Shows(cardconfig.FieldMap) {
		res.Geometry = geo.ParseWKT(r.GeometryWGS84.String())
	}

	res.Inline = b.blocks(r, b.sections.Inline, res.Geometry, opts.MapContainer)
	details := b.blocks(r, b.sections.Details, res.Geometry, opts.MapContainer)
	res.Expandable = len(details) > 0

	if opts.Expanded && res.Expandable {
		res.Details = details
	}
	res.Compact = len(res.Inline) == 0 && !(opts.Expanded && res.Expandable)
	res.MapShown = hasMap(res.Inline) || hasMap(res.Details)

	return res
}

// blocks renders keys in order. Consecutive scalar fields share one meta block; the text and the
// map each get their own block.
func (b *Builder) blocks(r incident.Record, keys []string, coords []geo.Coord, container string) []view.Block {
	var out []view.Block
	var run []view.Field

	flush := func() {
		if len(run) > 0 {
			out = append(out, view.Block{Kind: view.BlockMeta, Fields: run})
			run = nil
		}
	}

	for _, key := range keys {
		if !b.cfg.Shows(key) {
			continue
		}

		switch key {
		case cardconfig.Divider:
			continue
		case cardconfig.FieldText:
			text := formatter.Multiline(r.DetailsText())
			if strings.TrimSpace(text) == "" {
				continue
			}
			flush()
			out = append(out, view.Block{Kind: view.BlockText, Text: text})
		case cardconfig.FieldMap:
			if len(coords) == 0 {
				continue
			}
			flush()
			out = append(out, view.Block{
				Kind: view.BlockMap,
				Map:  &view.Map{Container: container, Status: b.f.T(formatter.KeyMapLoading)},
			})
		default:
			if field, ok := b.Field(r, key); ok {
				run = append(run, field)
			}
		}
	}
	flush()

	return out
}

// Field resolves a scalar meta field. It reports false when the incident has no data for it.
func (b *Builder) Field(r incident.Record, key string) (view.Field, bool) {
	value, url := b.value(r, key)
	if strings.TrimSpace(value) == "" {
		return view.Field{}, false
	}
	return view.Field{Key: key, Label: b.f.T(labelKey(key)), Value: value, URL: url}, true
}

func (b *Builder) value(r incident.Record, key string) (value, url string) {
	switch key {
	case cardconfig.FieldRoad:
		return formatter.Road(r), ""
	case cardconfig.FieldLocation:
		return r.Location(), ""
	case cardconfig.FieldSeverity:
		if !r.HasSeverity() {
			return "", ""
		}
		return r.SeverityLabel(), ""
	case cardconfig.FieldRestriction:
		return r.TrafficRestrictionType.String(), ""
	case cardconfig.FieldDirection:
		return r.Direction(), ""
	case cardconfig.FieldPeriod:
		if !r.HasPeriod() {
			return "", ""
		}
		return b.f.Period(r), ""
	case cardconfig.FieldPublished:
		return b.f.Timestamp(r.PublicationTime), ""
	case cardconfig.FieldUpdated:
		return b.f.Timestamp(r.Updated()), ""
	case cardconfig.FieldLink:
		if !r.Weblink.Present() {
			return "", ""
		}
		return b.f.T(formatter.KeyOpenLink), r.Weblink.String()
	case cardconfig.FieldSubtype:
		return r.MessageTypeValue.String(), ""
	case cardconfig.FieldTemporaryLimit:
		return r.TemporaryLimit.String(), ""
	case cardconfig.FieldLanesRestricted:
		return r.NumberOfLanesRestricted.String(), ""
	case cardconfig.FieldSafetyRelated:
		return b.yesNo(r.SafetyRelatedMessage), ""
	case cardconfig.FieldSuspended:
		return b.yesNo(r.Suspended), ""
	default:
		return "", ""
	}
}

func (b *Builder) yesNo(f incident.Flag) string {
	if !f.Valid {
		return ""
	}
	if f.Value {
		return b.f.T(formatter.KeyYes)
	}
	return b.f.T(formatter.KeyNo)
}

func labelKey(key string) string {
	switch key {
	case cardconfig.FieldRoad:
		return formatter.KeyRoad
	case cardconfig.FieldLocation:
		return formatter.KeyLocation
	case cardconfig.FieldSeverity:
		return formatter.KeySeverity
	case cardconfig.FieldRestriction:
		return formatter.KeyRestriction
	case cardconfig.FieldDirection:
		return formatter.KeyDirection
	case cardconfig.FieldPeriod:
		return formatter.KeyPeriod
	case cardconfig.FieldPublished:
		return formatter.KeyPublished
	case cardconfig.FieldUpdated:
		return formatter.KeyUpdated
	case cardconfig.FieldLink:
		return formatter.KeyLink
	case cardconfig.FieldSubtype:
		return formatter.KeySubtype
	case cardconfig.FieldTemporaryLimit:
		return formatter.KeyTemporaryLimit
	case cardconfig.FieldLanesRestricted:
		return formatter.KeyLanesRestricted
	case cardconfig.FieldSafetyRelated:
		return formatter.KeySafetyRelated
	case cardconfig.FieldSuspended:
		return formatter.KeySuspended
	default:
		return key
	}
}

func hasMap(blocks []view.Block) bool {
	return slices.ContainsFunc(blocks, func(b view.Block) bool { return b.Kind == view.BlockMap })
}
