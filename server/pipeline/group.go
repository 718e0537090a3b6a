package pipeline

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
)

// NoRoad is the group label for incidents without road information.
const NoRoad = "—"

// Group is a run of visible incidents sharing a label.
type Group struct {
	// Label is the road or severity bucket. It is empty when grouping is off.
	Label   string
	Records []incident.Record
}

// GroupRecords splits visible records into groups, keeping the display order inside each group.
// Road groups are ordered by label using the collation rules of tag; severity groups from HIGH to
// UNKNOWN. Without grouping a single unlabelled group is returned.
func GroupRecords(records []incident.Record, by cardconfig.GroupBy, tag language.Tag) []Group {
	if by != cardconfig.GroupRoad && by != cardconfig.GroupSeverity {
		return []Group{{Records: records}}
	}

	index := make(map[string]int)
	var groups []Group
	for _, r := range records {
		label := groupLabel(r, by)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Records = append(groups[i].Records, r)
	}

	if by == cardconfig.GroupSeverity {
		sort.SliceStable(groups, func(i, j int) bool {
			return incident.Bucket(groups[i].Label).Rank() > incident.Bucket(groups[j].Label).Rank()
		})
		return groups
	}

	c := collate.New(tag)
	sort.SliceStable(groups, func(i, j int) bool {
		return c.CompareString(groups[i].Label, groups[j].Label) < 0
	})
	return groups
}

func groupLabel(r incident.Record, by cardconfig.GroupBy) string {
	if by == cardconfig.GroupSeverity {
		return string(incident.Classify(r))
	}
	if r.RoadName.Present() {
		return r.RoadName.String()
	}
	if r.RoadNumber.Present() {
		return r.RoadNumber.String()
	}
	return NoRoad
}
