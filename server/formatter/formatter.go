package formatter

import (
	"fmt"
	"strings"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/hashtag"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/view"
)

// maxTextLen bounds the free text of an attachment.
const maxTextLen = 500

// FormatCard converts a rendered card into Mattermost SlackAttachments, one per incident in
// display order. The label of a group is set as the pretext of its first incident. A hidden card
// has no attachments.
func FormatCard(c view.Card) []*model.SlackAttachment {
	if c.Hidden {
		return nil
	}

	var attachments []*model.SlackAttachment
	for _, g := range c.Groups {
		for i, item := range g.Items {
			attachment := FormatItem(item)
			if i == 0 && g.Label != "" {
				attachment.Pretext = "##### " + g.Label
			}
			attachments = append(attachments, attachment)
		}
	}
	return attachments
}

// CardMessage returns the post message of a card: the header followed by the empty-state text
// and the dismissed count, when present.
func CardMessage(c view.Card) string {
	if c.Hidden {
		return ""
	}

	var lines []string
	if c.Header != "" {
		lines = append(lines, "### "+c.Header)
	}
	if c.Empty != "" {
		lines = append(lines, c.Empty)
	}
	if c.Footer != nil && c.Footer.Label != "" {
		lines = append(lines, "_"+c.Footer.Label+"_")
	}
	return strings.Join(lines, "\n")
}

// FormatItem converts one rendered incident into a SlackAttachment with its accent color, meta
// fields and free text. Map blocks have no attachment form and are left out.
func FormatItem(item view.Item) *model.SlackAttachment {
	attachment := &model.SlackAttachment{}

	blocks := append(append([]view.Block{}, item.Inline...), item.Details...)

	// Set text with headline (linked when the incident has a link) - use markdown H4 header
	link := linkURL(blocks)
	if link != "" {
		attachment.Text = fmt.Sprintf("#### [%s](%s)", item.Headline, link)
	} else {
		attachment.Text = fmt.Sprintf("#### %s", item.Headline)
	}

	attachment.Color = item.Color

	var fields []*model.SlackAttachmentField
	for _, b := range blocks {
		switch b.Kind {
		case view.BlockMeta:
			for _, f := range b.Fields {
				if f.URL != "" {
					continue
				}
				fields = append(fields, &model.SlackAttachmentField{
					Title: f.Label,
					Value: f.Value,
					Short: f.Key != cardconfig.FieldPeriod,
				})
			}
		case view.BlockText:
			attachment.Text += "\n" + truncateText(b.Text, maxTextLen)
		}
	}
	attachment.Fields = fields

	if item.Icon != nil && item.Icon.URL != "" {
		attachment.ThumbURL = item.Icon.URL
	}

	attachment.Footer = hashtag.Format(item.Tags)

	return attachment
}

// linkURL returns the URL of the first link field.
func linkURL(blocks []view.Block) string {
	for _, b := range blocks {
		for _, f := range b.Fields {
			if f.URL != "" {
				return f.URL
			}
		}
	}
	return ""
}

// truncateText truncates text to maxLen characters, adding "..." if truncated
func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
