package poster

import (
	"sync"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/formatter"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/view"
)

// Poster keeps one Mattermost post per card in line with the rendered card.
// It only remembers the post of each card; the posts themselves live in Mattermost.
type Poster struct {
	api   plugin.API
	botID string

	mu    sync.Mutex
	posts map[string]string
}

// New creates a new Poster instance.
func New(api plugin.API, botID string) *Poster {
	return &Poster{
		api:   api,
		botID: botID,
		posts: make(map[string]string),
	}
}

// PostCard publishes a rendered card to a Mattermost channel.
//
// The first call for a card creates a post; later calls update it in place. A hidden card
// deletes its post. Returns an error if the post could not be written.
func (p *Poster) PostCard(c view.Card, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	postID, exists := p.posts[c.ID]

	if c.Hidden {
		if !exists {
			return nil
		}
		delete(p.posts, c.ID)
		if appErr := p.api.DeletePost(postID); appErr != nil {
			return appErr
		}
		return nil
	}

	post := &model.Post{
		Id:        postID,
		UserId:    p.botID,
		ChannelId: channelID,
		Message:   formatter.CardMessage(c),
		Type:      model.PostTypeSlackAttachment,
		Props:     model.StringInterface{},
	}

	// Add attachments to post props
	model.ParseSlackAttachment(post, formatter.FormatCard(c))

	if exists {
		if _, appErr := p.api.UpdatePost(post); appErr != nil {
			return appErr
		}
		return nil
	}

	created, appErr := p.api.CreatePost(post)
	if appErr != nil {
		return appErr
	}
	p.posts[c.ID] = created.Id
	return nil
}

// PostID returns the post of a card, if one was created.
func (p *Poster) PostID(cardID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.posts[cardID]
	return id, ok
}

// Remove deletes the post of a card from its channel.
func (p *Poster) Remove(cardID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	postID, exists := p.posts[cardID]
	if !exists {
		return nil
	}
	delete(p.posts, cardID)
	if appErr := p.api.DeletePost(postID); appErr != nil {
		return appErr
	}
	return nil
}

// Forget drops the post of a card without touching Mattermost, so the next PostCard creates a
// new post.
func (p *Poster) Forget(cardID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.posts, cardID)
}
