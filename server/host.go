package main

import (
	"context"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/pkg/errors"
)

// Websocket events asking the web app to carry out a card action.
const (
	wsEventMoreInfo = "more_info"
	wsEventNavigate = "navigate"
	wsEventOpenURL  = "open_url"
)

// serviceCaller invokes a service on the automation host.
type serviceCaller interface {
	CallService(ctx context.Context, domain, service string, data map[string]any) error
}

// cardHost carries out the gesture actions of one card. Client-side actions are broadcast to the
// channel the card is posted in, or to everyone when the card is not posted.
type cardHost struct {
	api       plugin.API
	cardID    string
	channelID string
	services  serviceCaller
}

func newCardHost(api plugin.API, cardID, channelID string, services serviceCaller) *cardHost {
	return &cardHost{api: api, cardID: cardID, channelID: channelID, services: services}
}

func (h *cardHost) MoreInfo(_ context.Context, entityID string) error {
	return h.publish(wsEventMoreInfo, map[string]any{"entity_id": entityID})
}

func (h *cardHost) Navigate(_ context.Context, path string) error {
	return h.publish(wsEventNavigate, map[string]any{"path": path})
}

func (h *cardHost) OpenURL(_ context.Context, url string) error {
	return h.publish(wsEventOpenURL, map[string]any{"url": url})
}

func (h *cardHost) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if h.services == nil {
		return errors.New("no command URL configured")
	}
	return h.services.CallService(ctx, domain, service, data)
}

func (h *cardHost) publish(event string, payload map[string]any) error {
	payload["card_id"] = h.cardID
	h.api.PublishWebSocketEvent(event, payload, &model.WebsocketBroadcast{ChannelId: h.channelID})
	return nil
}
