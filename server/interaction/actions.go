package interaction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
)

// DefaultActionTimeout bounds a single action dispatch.
const DefaultActionTimeout = 10 * time.Second

// Host carries out actions on behalf of a card.
type Host interface {
	// MoreInfo asks the client to show details of the entity.
	MoreInfo(ctx context.Context, entityID string) error

	// Navigate asks the client to go to path.
	Navigate(ctx context.Context, path string) error

	// OpenURL asks the client to open url in a new tab.
	OpenURL(ctx context.Context, url string) error

	// CallService invokes domain.service with data.
	CallService(ctx context.Context, domain, service string, data map[string]any) error
}

// Actions maps gestures to the configured actions.
type Actions struct {
	Tap       *cardconfig.Action
	DoubleTap *cardconfig.Action
	Hold      *cardconfig.Action
}

// ActionsFrom returns the gesture actions of cfg.
func ActionsFrom(cfg cardconfig.Config) Actions {
	return Actions{Tap: cfg.TapAction, DoubleTap: cfg.DoubleTapAction, Hold: cfg.HoldAction}
}

// For returns the action of gesture g. Unset actions show more info.
func (a Actions) For(g Gesture) cardconfig.Action {
	var action *cardconfig.Action
	switch g {
	case GestureTap:
		action = a.Tap
	case GestureDoubleTap:
		action = a.DoubleTap
	case GestureHold:
		action = a.Hold
	}
	if action == nil || action.Action == "" {
		return cardconfig.Action{Action: cardconfig.ActionMoreInfo}
	}
	return *action
}

// Runner dispatches actions to a Host without waiting for them.
type Runner struct {
	host    Host
	logger  Logger
	timeout time.Duration

	wg sync.WaitGroup
}

// NewRunner creates a Runner. logger may be nil.
func NewRunner(host Host, logger Logger) *Runner {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Runner{host: host, logger: logger, timeout: DefaultActionTimeout}
}

// Run dispatches action for entityID in the background. Failures are logged.
func (r *Runner) Run(action cardconfig.Action, entityID string) {
	if action.Action == cardconfig.ActionNone {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.dispatch(ctx, action, entityID); err != nil {
			r.logger.Warn("Action failed", "action", string(action.Action), "entity", entityID, "error", err.Error())
		}
	}()
}

// Wait blocks until every dispatched action returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) dispatch(ctx context.Context, action cardconfig.Action, entityID string) error {
	if r.host == nil {
		return fmt.Errorf("no action host configured")
	}

	switch action.Action {
	case cardconfig.ActionMoreInfo:
		return r.host.MoreInfo(ctx, entityID)
	case cardconfig.ActionNavigate:
		if action.NavigationPath == "" {
			return fmt.Errorf("navigate action without navigation_path")
		}
		return r.host.Navigate(ctx, action.NavigationPath)
	case cardconfig.ActionURL:
		if action.URLPath == "" {
			return fmt.Errorf("url action without url_path")
		}
		return r.host.OpenURL(ctx, action.URLPath)
	case cardconfig.ActionCallService:
		domain, service, ok := action.ServiceParts()
		if !ok {
			return fmt.Errorf("invalid service %q", action.Service)
		}
		return r.host.CallService(ctx, domain, service, action.ServiceData)
	default:
		return fmt.Errorf("unsupported action %q", action.Action)
	}
}
