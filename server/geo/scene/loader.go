package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/geo"
)

// tileJSON is the subset of a TileJSON document the loader reads.
type tileJSON struct {
	Tiles       []string `json:"tiles"`
	Attribution string   `json:"attribution"`
	MaxZoom     int      `json:"maxzoom"`
}

// TileJSONLoader returns a loader that reads the tile source from a TileJSON document.
func TileJSONLoader(client *http.Client, url string) geo.Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return func(ctx context.Context) (geo.Backend, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create tile source request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tile source request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("tile source returned HTTP %d", resp.StatusCode)
		}

		var doc tileJSON
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse tile source: %w", err)
		}
		if len(doc.Tiles) == 0 || doc.Tiles[0] == "" {
			return nil, fmt.Errorf("tile source lists no tiles")
		}

		return New(Tiles{
			Template:    doc.Tiles[0],
			Attribution: doc.Attribution,
			MaxZoom:     doc.MaxZoom,
		}), nil
	}
}

// StaticLoader returns a loader that always succeeds with the given tile source.
func StaticLoader(tiles Tiles) geo.Loader {
	return func(context.Context) (geo.Backend, error) {
		return New(tiles), nil
	}
}
