package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/card"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/entity"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/view"
)

var (
	renderState    string
	renderJSON     bool
	renderLocale   string
	renderTimeZone string
	renderExpand   bool
	renderWidth    int
)

var renderCmd = &cobra.Command{
	Use:   "render [card.yaml]",
	Short: "Render a card configuration against an entity state",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	configData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read card configuration: %w", err)
	}
	stateData, err := readInput(cmd.InOrStdin(), renderState)
	if err != nil {
		return fmt.Errorf("read entity state: %w", err)
	}

	loc := time.UTC
	if renderTimeZone != "" {
		if loc, err = time.LoadLocation(renderTimeZone); err != nil {
			return fmt.Errorf("invalid time zone: %w", err)
		}
	}

	rendered, err := renderCard(configData, stateData, renderOptions{
		Locale:    renderLocale,
		Location:  loc,
		ExpandAll: renderExpand,
	})
	if err != nil {
		return err
	}

	if renderJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rendered)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTerminal(rendered, renderWidth))
	return nil
}

type renderOptions struct {
	Locale    string
	Location  *time.Location
	ExpandAll bool
}

// renderCard builds a card from a raw configuration and hands it one entity state.
func renderCard(configData, stateData []byte, opts renderOptions) (view.Card, error) {
	raw, err := cardconfig.Parse(configData)
	if err != nil {
		return view.Card{}, err
	}
	state, err := entity.Decode(stateData)
	if err != nil {
		return view.Card{}, err
	}

	c, err := card.New("cli", raw, card.Deps{
		Logger:   newLogger(),
		Locale:   opts.Locale,
		Location: opts.Location,
	})
	if err != nil {
		return view.Card{}, err
	}
	defer c.Close()

	if state.EntityID != c.Entity() {
		return view.Card{}, fmt.Errorf("state is for %s but the card shows %s", state.EntityID, c.Entity())
	}
	c.SetState(state)

	if opts.ExpandAll {
		for _, item := range c.Render().Items() {
			if item.Expandable && !item.Expanded {
				if _, err := c.Toggle(item.Key); err != nil {
					return view.Card{}, err
				}
			}
		}
	}
	return c.Render(), nil
}

// readInput reads path, or r when path is "-" or empty.
func readInput(r io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(r)
	}
	return os.ReadFile(path)
}

func init() {
	renderCmd.Flags().StringVarP(&renderState, "state", "s", "-", "Entity state JSON file, - for stdin")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "Print the render tree as JSON")
	renderCmd.Flags().StringVar(&renderLocale, "locale", "sv-SE", "Label language")
	renderCmd.Flags().StringVar(&renderTimeZone, "tz", "Europe/Stockholm", "Time zone of timestamps")
	renderCmd.Flags().BoolVar(&renderExpand, "expand", false, "Show the details of every incident")
	renderCmd.Flags().IntVarP(&renderWidth, "width", "w", 72, "Terminal width")
	rootCmd.AddCommand(renderCmd)
}
