package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
)

var (
	schemaStub     string
	schemaEntities []string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the card configuration JSON schema, or a starting configuration with --stub",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if schemaStub != "" {
		preset := cardconfig.Preset(schemaStub)
		if preset != cardconfig.PresetAccident && preset != cardconfig.PresetImportant {
			return fmt.Errorf("unknown preset %q", schemaStub)
		}
		data, err := cardconfig.Marshal(cardconfig.StubConfig(preset, schemaEntities))
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(cardconfig.Schema())
}

func init() {
	schemaCmd.Flags().StringVar(&schemaStub, "stub", "", "Print the starting configuration of a preset (accident, important)")
	schemaCmd.Flags().StringSliceVar(&schemaEntities, "entity", nil, "Known entity ids the stub may bind to, repeatable")
	rootCmd.AddCommand(schemaCmd)
}
