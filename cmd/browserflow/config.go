package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/entrhq/browserflow/pkg/config"
)

func getCmdConfig(gs *globalState) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration file",
		Args:  cobra.NoArgs,
	}
	configCmd.AddCommand(getCmdConfigShow(gs), getCmdConfigInit(gs))
	return configCmd
}

func getCmdConfigShow(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration: defaults overlaid with the
  configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.OutOrStdout(), gs.config)
		},
	}
}

func getCmdConfigInit(gs *globalState) *cobra.Command {
	var reset bool

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the configuration file",
		Long: `Write the effective configuration to the configuration file, creating
  it when missing. Files in the older layout without a "sections" object are
  rewritten in the current layout.`,
		Example: `  browserflow config init
  browserflow config init --reset --config ./browserflow.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reset {
				gs.config.ResetAll()
			}
			if err := gs.config.SaveAll(); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", storePath(gs.config))
			return nil
		},
	}

	initCmd.Flags().BoolVar(&reset, "reset", false, "restore every section to its defaults first")
	return initCmd
}

type configView struct {
	Path     string                    `json:"path,omitempty"`
	Sections map[string]map[string]any `json:"sections"`
}

func showConfig(w io.Writer, manager *config.Manager) error {
	view := configView{
		Path:     storePath(manager),
		Sections: make(map[string]map[string]any),
	}
	for _, section := range manager.GetSections() {
		view.Sections[section.ID()] = section.Data()
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func storePath(manager *config.Manager) string {
	if store, ok := manager.Store().(interface{ Path() string }); ok {
		return store.Path()
	}
	return ""
}
