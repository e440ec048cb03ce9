package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/config"
	"github.com/xdg/cmdgate/internal/term"
)

var configShowTOML bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage cmdgate's configuration.

The configuration file is stored at ~/.config/cmdgate/config.yaml
(or $XDG_CONFIG_HOME/cmdgate/config.yaml if XDG_CONFIG_HOME is set), unless
--config names another file. Files ending in .toml are read as TOML.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective config",
	Long: `Print the effective configuration, with defaults filled in, as YAML.

If no config file exists, shows the default configuration.`,
	RunE: runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit config in $EDITOR",
	Long: `Open the configuration file in your editor.

The editor is determined by the EDITOR environment variable, falling back to vi.
If the configuration file doesn't exist, a default one is created first.`,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	Run:   runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default config file",
	Long: `Create the default configuration file if it doesn't exist.

The file documents every setting. If it already exists, this does nothing.`,
	RunE: runConfigInit,
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowTOML, "toml", false, "print as TOML")
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var data []byte
	if configShowTOML {
		data, err = config.MarshalGlobalConfigTOML(cfg)
	} else {
		data, err = config.MarshalGlobalConfig(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	term.Print(string(data))
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.EditGlobalConfig(configFlag); err != nil {
		return fmt.Errorf("failed to edit config: %w", err)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	term.Println(configFilePath())
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFilePath()
	if err := config.WriteDefaultConfigTo(path); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	term.Printf("Config file: %s\n", path)
	return nil
}
