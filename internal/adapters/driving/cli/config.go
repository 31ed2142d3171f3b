package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lidarqc/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
	Long: `Show the effective configuration: built-in defaults overlaid with
the config file (~/.lidarqc/config.toml or --config).`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting, e.g. mask.threshold",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every setting key",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Long: `Write the effective configuration to the config file so it can be
edited. An existing file is left alone unless --overwrite is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().Bool("overwrite", false, "replace an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	data, err := toml.Marshal(appSettings)
	if err != nil {
		return fmt.Errorf("failed to render settings: %w", err)
	}
	if appConfigPath != "" {
		cmd.Printf("# %s\n", appConfigPath)
	}
	cmd.Print(string(data))
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	flat, err := file.Flatten(appSettings)
	if err != nil {
		return fmt.Errorf("failed to render settings: %w", err)
	}
	v, ok := flat[args[0]]
	if !ok {
		return fmt.Errorf("unknown setting %q", args[0])
	}
	cmd.Println(v)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	flat, err := file.Flatten(appSettings)
	if err != nil {
		return fmt.Errorf("failed to render settings: %w", err)
	}
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Printf("%s = %v\n", k, flat[k])
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	store, err := file.NewConfigStore(appConfigPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(store.Path()); err == nil && !overwrite {
		return fmt.Errorf("%s already exists (use --overwrite to replace it)", store.Path())
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := store.Save(appSettings); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	cmd.Printf("Wrote %s\n", store.Path())
	return nil
}
