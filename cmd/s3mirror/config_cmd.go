package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"s3mirror/internal/config"
)

func newConfigCmd(app *appContainer) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long:  `Manage configuration settings. You can set, get, list, and delete configuration values. Recognized keys: ` + strings.Join(config.KnownKeys(), ", ") + `.`,
	}

	configSetCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a configuration key-value pair",
		Long:  `Sets a configuration value. For example: 's3mirror config set endpoint_url http://localhost:9000'`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			value := args[1]

			if err := app.ConfigManager.SetValue(key, value); err != nil {
				return fmt.Errorf("error setting configuration: %w", err)
			}
			fmt.Printf("Configuration set: %s = %s\n", key, value)
			return nil
		},
	}

	configGetCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a configuration value by key",
		Long:  `Retrieves a configuration value for a given key. For example: 's3mirror config get endpoint_url'`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])

			value, exists, err := app.ConfigManager.GetValue(key)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("configuration key '%s' not found or not set", key)
			}
			fmt.Printf("%s = %s\n", key, value)
			return nil
		},
	}

	configDeleteCmd := &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete a configuration value by key",
		Long:  `Deletes a configuration value for a given key. For example: 's3mirror config delete profile'`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])

			deleted, err := app.ConfigManager.DeleteValue(key)
			if err != nil {
				return fmt.Errorf("error deleting configuration: %w", err)
			}
			if !deleted {
				return fmt.Errorf("configuration key '%s' not found", key)
			}
			fmt.Printf("Configuration key '%s' deleted\n", key)
			return nil
		},
	}

	configListCmd := &cobra.Command{
		Use:   "list",
		Short: "List all current configuration values",
		Long:  `Displays the key-value pairs currently stored in the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := app.ConfigManager.GetAllSettings()
			if err != nil {
				return err
			}

			if len(settings) == 0 {
				fmt.Printf("No configuration values set. Use 's3mirror config set <key> <value>'.\n")
				return nil
			}

			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			fmt.Println("Current configuration:")
			for _, k := range keys {
				fmt.Printf("  %s = %v\n", k, settings[k])
			}
			return nil
		},
	}

	configCmd.AddCommand(configSetCmd, configGetCmd, configDeleteCmd, configListCmd)
	return configCmd
}
