package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/finclaw/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Finclaw Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.Database.URL = prompt(scanner, "Postgres URL", cfg.Database.URL)
		cfg.LLM.BaseURL = prompt(scanner, "LLM base URL", cfg.LLM.BaseURL)
		cfg.LLM.APIKey = prompt(scanner, "LLM API key", cfg.LLM.APIKey)
		cfg.LLM.Model = prompt(scanner, "LLM model name", cfg.LLM.Model)
		cfg.HTTP.Addr = prompt(scanner, "HTTP listen address", cfg.HTTP.Addr)
		cfg.HTTP.JWTSecret = prompt(scanner, "JWT signing secret", cfg.HTTP.JWTSecret)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		cfg.Google.ClientID = prompt(scanner, "Google OAuth client ID (optional)", cfg.Google.ClientID)
		cfg.Google.ClientSecret = prompt(scanner, "Google OAuth client secret (optional)", cfg.Google.ClientSecret)
		cfg.Hubspot.ClientID = prompt(scanner, "Hubspot OAuth client ID (optional)", cfg.Hubspot.ClientID)
		cfg.Hubspot.ClientSecret = prompt(scanner, "Hubspot OAuth client secret (optional)", cfg.Hubspot.ClientSecret)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
