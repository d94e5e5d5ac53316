package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qs3c/cafe_sub_server/config"
	"github.com/qs3c/cafe_sub_server/internal/client"
)

var Version = "dev"

const defaultBaseURL = "http://localhost:8080/api/v1"

// 全局参数
var (
	configPath string
	baseURL    string
	token      string
	asJSON     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "cafectl",
		Short:        "cafectl - coffee subscription client",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", os.Getenv("CAFE_TOKEN"), "Bearer token (default $CAFE_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(buyCmd())
	rootCmd.AddCommand(subsCmd())
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(redeemCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(notificationsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 配置文件缺失时使用默认客户端配置
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = &config.Config{Client: config.ClientConfig{BaseURL: defaultBaseURL}}
	}
	if baseURL != "" {
		cfg.Client.BaseURL = baseURL
	}
	return cfg
}

func newClient() (*client.Client, *config.Config) {
	cfg := loadConfig()
	return client.New(cfg.Client, client.WithToken(token)), cfg
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
