package main

import (
	"os"

	"CuteTutor/internal/config"

	"github.com/spf13/cobra"
)

var (
	configFile string
	addrFlag   string
	dataDir    string
	storeKind  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "cutetutor",
	Short:        "Cute Tutor learning assistant API server",
	Long:         "Serves the Cute Tutor HTTP API: accounts, tutor lessons, counselor chat and weekly reports.",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for users.json, users.db and reports")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "user store backend: json or sqlite")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "listen address (serve only)")

	rootCmd.AddCommand(serveCmd, exportReportCmd)
}

// loadConfig reads config sources and applies flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = addrFlag
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("store") {
		cfg.Store = storeKind
	}
	if flags.Changed("verbose") {
		cfg.Debug = verbose
	}
	return cfg, nil
}

// @title           CuteTutor API
// @version         1.0
// @description     Cute Tutor 학습 도우미 API: 튜터, 상담, 주간 리포트.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Bearer " 뒤에 로그인 토큰을 붙여 입력하세요.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
