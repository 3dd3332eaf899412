package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "waitlist",
	Short: "waitlist recebe inscrições e encaminha para o webhook de automação",
	Long: `Servidor HTTP da waitlist (serve) e formulário de terminal (signup).

Toda opção pode vir de flag, arquivo YAML (--config) ou variável de ambiente
com o mesmo nome em maiúsculas (ex.: WEBHOOK_URL).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("redis-addr", "", "redis address (host:port)")
	_ = viper.BindPFlag(keyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(keyRedisAddr, rootCmd.PersistentFlags().Lookup("redis-addr"))
	setDefaults(viper.GetViper())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "config file %s: %v\n", cfgFile, err)
			os.Exit(1)
		}
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// newLogger cria o logger JSON em stderr com timestamp. Nível inválido cai
// para info.
func newLogger(level string) zerolog.Logger {
	return zerolog.New(os.Stderr).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
