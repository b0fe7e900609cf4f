package main

import (
	"fmt"
	"os"

	"blog/config"
	"blog/logger"

	"github.com/spf13/cobra"
)

var configPath string

// RootCmd - корневая команда, сама ничего не делает
var RootCmd = &cobra.Command{
	Use:           "blog [command] [flags]",
	Short:         "Blog: posts, groups, comments and follows over HTTP",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file (defaults are used when empty)")
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

// loadConfig читает --config и поднимает логгер по его настройкам
func loadConfig() (*config.Config, error) {
	conf := config.Defaults()
	if configPath != "" {
		var err error
		conf, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}
	if err := logger.Init(conf.Logs.Level, conf.Logs.Production); err != nil {
		return nil, err
	}
	return conf, nil
}
