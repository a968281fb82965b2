package main

import (
	"docinsight-backend/config"
	"docinsight-backend/dao"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	configPath string

	// 关闭日志文件
	closeLog func() error
)

var rootCmd = &cobra.Command{
	Use:   "docinsight",
	Short: "Document upload and AI insight backend",
	Long: `docinsight accepts PDF and plain text uploads, extracts their text,
generates insights with a generative language model and answers questions
about the documents over a REST API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		config.Cfg = cfg

		var logger *slog.Logger
		logger, closeLog = config.SetupLogger(cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dao.DB != nil {
			if err := dao.Close(dao.DB); err != nil {
				slog.Warn("Failed to close database", "err", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.Path(), "path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(tokenCmd)
}

// initDB 连接数据库并同步表结构
func initDB() error {
	if err := dao.Init(config.Cfg.Database); err != nil {
		return err
	}
	if err := dao.AutoMigrate(dao.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
