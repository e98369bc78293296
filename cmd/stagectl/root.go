package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stage-planner/config"
	"stage-planner/pkg/database"
	applogger "stage-planner/pkg/logger"
)

// rootOptions 全局参数
type rootOptions struct {
	configPath string
}

// env 子命令共享的运行环境
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
}

func (e *env) close() {
	if e.sqlDB != nil {
		_ = e.sqlDB.Close()
	}
	_ = e.logger.Sync()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "stagectl",
		Short:         "Stage Planner - outils d'exploitation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "fichier de configuration (défaut ./config/config.yaml)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newRegisseurCommand(opts))

	return cmd
}

// openEnv 加载配置、日志并连接数据库
func openEnv(opts *rootOptions) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	return &env{cfg: cfg, logger: logger, db: db, sqlDB: sqlDB}, nil
}
