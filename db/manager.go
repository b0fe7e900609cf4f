package db

import (
	"context"
	"fmt"
	"time"

	"blog/config"
	"blog/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

func dsnFromConfig(dbConf config.DBConfig) string {
	sslMode := dbConf.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := dbConf.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		dbConf.Host, port, dbConf.User, dbConf.Password, dbConf.DBName, sslMode,
	)
}

func gormConfig(level string) *gorm.Config {
	logLevel := gormlogger.Warn
	switch level {
	case "silent":
		logLevel = gormlogger.Silent
	case "error":
		logLevel = gormlogger.Error
	case "info":
		logLevel = gormlogger.Info
	}
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Connect открывает подключение по конфигу: postgres (мастер + реплики через dbresolver) или sqlite
func Connect(conf config.DatabaseConfig) (*gorm.DB, error) {
	switch conf.Driver {
	case "sqlite":
		return OpenSQLite(conf.DSN, conf.LogLevel)
	case "postgres":
		return openPostgres(conf)
	default:
		return nil, fmt.Errorf("unknown db driver %q", conf.Driver)
	}
}

func openPostgres(conf config.DatabaseConfig) (*gorm.DB, error) {
	masterDSN := conf.DSN
	if masterDSN == "" {
		if conf.Master.Host == "" {
			return nil, fmt.Errorf("master database configuration is missing")
		}
		masterDSN = dsnFromConfig(conf.Master)
	}

	orm, err := gorm.Open(postgres.Open(masterDSN), gormConfig(conf.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("connect to master: %w", err)
	}

	replicas := make([]gorm.Dialector, 0, len(conf.Replicas))
	for _, r := range conf.Replicas {
		replicas = append(replicas, postgres.Open(dsnFromConfig(r)))
	}
	if len(replicas) > 0 {
		err = orm.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).SetMaxOpenConns(conf.MaxOpenConns))
		if err != nil {
			return nil, fmt.Errorf("register replicas: %w", err)
		}
	}

	sqlDB, err := orm.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(conf.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.L.Info("Connected to postgres", zap.Int("replicas", len(replicas)))
	return orm, nil
}

// OpenSQLite открывает sqlite; одно соединение, чтобы in-memory база с cache=shared не терялась
func OpenSQLite(dsn string, logLevel string) (*gorm.DB, error) {
	orm, err := gorm.Open(sqlite.Open(dsn), gormConfig(logLevel))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	sqlDB, err := orm.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := orm.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return orm, nil
}

// Read возвращает подключение для чтения (реплики, если зарегистрированы)
func Read(ctx context.Context, orm *gorm.DB) *gorm.DB {
	return orm.WithContext(ctx).Clauses(dbresolver.Read)
}

// Write возвращает подключение для записи (мастер)
func Write(ctx context.Context, orm *gorm.DB) *gorm.DB {
	return orm.WithContext(ctx).Clauses(dbresolver.Write)
}

func Close(orm *gorm.DB) error {
	sqlDB, err := orm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
