package database

import (
	"fmt"
	"time"

	"github.com/sahilchouksey/lesson-planner/config"
	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Storage defines the interface that all database implementations must satisfy
type Storage interface {
	Init() error
	Close() error
	HealthCheck() error
	GetDB() *gorm.DB
}

type GORMStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// StartGORM opens the database selected by DB_DRIVER (postgres or sqlite)
func StartGORM(env *config.EnvironmentVariable, log *logger.Logger) (*GORMStore, error) {
	// Configure GORM logger
	gormLog := gormlogger.Default.LogMode(gormlogger.Info)
	if env.GO_ENV == "production" {
		gormLog = gormlogger.Default.LogMode(gormlogger.Error)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch env.DB_DRIVER {
	case "sqlite":
		db, err = OpenSQLite(env.DB_PATH, gormLog)
	case "postgres", "":
		db, err = openPostgres(env, gormLog)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", env.DB_DRIVER)
	}
	if err != nil {
		log.Error("unable to connect to database", "driver", env.DB_DRIVER, "error", err)
		return nil, err
	}

	log.Info("connected to database", "driver", env.DB_DRIVER)
	return &GORMStore{db: db, log: log}, nil
}

func openPostgres(env *config.EnvironmentVariable, gormLog gormlogger.Interface) (*gorm.DB, error) {
	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.DB_HOST,
		env.DB_USER_NAME,
		env.DB_PASSWORD,
		env.DB_NAME,
		env.DB_PORT,
		env.DB_SSL_MODE,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:      gormLog,
		PrepareStmt: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// OpenSQLite opens a SQLite database. A single connection serializes writers,
// which SQLite requires for the deep indexer and schedule transactions to coexist.
func OpenSQLite(dsn string, gormLog gormlogger.Interface) (*gorm.DB, error) {
	if gormLog == nil {
		gormLog = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates every table the service owns
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Document{},
		&model.DocumentFile{},
		&model.Lesson{},
		&model.CronJobLog{},
	)
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	s.log.Info("running AutoMigrate")
	if err := Migrate(s.db); err != nil {
		s.log.Error("AutoMigrate failed", "error", err)
		return err
	}
	s.log.Info("AutoMigrate completed")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	s.log.Info("closing database connection")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services/handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// NewGORMStore wraps an already-open connection
func NewGORMStore(db *gorm.DB, log *logger.Logger) *GORMStore {
	return &GORMStore{db: db, log: log}
}
