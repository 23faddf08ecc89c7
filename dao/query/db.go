package query

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/ync-lab/intranet/pkg/config"
	"github.com/ync-lab/intranet/pkg/logutils"
)

var (
	once     sync.Once
	instance *gorm.DB
)

func postgresDSN(host string) string {
	pg := config.GetConfig().Postgres
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		host, pg.User, pg.Password, pg.DBName, pg.Port, pg.SSLMode, pg.TimeZone)
}

// GetDB returns the singleton instance of the database connection.
// Reads are spread over the configured replicas.
func GetDB() *gorm.DB {
	once.Do(func() {
		dbConfig := config.GetConfig()

		var err error
		instance, err = gorm.Open(postgres.Open(postgresDSN(dbConfig.Postgres.Host)), &gorm.Config{
			TranslateError: true,
		})
		if err != nil {
			panic(err)
		}

		if len(dbConfig.Postgres.Replicas) > 0 {
			replicas := make([]gorm.Dialector, 0, len(dbConfig.Postgres.Replicas))
			for _, host := range dbConfig.Postgres.Replicas {
				replicas = append(replicas, postgres.Open(postgresDSN(host)))
			}
			err = instance.Use(dbresolver.Register(dbresolver.Config{
				Replicas: replicas,
				Policy:   dbresolver.RandomPolicy{},
			}).
				SetMaxIdleConns(5).
				SetMaxOpenConns(10).
				SetConnMaxLifetime(time.Hour))
			if err != nil {
				panic(err)
			}
			logutils.Log.WithField("replicas", len(replicas)).Info("Postgres read replicas registered")
		}

		maxIdleConns := 5
		maxOpenConns := 10
		sqlDB, err := instance.DB()
		if err != nil {
			panic(err)
		}
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Hour)

		logutils.Log.Info("Postgres init success!")
	})
	return instance
}
