package server

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

// Open or create the DB
func openDB(log logs.Log, config dbh.DBConfig) (*gorm.DB, error) {
	log.Infof("Opening job DB")
	return dbh.OpenDB(log, config, migrations(log), 0)
}

func migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE job(
			id INTEGER PRIMARY KEY,
			created_at INT NOT NULL,
			input_name TEXT NOT NULL,
			output_name TEXT NOT NULL,
			remote_url TEXT NOT NULL,
			frame_count INT NOT NULL,
			face_count INT NOT NULL,
			results TEXT NOT NULL
		);
		CREATE INDEX idx_job_created_at ON job(created_at);
	`))

	return migs
}
