/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"database/sql"
	"fmt"
	"log"

	pesquera "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/database"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

const schema = "pesquera"

func migrateCommands(_ *pesqueraInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back database migrations",
	}

	cmd.AddCommand(migrateUpCommands())
	cmd.AddCommand(migrateDownCommands())

	return cmd
}

func migrationSource() migrate.EmbedFileSystemMigrationSource {
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: pesquera.SQLFiles,
		Root:       "sql",
	}
}

// connectForMigration opens the configured database and points sql-migrate
// at the service schema, creating it when missing.
func connectForMigration() (*sql.DB, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, fmt.Errorf("error fetching config: %v", err)
	}
	if cnf.DataSource.Dns == memoryDns {
		return nil, fmt.Errorf("the in-memory datasource has no migrations")
	}

	db, err := database.ConnectDB(cnf.DataSource.Dns, cnf.DataSource.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %v", err)
	}
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error creating schema: %v", err)
	}
	migrate.SetSchema(schema)
	return db, nil
}

func migrateUpCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use: "up",
		Run: func(cmd *cobra.Command, args []string) {
			db, err := connectForMigration()
			if err != nil {
				log.Println(err)
				return
			}
			defer db.Close()

			n, err := migrate.Exec(db, "postgres", migrationSource(), migrate.Up)
			if err != nil {
				log.Printf("Error migrating up: %v", err)
			} else {
				fmt.Printf("Applied %d migrations!\n", n)
			}
		},
	}

	return cmd
}

func migrateDownCommands() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use: "down",
		Run: func(cmd *cobra.Command, args []string) {
			db, err := connectForMigration()
			if err != nil {
				log.Println(err)
				return
			}
			defer db.Close()

			n, err := migrate.ExecMax(db, "postgres", migrationSource(), migrate.Down, steps)
			if err != nil {
				log.Printf("Error migrating down: %v", err)
			} else {
				fmt.Printf("Rolled back %d migrations!\n", n)
			}
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back, 0 for all")

	return cmd
}
