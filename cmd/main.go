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
	"fmt"
	"log"
	"os"

	pesquera "github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/config"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/database"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/database/memory"
	"github.com/JoseLopezGonzalez/lapesquerapp-backend-sub000/internal/notification"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// memoryDns selects the in-process store instead of PostgreSQL. State is
// lost on exit.
const memoryDns = "memory"

type Pesquera struct {
	cmd *cobra.Command
}

// pesqueraInstance carries the service and its configuration from preRun
// into the subcommands.
type pesqueraInstance struct {
	pesquera *pesquera.Pesquera
	cnf      *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *pesqueraInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		p, err := setupPesquera(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.pesquera = p
		app.cnf = cnf
		return nil
	}
}

func setupPesquera(cfg *config.Configuration) (*pesquera.Pesquera, error) {
	var db database.IDataSource
	if cfg.DataSource.Dns == memoryDns {
		logrus.Warn("using the in-memory datasource, nothing will be persisted")
		db = memory.New()
	} else {
		ds, err := database.NewDataSource(cfg)
		if err != nil {
			return nil, fmt.Errorf("error getting datasource: %v", err)
		}
		db = ds
	}

	p, err := pesquera.NewPesquera(db)
	if err != nil {
		return nil, fmt.Errorf("error creating pesquera: %v", err)
	}
	return p, nil
}

func NewCLI() *Pesquera {
	var configFile string
	p := &pesqueraInstance{}

	var rootCmd = &cobra.Command{
		Use:   "pesquera",
		Short: "Production traceability for seafood processing",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./pesquera.json", "Configuration file")
	rootCmd.PersistentPreRunE = preRun(p, &configFile)

	rootCmd.AddCommand(serverCommands(p))
	rootCmd.AddCommand(workerCommands(p))
	rootCmd.AddCommand(migrateCommands(p))
	rootCmd.AddCommand(configCommands(p))

	return &Pesquera{cmd: rootCmd}
}

func (w Pesquera) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
