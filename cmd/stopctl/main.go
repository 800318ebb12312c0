// Command stopctl manages route stop ledgers and operator accounts from
// the command line.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bus_ticketing/internal/config"
)

func main() {
	root := newRootCmd(openDB)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(logrus.WarnLevel)
	return config.OpenDB(cfg.DB)
}
