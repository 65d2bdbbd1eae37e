package main

import (
	"os"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
