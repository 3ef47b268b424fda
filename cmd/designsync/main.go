package main

import (
	"os"

	"github.com/dshills/designsync/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
