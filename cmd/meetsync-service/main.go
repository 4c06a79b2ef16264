package main

import (
	"os"

	"github.com/meetsync/meetsync/server/meetsyncservice"
)

func main() {
	if err := meetsyncservice.Run(); err != nil {
		os.Exit(1)
	}
}
