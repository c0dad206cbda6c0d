package main

import (
	"os"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
