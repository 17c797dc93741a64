package main

import (
	"os"

	"pricetrail/cmd/devtool/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
