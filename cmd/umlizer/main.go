package main

import (
	"os"

	"umlizer/cmd/umlizer/commands"
)

func main() {
	os.Exit(commands.Execute())
}
