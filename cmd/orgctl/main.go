package main

import (
	"github.com/tendant/simple-org-slim/cmd/orgctl/commands"
)

var version = "dev"

func main() {
	commands.Execute(version)
}
