// Package main is the entry point for avplay.
package main

import (
	"github.com/avplay-cli/avplay/cmd"
	"github.com/avplay-cli/avplay/config"
	"github.com/avplay-cli/avplay/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
