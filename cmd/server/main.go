package main

import (
	"github.com/intuitive-data/redesign/internal/server"
	"github.com/intuitive-data/redesign/internal/util"
	"github.com/intuitive-data/redesign/pkg/logger"
	"github.com/intuitive-data/redesign/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
