// Command marathon runs the marathon API and its maintenance tasks.
package main

import (
	"os"

	"github.com/kbukum/marathon/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.ErrorFields("execute", err))
		os.Exit(1)
	}
}
