package main

import (
	"os"

	"github.com/Rana718/Portal/cmd"
	"github.com/fatih/color"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !cmd.Reported(err) {
			color.Red("❌ %v", err)
		}
		os.Exit(1)
	}
}
