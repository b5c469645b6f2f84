package main

import (
	"fmt"
	"os"

	"github.com/ArnovZ080/guildboard/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{Use: "guildboard"}

func main() {
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
