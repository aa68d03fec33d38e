package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "greet-cli",
	Short: "Greeting registry command line tool",
	Long: `Greeting registry command line tool for running the greeting contract
against a local sqlite-backed storage environment.`,
}

var dbPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "greeting.db", "path to the sqlite database")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(setLimitCmd)
	rootCmd.AddCommand(greetCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(lastCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(transferCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
