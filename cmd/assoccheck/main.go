package main

import (
	"os"
)

func main() {
	rootCmd := newRootCmd()
	registerValidateCmd(rootCmd)
	registerDescribeCmd(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
