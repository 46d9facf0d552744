// cmd/cnrewrite/main.go
package main

import (
	"fmt"
	"os"
)

const defaultConfigPath = "/etc/cnrewrite/config.yaml"

func main() {
	root := newRootCmd()
	root.SilenceErrors = true
	root.SilenceUsage = true

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// configPathFromEnv returns CNREWRITE_CONFIG or the default path.
func configPathFromEnv() string {
	if p := os.Getenv("CNREWRITE_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}
