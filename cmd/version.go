// File: cmd/version.go
package cmd

import "github.com/spf13/cobra"

// Version is the application version.
// This value is intended to be set at build time using ldflags.
// Example: go build -ldflags "-X github.com/xkilldash9x/wayfarer-cli/cmd.Version=1.0.0"
var Version = "1.0"

// newVersionCmd creates the `version` command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wayfarer-cli version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("wayfarer-cli %s\n", Version)
		},
	}
}
