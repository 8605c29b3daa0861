// Package uploadcli implements the qapp-upload command line tool.
package uploadcli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const (
	envAPIURL = "QAPP_API_URL"
	envToken  = "QAPP_TOKEN"
	envEnv    = "APP_ENV"

	defaultAPIURL = "http://localhost:8080"
)

// Environment carries the process streams and environment lookup so
// commands can be exercised in tests.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
}

// DefaultEnvironment uses the process streams and environment.
func DefaultEnvironment() Environment {
	return Environment{Stdout: os.Stdout, Stderr: os.Stderr, Getenv: os.Getenv}
}

// NewRootCmd builds the command tree.
func NewRootCmd(env Environment) *cobra.Command {
	root := &cobra.Command{
		Use:           "qapp-upload",
		Short:         "Upload past question papers to QApp",
		Long:          "Command line client for the QApp API: compresses images, uploads them to object storage and creates the question record.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	root.AddCommand(newUploadCmd(env))
	root.AddCommand(newValidateCmd(env))
	return root
}

// Execute runs the CLI with ctx, which is cancelled on interrupt by the
// caller.
func Execute(ctx context.Context) error {
	return NewRootCmd(DefaultEnvironment()).ExecuteContext(ctx)
}

func envOr(env Environment, key, fallback string) string {
	if env.Getenv != nil {
		if v := env.Getenv(key); v != "" {
			return v
		}
	}
	return fallback
}
