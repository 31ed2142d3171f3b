package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version and platform",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipBootstrap: ""},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("lidarqc version %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
