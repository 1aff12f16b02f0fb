package cli

import "github.com/spf13/cobra"

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			a.io.Println("GophProgress Client")
			a.io.Printf("Version:    %s\n", a.build.Version)
			a.io.Printf("Build Date: %s\n", a.build.BuildDate)
			a.io.Printf("Git Commit: %s\n", a.build.GitCommit)
		},
	}
}
