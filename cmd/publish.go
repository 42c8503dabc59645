package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ALSchwalm/assimilation/build-tools/pkg"
	"github.com/ALSchwalm/assimilation/build-tools/pkg/config"
	"github.com/ALSchwalm/assimilation/build-tools/pkg/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publishes the site directory to the hosting branch",
	Long: `Commits the contents of the site directory to the configured hosting branch
and pushes it. On CI this only happens for pushes to the source branch; pull
requests and other branches are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		root, err := pkg.GetProjectRoot()
		if err != nil {
			return err
		}

		ok, reason := publish.ShouldPublish(os.Getenv, cfg.Publish.SourceBranch)
		if ok && os.Getenv("GITHUB_REF") == "" && !force {
			// outside CI the checked out branch decides
			branch, err := publish.CurrentBranch(cmd.Context(), root)
			if err != nil {
				return err
			}

			if branch != cfg.Publish.SourceBranch {
				ok = false
				reason = branch + " is not the " + cfg.Publish.SourceBranch + " branch"
			}
		}

		if !ok && !force {
			pkg.PrintTask("Skipping publish: " + reason)
			return nil
		}

		pkg.PrintTask("Publishing " + cfg.Site.Dir + " to " + cfg.Publish.Branch)
		return publish.Publish(cmd.Context(), root, cfg)
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().BoolP("force", "f", false, "publish regardless of the current branch")
}
