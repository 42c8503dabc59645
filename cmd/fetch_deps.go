package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ALSchwalm/assimilation/build-tools/pkg"
	"github.com/ALSchwalm/assimilation/build-tools/pkg/fetch"
)

var fetchDepsCmd = &cobra.Command{
	Use:   "fetch-deps",
	Short: "Downloads and unpacks dependencies",
	Long:  `Downloads and unpacks the toolchain dependencies listed in DEPS.yml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		update, err := cmd.Flags().GetBool("update")
		if err != nil {
			return err
		}

		pkg.PrintTask("Loading config")
		root, err := pkg.GetProjectRoot()
		if err != nil {
			return err
		}

		cfg, err := fetch.ReadConfig(filepath.Join(root, "DEPS.yml"))
		if err != nil {
			return err
		}

		stampPath := filepath.Join(root, "DEPS.stamps")
		stamps, err := fetch.ReadStamps(stampPath)
		if err != nil {
			return err
		}

		pkg.PrintTask("Downloading dependencies")
		newChecksums, fetchErr := fetch.FetchAll(cfg, stamps, root, update)

		// the stamps are written even after a failure so that finished
		// downloads don't have to be repeated
		err = fetch.WriteStamps(stampPath, stamps)
		if err != nil {
			pkg.PrintError(err.Error())
		}

		if fetchErr != nil {
			return fetchErr
		}

		if len(newChecksums) > 0 {
			pkg.PrintTask("Update DEPS.yml with these checksums:")
			for name, digest := range newChecksums {
				fmt.Printf("  %s: %s\n", name, digest)
			}
		}

		pkg.PrintTask("Done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchDepsCmd)
	fetchDepsCmd.Flags().BoolP("update", "u", false, "Update checksums")
}
