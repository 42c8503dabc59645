package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ALSchwalm/assimilation/build-tools/pkg"
)

var packDistCmd = &cobra.Command{
	Use:   "pack-dist archive_name content_directory",
	Short: "Packs the site directory into a compressed distribution bundle",
	Long: `Pass the name of the bundle that should be generated and the directory with
the intended contents (usually the site output directory).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return eris.New("Expected 2 arguments!")
		}

		writer, err := pkg.NewDistWriter(args[0])
		if err != nil {
			return err
		}

		err = walkDirectory(writer, args[1])
		if err != nil {
			return err
		}

		return writer.Close()
	},
}

var listDistCmd = &cobra.Command{
	Use:   "list-dist archive_name",
	Short: "Lists the contents of a distribution bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return eris.New("Expected 1 argument!")
		}

		items, err := pkg.ListDistItems(args[0])
		if err != nil {
			return err
		}

		for _, item := range items {
			fmt.Printf("%10d  %s\n", item.DecSize, item.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(packDistCmd)
	rootCmd.AddCommand(listDistCmd)
}

func walkDirectory(writer *pkg.DistWriter, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return eris.Wrapf(err, "Failed to read dir %s", dir)
	}

	for _, entry := range entries {
		itemPath := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			writer.OpenDirectory(entry.Name())
			err = walkDirectory(writer, itemPath)
			if err != nil {
				return err
			}

			err = writer.CloseDirectory()
			if err != nil {
				return err
			}
		} else {
			f, err := os.Open(itemPath)
			if err != nil {
				return eris.Wrapf(err, "Failed to open file %s", itemPath)
			}

			err = writer.WriteFile(entry.Name(), f)
			f.Close()
			if err != nil {
				return eris.Wrapf(err, "Failed to pack file %s", itemPath)
			}
		}
	}

	return nil
}
