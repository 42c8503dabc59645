// Package cmd implements the CLI for the buildsys package
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ALSchwalm/assimilation/build-tools/pkg/buildsys"
	"github.com/ALSchwalm/assimilation/build-tools/pkg/config"
)

const cacheName = ".task-cache"

// RootCmd parses the first tasks.star file it finds and executes the given
// tasks. "configure KEY=VALUE ..." stores the option values for later runs.
var RootCmd = &cobra.Command{
	Use:   "task",
	Short: "Build task runner",
	Long: `This command parses the first tasks.star file it finds and executes the given
tasks. Run "task configure KEY=VALUE ..." to persist option values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		taskArgs := make([]string, 0)
		options := make(map[string]string)
		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		for _, part := range args {
			pos := strings.Index(part, "=")
			if pos > -1 {
				options[part[:pos]] = part[pos+1:]
			} else {
				taskArgs = append(taskArgs, part)
			}
		}

		logger := newLogger()
		ctx := buildsys.WithLogger(context.Background(), &logger)

		taskPath, err := findTaskScript()
		if err != nil {
			logger.Fatal().Err(err).Msg("No tasks.star file found")
		}

		projectRoot := filepath.Dir(taskPath)
		cachePath := filepath.Join(projectRoot, cacheName)

		doConfigure := len(taskArgs) > 0 && taskArgs[0] == "configure"
		if doConfigure {
			taskArgs = taskArgs[1:]
		} else {
			// option values from an earlier configure run serve as the
			// baseline; explicit KEY=VALUE args still win
			cached, _, err := buildsys.ReadCache(cachePath)
			if err == nil {
				for name, value := range cached {
					if _, present := options[name]; !present {
						options[name] = value
					}
				}
			}
		}

		taskList, scriptOptions, err := buildsys.ParseScript(ctx, taskPath, projectRoot, options, true)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse tasks")
		}

		if doConfigure {
			err = buildsys.WriteCache(cachePath, options, taskList)
			if err != nil {
				logger.Fatal().Err(err).Msgf("Failed to write %s", cachePath)
			}

			logger.Info().Msgf("Stored options in %s", cachePath)
		}

		for _, name := range taskArgs {
			if _, ok := taskList[name]; !ok {
				logger.Fatal().Msgf("Task %s not found", name)
			}

			err = buildsys.RunTask(ctx, projectRoot, name, taskList, dryRun, force)
			if err != nil {
				logger.Fatal().Err(err).Msgf("Failed task %s:", name)
			}
		}

		if len(taskArgs) == 0 && !doConfigure {
			printTaskList(taskList, scriptOptions, options)
		}

		return nil
	},
}

// newLogger builds the console logger with the configured log level applied.
// A broken configuration falls back to info so the runner stays usable.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg, err := config.Load(); err == nil {
		level = cfg.LogLevel()
	}

	return zerolog.New(NewConsoleWriter()).Level(level)
}

// findTaskScript walks up from the working directory to the first tasks.star.
func findTaskScript() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "failed to retrieve the current working directory")
	}

	path := wd
	for {
		taskPath := filepath.Join(path, "tasks.star")
		_, err := os.Stat(taskPath)
		if err == nil {
			return filepath.Rel(wd, taskPath)
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", taskPath)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.New("no tasks.star file found")
		}

		path = parent
	}
}

func printTaskList(taskList buildsys.TaskList, scriptOptions map[string]buildsys.ScriptOption, values map[string]string) {
	fmt.Println("Available tasks:")
	maxNameLen := 0
	sortedNames := make([]string, 0, len(taskList))
	for _, task := range taskList {
		if len(task.Short) > maxNameLen {
			maxNameLen = len(task.Short)
		}

		sortedNames = append(sortedNames, task.Short)
	}

	sort.Strings(sortedNames)

	lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
	for _, name := range sortedNames {
		fmt.Printf(lineFmt, name+":", taskList[name].Desc)
	}

	if len(scriptOptions) > 0 {
		fmt.Println("\nOptions:")
		optNames := make([]string, 0, len(scriptOptions))
		for name := range scriptOptions {
			optNames = append(optNames, name)
		}
		sort.Strings(optNames)

		for _, name := range optNames {
			opt := scriptOptions[name]
			value, ok := values[name]
			if !ok {
				value = opt.Default()
			}
			fmt.Printf(" * %s=%s  %s\n", name, value, opt.Help)
		}
	}
}

func init() {
	RootCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	RootCmd.Flags().BoolP("force", "f", false, "force build; always execute the passed steps even if they don't have to run")
}
