package pkg

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ListTools returns the import paths listed in the given tools.go file.
func ListTools(toolsFile string) ([]string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, toolsFile, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	tools := make([]string, 0, len(f.Imports))
	for _, path := range f.Imports {
		tools = append(tools, strings.Trim(path.Path.Value, `"`))
	}

	return tools, nil
}

// InstallTools installs the Go CLI tools listed in the root tools.go into the
// workspace .tools directory.
func InstallTools() error {
	projectRoot, err := GetProjectRoot()
	if err != nil {
		return err
	}

	binPath := filepath.Join(projectRoot, ".tools")
	toolsFile := filepath.Join(projectRoot, "tools.go")

	tools, err := ListTools(toolsFile)
	if err != nil {
		return err
	}

	for _, dep := range tools {
		PrintSubtask(dep)

		cmd := exec.Command("go", "install", dep)
		cmd.Dir = filepath.Dir(toolsFile)
		cmd.Env = append(os.Environ(), fmt.Sprintf("GOBIN=%s", binPath))
		cmd.Stderr = os.Stderr
		cmd.Stdout = os.Stdout
		err := cmd.Run()
		if err != nil {
			return err
		}
	}

	return nil
}
