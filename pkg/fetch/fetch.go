// Package fetch downloads and unpacks the pinned toolchain archives listed
// in DEPS.yml (binaryen, prebuilt wasm-bindgen and friends).
package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"

	"github.com/ALSchwalm/assimilation/build-tools/pkg"
)

// DepSpec describes a single downloadable dependency.
type DepSpec struct {
	Condition  string `yaml:"if,omitempty"`
	Rejections string `yaml:"ifNot,omitempty"`
	URL        string
	Dest       string
	Sha256     string
	Strip      int
	MarkExec   []string `yaml:"markExec,omitempty"`
}

// DepConfig is the parsed DEPS.yml.
type DepConfig struct {
	Vars map[string]string
	Deps map[string]DepSpec
}

// ReadConfig parses the given DEPS.yml.
func ReadConfig(path string) (DepConfig, error) {
	var cfg DepConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, eris.Wrapf(err, "Could not open file %s.", path)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, eris.Wrapf(err, "Failed to parse %s.", path)
	}

	if cfg.Vars == nil {
		cfg.Vars = map[string]string{}
	}

	return cfg, nil
}

// ReadStamps loads the stamp file that records which dependencies are already
// unpacked. A missing file yields an empty map.
func ReadStamps(path string) (map[string]string, error) {
	stamps := map[string]string{}
	data, err := os.ReadFile(path)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return stamps, nil
		}
		return nil, eris.Wrapf(err, "Failed to read stamps file %s.", path)
	}

	err = json.Unmarshal(data, &stamps)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to parse JSON file %s.", path)
	}

	return stamps, nil
}

// WriteStamps persists the stamp map.
func WriteStamps(path string, stamps map[string]string) error {
	data, err := json.Marshal(stamps)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0660)
}

var varMatcher = regexp.MustCompile(`\{([A-Z0-9_]+)\}`)

// EvalConditions interpolates the URL placeholders and checks the if/ifNot
// variable conditions. It reports whether the dependency applies to the
// current configuration.
func EvalConditions(meta *DepSpec, vars map[string]string) bool {
	meta.URL = varMatcher.ReplaceAllStringFunc(meta.URL, func(varName string) string {
		return vars[varName[1:len(varName)-1]]
	})

	for _, condition := range strings.Split(meta.Condition, ",") {
		if condition == "" {
			continue
		}

		value, ok := vars[strings.TrimSpace(condition)]
		if !ok || value == "" {
			return false
		}
	}

	for _, condition := range strings.Split(meta.Rejections, ",") {
		if condition == "" {
			continue
		}

		value, ok := vars[strings.TrimSpace(condition)]
		if ok && value != "" {
			return false
		}
	}
	return true
}

// PlatformVars returns the variable set used by EvalConditions: the vars from
// DEPS.yml plus the current OS, architecture and CI state.
func PlatformVars(cfg DepConfig) map[string]string {
	vars := map[string]string{}
	for name, value := range cfg.Vars {
		vars[name] = value
	}

	vars[runtime.GOARCH] = "true"
	vars[runtime.GOOS] = "true"
	if os.Getenv("CI") == "true" {
		vars["ci"] = "true"
	}

	return vars
}

func progress(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		// progress bars just clutter the CI log
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

// FetchAll downloads and unpacks every dependency that applies to the current
// platform and isn't covered by an up-to-date stamp. With update set,
// checksum mismatches are collected in the returned map instead of failing.
func FetchAll(cfg DepConfig, stamps map[string]string, projectRoot string, update bool) (map[string]string, error) {
	client := &http.Client{
		Timeout: time.Minute * 30,
	}

	vars := PlatformVars(cfg)
	newChecksums := map[string]string{}

	for name, meta := range cfg.Deps {
		// conditions have to run even for skipped deps because they also
		// interpolate the URL placeholders
		skip := !EvalConditions(&meta, vars)
		if skip && !update {
			continue
		}

		destPath := filepath.Join(projectRoot, meta.Dest)
		destInfo, err := os.Stat(destPath)
		destExists := err == nil

		stampToken := meta.URL + "#" + meta.Sha256
		if stamp, ok := stamps[name]; ok && stampToken == stamp && destExists {
			continue
		}

		pkg.PrintSubtask(name + ":  " + meta.URL)
		if meta.Sha256 == "" && !update {
			return nil, eris.Errorf("Dependency %s doesn't have a checksum", name)
		}

		archive, digest, err := download(client, meta.URL)
		if err != nil {
			return nil, err
		}

		cleanup := func() {
			archive.Close()
			os.Remove(archive.Name())
		}

		if digest != meta.Sha256 {
			if !update {
				cleanup()
				return nil, eris.Errorf("Checksum check failed for %s", name)
			}
			newChecksums[name] = digest
		}

		if skip {
			cleanup()
			continue
		}

		if destExists {
			pkg.PrintSubtask("Remove " + destPath)
			if destInfo.IsDir() {
				err = os.RemoveAll(destPath)
			} else {
				err = os.Remove(destPath)
			}
			if err != nil {
				cleanup()
				return nil, err
			}
		}

		extractor, err := ForURL(meta.URL)
		if err != nil {
			cleanup()
			return nil, err
		}

		if _, err = archive.Seek(0, io.SeekStart); err != nil {
			cleanup()
			return nil, err
		}

		info, err := archive.Stat()
		if err != nil {
			cleanup()
			return nil, err
		}

		bar := progress(info.Size(), "      extract")
		err = extractor(archive, bar, destPath, meta)
		cleanup()
		if err != nil {
			return nil, err
		}

		if runtime.GOOS != "windows" {
			// .zip files don't carry permissions so binaries have to be
			// marked executable manually
			for _, binPath := range meta.MarkExec {
				binPath = filepath.Join(destPath, binPath)
				fi, err := os.Stat(binPath)
				if err != nil {
					return nil, eris.Wrapf(err, "Failed to read permissions for %s", binPath)
				}

				err = os.Chmod(binPath, fi.Mode()|0700)
				if err != nil {
					return nil, eris.Wrapf(err, "Failed to mark %s as executable", binPath)
				}
			}
		}

		stamps[name] = stampToken
	}

	return newChecksums, nil
}

// download fetches the given URL into a temporary file and returns the open
// handle along with the hex-encoded SHA-256 digest of the content.
func download(client *http.Client, url string) (*os.File, string, error) {
	handle, err := os.CreateTemp("", "deps_dl")
	if err != nil {
		return nil, "", eris.Wrap(err, "Failed to create download file")
	}

	resp, err := client.Get(url)
	if err != nil {
		handle.Close()
		os.Remove(handle.Name())
		return nil, "", eris.Wrapf(err, "Failed to start download for %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		handle.Close()
		os.Remove(handle.Name())
		return nil, "", eris.Errorf("Download of %s failed with status %s", url, resp.Status)
	}

	hash := sha256.New()
	bar := progress(resp.ContentLength, "     download")

	_, err = io.Copy(io.MultiWriter(handle, hash, bar), resp.Body)
	bar.Finish()
	if err != nil {
		handle.Close()
		os.Remove(handle.Name())
		return nil, "", eris.Wrapf(err, "Failed during download of %s", url)
	}

	return handle, hex.EncodeToString(hash.Sum(nil)), nil
}
