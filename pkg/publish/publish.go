// Package publish pushes the generated site directory to the hosting branch.
// The decision logic is CI-aware: pushes to the source branch deploy, pull
// requests and other branches never do.
package publish

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ALSchwalm/assimilation/build-tools/pkg"
	"github.com/ALSchwalm/assimilation/build-tools/pkg/config"
)

// Env looks up an environment variable. Split out so the decision logic can
// be tested without mutating the process environment.
type Env func(string) string

// ShouldPublish decides whether the current build is allowed to deploy. The
// returned reason is meant for log output.
func ShouldPublish(env Env, sourceBranch string) (bool, string) {
	event := env("GITHUB_EVENT_NAME")
	if event == "pull_request" || event == "pull_request_target" {
		return false, "pull requests are never published"
	}

	ref := env("GITHUB_REF")
	if ref != "" {
		if ref == "refs/heads/"+sourceBranch {
			return true, "push to " + sourceBranch
		}
		return false, ref + " is not the " + sourceBranch + " branch"
	}

	// not running under CI; the caller has to check the local branch
	return true, "local invocation"
}

// CurrentBranch returns the checked out branch of the given repository.
func CurrentBranch(ctx context.Context, projectRoot string) (string, error) {
	return runGit(ctx, projectRoot, "rev-parse", "--abbrev-ref", "HEAD")
}

// Publish commits the contents of the site directory to the configured branch
// and pushes it. The working tree stays untouched; the commit is prepared in
// a temporary git worktree.
func Publish(ctx context.Context, projectRoot string, cfg *config.Config) error {
	siteDir := filepath.Join(projectRoot, cfg.Site.Dir)
	entries, err := os.ReadDir(siteDir)
	if err != nil {
		return eris.Wrapf(err, "failed to read site directory %s", siteDir)
	}
	if len(entries) == 0 {
		return eris.Errorf("site directory %s is empty, run the web build first", siteDir)
	}

	workDir, err := os.MkdirTemp("", "site-publish")
	if err != nil {
		return eris.Wrap(err, "failed to create worktree directory")
	}
	defer os.RemoveAll(workDir)

	branch := cfg.Publish.Branch
	remoteRef := cfg.Publish.Remote + "/" + branch

	// an existing branch is extended, otherwise the first publish starts
	// from an empty history
	_, _ = runGit(ctx, projectRoot, "fetch", cfg.Publish.Remote, branch)
	_, refErr := runGit(ctx, projectRoot, "rev-parse", "--verify", remoteRef)

	if refErr == nil {
		_, err = runGit(ctx, projectRoot, "worktree", "add", "--detach", workDir, remoteRef)
	} else {
		_, err = runGit(ctx, projectRoot, "worktree", "add", "--detach", workDir)
	}
	if err != nil {
		return err
	}
	defer func() {
		_, _ = runGit(ctx, projectRoot, "worktree", "remove", "--force", workDir)
	}()

	if refErr != nil {
		if _, err = runGit(ctx, workDir, "checkout", "--orphan", branch); err != nil {
			return err
		}
		if _, err = runGit(ctx, workDir, "rm", "-rf", "--ignore-unmatch", "."); err != nil {
			return err
		}
	} else {
		if _, err = runGit(ctx, workDir, "rm", "-rf", "--ignore-unmatch", "."); err != nil {
			return err
		}
	}

	err = CopyTree(siteDir, workDir)
	if err != nil {
		return err
	}

	if _, err = runGit(ctx, workDir, "add", "--all"); err != nil {
		return err
	}

	status, err := runGit(ctx, workDir, "status", "--porcelain")
	if err != nil {
		return err
	}
	if status == "" {
		pkg.PrintSubtask("Site is unchanged, nothing to publish")
		return nil
	}

	if _, err = runGit(ctx, workDir, "commit", "-m", cfg.Publish.CommitMessage); err != nil {
		return err
	}

	pkg.PrintSubtask("Pushing to " + remoteRef)
	_, err = runGit(ctx, workDir, "push", cfg.Publish.Remote, "HEAD:refs/heads/"+branch)
	return err
}

// CopyTree copies the contents of srcDir into destDir, skipping anything
// named .git.
func CopyTree(srcDir, destDir string) error {
	return filepath.WalkDir(srcDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if entry.Name() == ".git" {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dest := filepath.Join(destDir, rel)
		if entry.IsDir() {
			return os.MkdirAll(dest, 0770)
		}

		return copyFile(path, dest)
	})
}

func copyFile(src, dest string) error {
	source, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", src)
	}
	defer source.Close()

	target, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", dest)
	}

	_, err = io.Copy(target, source)
	if closeErr := target.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return eris.Wrapf(err, "failed to copy %s to %s", src, dest)
	}

	return nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return "", eris.Wrapf(err, "git %s failed", strings.Join(args, " "))
	}

	return strings.TrimSpace(string(out)), nil
}
