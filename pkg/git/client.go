package git

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultLockName is the lock file created in the working directory.
const DefaultLockName = ".stash.lock"

// Author identifies who commits. An empty Author uses the git configuration.
type Author struct {
	Name  string
	Email string
}

// Client wraps git command execution with a global file-based lock for process safety.
type Client struct {
	WorkDir  string
	Logger   *slog.Logger
	Author   Author
	lockPath string
}

// NewClient creates a new git client for the given working directory.
func NewClient(workDir, lockName string, logger *slog.Logger) *Client {
	if lockName == "" {
		lockName = DefaultLockName
	}
	return &Client{
		WorkDir:  workDir,
		Logger:   logger,
		lockPath: lockName,
	}
}

// LockName returns the lock file name relative to the working directory.
func (c *Client) LockName() string {
	return c.lockPath
}

// StaleLockAge is how old a lock file must be before Lock treats it as left
// behind by a crashed process and removes it.
const StaleLockAge = 30 * time.Second

// Lock acquires the repository lock file, polling until it is free, ctx is
// done, or a stale lock is reclaimed. The returned func releases it.
func (c *Client) Lock(ctx context.Context) (func(), error) {
	lockFile := filepath.Join(c.WorkDir, c.lockPath)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		f, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL, 0666)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockFile) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		if info, err := os.Stat(lockFile); err == nil && time.Since(info.ModTime()) > StaleLockAge {
			if c.Logger != nil {
				c.Logger.Warn("removing stale git lock", "path", lockFile, "age", time.Since(info.ModTime()))
			}
			os.Remove(lockFile)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockFile, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Run executes a raw git command in the working directory.
// The caller holds Lock while running commands that change the repository.
func (c *Client) Run(args ...string) (string, error) {
	if c.Logger != nil {
		c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)
	}

	cmd := exec.Command("git", args...)
	cmd.Dir = c.WorkDir
	if c.Author.Name != "" {
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME="+c.Author.Name,
			"GIT_AUTHOR_EMAIL="+c.Author.Email,
			"GIT_COMMITTER_NAME="+c.Author.Name,
			"GIT_COMMITTER_EMAIL="+c.Author.Email,
		)
	}

	out, err := cmd.CombinedOutput()
	output := string(out)

	if err != nil {
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}

	return strings.TrimSpace(output), nil
}

// IsInstalled checks if git is available in the system path.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepo reports whether the working directory is inside a git repository.
func (c *Client) IsRepo() bool {
	out, err := c.Run("rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Init initializes a new git repository. Re-running it is safe.
func (c *Client) Init() error {
	_, err := c.Run("init")
	return err
}

// Add adds files to the stage.
func (c *Client) Add(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, files...)
	_, err := c.Run(args...)
	return err
}

// Rm removes files from the working tree and from the index.
func (c *Client) Rm(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"rm", "-f", "--"}, files...)
	_, err := c.Run(args...)
	return err
}

// Reset unstages files, leaving the working tree alone.
func (c *Client) Reset(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"reset", "-q", "--"}, files...)
	_, err := c.Run(args...)
	return err
}

// Pending reports whether file has changes not yet committed, staged or not.
func (c *Client) Pending(file string) (bool, error) {
	out, err := c.Run("status", "--porcelain", "--", file)
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// Commit records changes to the repository.
func (c *Client) Commit(msg string) error {
	_, err := c.Run("commit", "-m", msg)
	return err
}

// Status returns the porcelain status of the repo.
func (c *Client) Status() (string, error) {
	return c.Run("status", "--porcelain")
}

// Head returns the current commit id.
func (c *Client) Head() (string, error) {
	return c.Run("rev-parse", "HEAD")
}

// BlobID returns the git object id of content, the same value
// `git hash-object` prints for a file holding it.
func BlobID(content []byte) string {
	h := sha1.New()
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
