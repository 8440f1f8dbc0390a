// Package gitdiff adapts the version-control system to one operation: the
// file diff between two refs. The git implementation shells out to the git
// binary.
package gitdiff

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/c360studio/kddindex/kdderr"
)

// Status codes reported per changed path.
type Status byte

const (
	Added    Status = 'A'
	Modified Status = 'M'
	Deleted  Status = 'D'
	Renamed  Status = 'R'
)

// Change is one diff entry. OldPath is set for renames only.
type Change struct {
	Path    string
	OldPath string
	Status  Status
}

// Differ yields the changes between two refs.
type Differ interface {
	Diff(ctx context.Context, base, head string) ([]Change, error)
	Head(ctx context.Context) (string, error)
	ListFiles(ctx context.Context) ([]string, error)
}

// Git shells out to the git binary in a repository root.
type Git struct {
	repo string
}

// NewGit returns a Differ over the repository at root.
func NewGit(root string) *Git {
	return &Git{repo: root}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repo
	out, err := cmd.Output()
	if err != nil {
		if _, lookErr := exec.LookPath("git"); lookErr != nil {
			return "", kdderr.New(kdderr.GitNotAvailable, "git binary not found")
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Head returns the current HEAD commit.
func (g *Git) Head(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "HEAD")
}

// HasCommit reports whether the ref resolves in this repository.
func (g *Git) HasCommit(ctx context.Context, ref string) bool {
	_, err := g.run(ctx, "cat-file", "-e", ref+"^{commit}")
	return err == nil
}

// Diff lists changes between base and head.
func (g *Git) Diff(ctx context.Context, base, head string) ([]Change, error) {
	if !g.HasCommit(ctx, base) {
		return nil, kdderr.New(kdderr.CommitNotFound, "base commit %s not in history", base)
	}
	out, err := g.run(ctx, "diff", "--name-status", "--find-renames", base, head)
	if err != nil {
		return nil, err
	}
	return ParseNameStatus(out)
}

// ListFiles returns all tracked files.
func (g *Git) ListFiles(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "ls-files")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// ParseNameStatus parses `git diff --name-status` output. Rename lines carry
// a similarity score (R100) and two paths.
func ParseNameStatus(out string) ([]Change, error) {
	var changes []Change
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		code := fields[0]
		switch {
		case strings.HasPrefix(code, "R"):
			if len(fields) != 3 {
				return nil, fmt.Errorf("malformed rename line %q", line)
			}
			changes = append(changes, Change{Status: Renamed, OldPath: fields[1], Path: fields[2]})
		case code == "A" || code == "M" || code == "D":
			if len(fields) != 2 {
				return nil, fmt.Errorf("malformed diff line %q", line)
			}
			changes = append(changes, Change{Status: Status(code[0]), Path: fields[1]})
		default:
			// Copies and mode changes are treated as modifications.
			if len(fields) >= 2 {
				changes = append(changes, Change{Status: Modified, Path: fields[len(fields)-1]})
			}
		}
	}
	return changes, nil
}
