package history

// This file contains Git integration utilities for stamping run records
// with the state of the repository.

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/glubean/testbridge/model"
)

// GitInfo returns the current commit and branch of the repository at dir.
func GitInfo(dir string) (*model.Git, error) {
	commit, err := git(dir, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to get git commit: %w", err)
	}
	branch, err := git(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("failed to get git branch: %w", err)
	}
	return &model.Git{Commit: commit, Branch: branch}, nil
}

func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
