package comparison

import (
	"fmt"
	"os/exec"
	"strings"
)

// git runs one git command in the project working tree and returns its
// combined output. Comparison operations call it synchronously, which
// serializes working-tree mutations by construction.
func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(output))
	if err != nil {
		return trimmed, fmt.Errorf("git %s failed: %s", strings.Join(args, " "), trimmed)
	}
	return trimmed, nil
}

func headRef(dir string) (string, error) {
	return git(dir, "rev-parse", "HEAD")
}

func currentBranch(dir string) (string, error) {
	return git(dir, "rev-parse", "--abbrev-ref", "HEAD")
}

func branchExists(dir, branch string) bool {
	_, err := git(dir, "rev-parse", "--verify", "refs/heads/"+branch)
	return err == nil
}

func createBranchAt(dir, branch, ref string) error {
	_, err := git(dir, "checkout", "-b", branch, ref)
	return err
}

func checkout(dir, branch string) error {
	_, err := git(dir, "checkout", branch)
	return err
}

func forceCheckout(dir, branch string) error {
	_, err := git(dir, "checkout", "-f", branch)
	return err
}

func deleteBranch(dir, branch string) error {
	_, err := git(dir, "branch", "-D", branch)
	return err
}

func listBranches(dir, prefix string) ([]string, error) {
	out, err := git(dir, "branch", "--list", prefix+"*", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// commitAll stages and commits the working tree. A clean tree is not an
// error; there is simply nothing to record.
func commitAll(dir, message string) error {
	if _, err := git(dir, "add", "-A"); err != nil {
		return err
	}
	out, err := git(dir, "status", "--porcelain")
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	_, err = git(dir, "commit", "--no-verify", "-m", message)
	return err
}

// mergePreferring merges branch into the current line preferring the
// branch's side on conflicts.
func mergePreferring(dir, branch string) error {
	_, err := git(dir, "merge", "--no-ff", "-X", "theirs", branch, "-m", "merge "+branch)
	return err
}

func mergeAbort(dir string) {
	_, _ = git(dir, "merge", "--abort")
}

// overlayBranch force-copies a branch's tree onto the current one. Used
// as the aggressive fallback when a merge cannot complete.
func overlayBranch(dir, branch string) error {
	if _, err := git(dir, "checkout", branch, "--", "."); err != nil {
		return err
	}
	return commitAll(dir, "apply "+branch)
}
