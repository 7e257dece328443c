package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"seqwork/internal/config"
)

// minStagingBytes is the free space floor for the staging filesystem. A
// single sequencing run can exceed tens of gigabytes once staged.
const minStagingBytes = 10 << 30

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minBytes
// available.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}

	available := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s (%.1f GiB available)", path, float64(available)/(1<<30))
	if available < minBytes {
		return Result{Name: name, Detail: detail + fmt.Sprintf(", need %.1f GiB", float64(minBytes)/(1<<30))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckBinary verifies an executable resolves on PATH (or at its absolute path).
func CheckBinary(name, binary string) Result {
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found on PATH", binary)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckWorkTypeCommand verifies the analysis command for a work type resolves.
func CheckWorkTypeCommand(cfg *config.Config, name string) Result {
	checkName := "Work type " + name
	command, ok := cfg.WorkTypeCommand(name)
	if !ok {
		return Result{Name: checkName, Detail: "no command configured"}
	}
	executable := strings.Fields(command)[0]
	resolved, err := exec.LookPath(executable)
	if err != nil {
		return Result{Name: checkName, Detail: fmt.Sprintf("command %s not found on PATH", executable)}
	}
	return Result{Name: checkName, Passed: true, Detail: resolved}
}
