package lp

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Parameters bounds the work of an engine
type Parameters struct {
	RelativeGap float64
	TimeLimit   time.Duration // Zero means no limit
}

// writeTemporaryFile stores content in a fresh temporary file and returns its name
func writeTemporaryFile(pattern, content string) (string, error) {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to write temporary file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to close temporary file: %v", err)
	}
	return tmpFile.Name(), nil
}

func runExecutable(solver, path string, args ...string) (string, error) {
	cmd := exec.Command(path, args...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("an error occurred during %v execution: %v : %v", solver, err.Error(), stderr.String())
	}
	return stdOut.String(), nil
}

func removeFiles(names ...string) {
	for _, name := range names {
		os.Remove(name)
	}
}
