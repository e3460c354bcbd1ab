// Package launch opens URLs and files with the platform's default handler.
package launch

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrEmptyTarget is returned when there is nothing to open.
var ErrEmptyTarget = errors.New("empty target")

// System opens targets through the operating system's default handler.
type System struct{}

// Open starts the platform opener for target and returns without waiting for it.
func (System) Open(target string) error {
	name, args, err := Command(runtime.GOOS, target)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Command returns the program and arguments that open target on goos.
func Command(goos, target string) (string, []string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", nil, ErrEmptyTarget
	}
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}, nil
	case "darwin":
		return "open", []string{target}, nil
	default:
		return "xdg-open", []string{target}, nil
	}
}
