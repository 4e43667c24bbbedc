package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentloop/core"
)

type commandArgs struct {
	Command string `json:"command" description:"shell command to run"`
}

// NewExecuteCommandTool returns the execute_command tool. Commands run
// through "sh -c" in workDir; a non-zero exit status is part of the result,
// not an error.
func NewExecuteCommandTool(workDir string) *FunctionTool {
	return NewFunctionToolFromStruct(
		core.ToolExecuteCommand.String(),
		"Run shell commands",
		commandArgs{},
		func(ctx context.Context, args map[string]string) (string, error) {
			command := args["command"]
			if strings.TrimSpace(command) == "" {
				return "", NewToolError(core.ToolExecuteCommand.String(), "command must not be empty", CodeValidation)
			}

			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			cmd.Dir = workDir

			stdout, stderr, err := runCommand(cmd)
			exitCode := 0
			if err != nil {
				var exitErr *exec.ExitError
				if !errors.As(err, &exitErr) {
					return "", err
				}
				exitCode = exitErr.ExitCode()
			}

			return formatCommandResult(stdout, stderr, exitCode), nil
		},
	)
}

// runCommand starts cmd and drains stdout and stderr concurrently so a
// command that fills one pipe while the other is idle cannot stall. Wait is
// only called once both pipes hit EOF.
func runCommand(cmd *exec.Cmd) (stdout, stderr string, err error) {
	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", "", err
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", "", err
	}
	if err := cmd.Start(); err != nil {
		return "", "", err
	}

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&outBuf, outPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&errBuf, errPipe)
		return err
	})

	drainErr := g.Wait()
	if err := cmd.Wait(); err != nil {
		return outBuf.String(), errBuf.String(), err
	}
	if drainErr != nil {
		return "", "", fmt.Errorf("read command output: %w", drainErr)
	}
	return outBuf.String(), errBuf.String(), nil
}

func formatCommandResult(stdout, stderr string, exitCode int) string {
	parts := make([]string, 0, 3)
	if stdout != "" {
		parts = append(parts, "STDOUT:\n"+stdout)
	}
	if stderr != "" {
		parts = append(parts, "STDERR:\n"+stderr)
	}
	parts = append(parts, fmt.Sprintf("Exit code: %d", exitCode))
	return strings.Join(parts, "\n")
}
