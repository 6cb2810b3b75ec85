package varnish

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// Runner 外部命令执行接口，测试中用 fake 替换
type Runner interface {
	RunCmd(ctx context.Context, cmd string, args ...string) (*bytes.Buffer, error)
}

// Exec 基于 os/exec 的默认实现，stdout 与 stderr 合并输出
type Exec struct {
	// Dir 命令工作目录，为空时继承当前进程
	Dir string
}

const (
	maxErrOutput = 256
	// 超时 kill 后等待管道关闭的上限（sh -c 的子进程可能仍持有 stdout）
	waitDelay = 500 * time.Millisecond
)

// RunCmd 执行命令并返回合并输出；失败时返回 *CommandError 以及已产生的输出
func (e *Exec) RunCmd(ctx context.Context, cmd string, args ...string) (*bytes.Buffer, error) {
	command := exec.CommandContext(ctx, cmd, args...)
	command.Dir = e.Dir
	command.WaitDelay = waitDelay

	output, err := command.CombinedOutput()
	if err != nil {
		return bytes.NewBuffer(output), classify(ctx, commandLine(cmd, args), output, err)
	}
	// 管道中前面的命令不存在时退出码来自最后一段（wc/grep），只能从输出判断
	if notFoundPattern.Match(output) {
		return bytes.NewBuffer(output), &CommandError{
			Kind:    KindUnavailable,
			Command: commandLine(cmd, args),
			Output:  truncate(strings.TrimSpace(string(output)), maxErrOutput),
		}
	}
	return bytes.NewBuffer(output), nil
}

// sh/dash: "sh: 1: varnishadm: not found"
// bash:    "bash: line 1: varnishadm: command not found"
// sudo:    "sudo: varnishadm: command not found"
var notFoundPattern = regexp.MustCompile(`(?m)^(?:\S*/)?(?:sh|bash|dash|sudo)(?::[^:\n]*)*: (?:command )?not found\s*$`)

// Shell 通过 sh -c 执行一条命令行（允许管道）
func Shell(ctx context.Context, r Runner, line string) (*bytes.Buffer, error) {
	return r.RunCmd(ctx, "sh", "-c", line)
}

func classify(ctx context.Context, line string, output []byte, err error) error {
	ce := &CommandError{
		Kind:    KindFailed,
		Command: line,
		Output:  truncate(strings.TrimSpace(string(output)), maxErrOutput),
		Err:     err,
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		ce.Kind = KindTimeout
	case errors.Is(err, exec.ErrNotFound):
		ce.Kind = KindUnavailable
	case errors.As(err, &exitErr):
		// sh: 127 = command not found, 126 = not executable；
		// sudo 找不到命令时退出码为 1，只能看输出
		if code := exitErr.ExitCode(); code == 126 || code == 127 || notFoundPattern.Match(output) {
			ce.Kind = KindUnavailable
		}
	default:
		// 例如 fork/exec 失败（权限、路径不存在）
		ce.Kind = KindUnavailable
	}
	return ce
}

func commandLine(cmd string, args []string) string {
	if cmd == "sh" && len(args) == 2 && args[0] == "-c" {
		return args[1]
	}
	return strings.TrimSpace(cmd + " " + strings.Join(args, " "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
