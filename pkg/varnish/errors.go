package varnish

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrorKind 外部命令失败的分类
type ErrorKind int

const (
	// KindFailed 命令执行了但以非零状态退出
	KindFailed ErrorKind = iota
	// KindUnavailable 命令不存在或不可执行
	KindUnavailable
	// KindTimeout 超过 command_timeout
	KindTimeout
	// KindMalformed 输出格式不符合预期
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindMalformed:
		return "malformed"
	}
	return "failed"
}

var (
	ErrCommandUnavailable = errors.New("command unavailable")
	ErrCommandTimeout     = errors.New("command timed out")
	ErrMalformedOutput    = errors.New("malformed command output")
)

// CommandError 外部命令错误，Output 为合并后的 stdout/stderr（截断）
type CommandError struct {
	Kind    ErrorKind
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q %s", e.Command, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += " (output: " + e.Output + ")"
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Is 让 errors.Is(err, ErrCommandUnavailable) 之类的判断按分类生效
func (e *CommandError) Is(target error) bool {
	switch target {
	case ErrCommandUnavailable:
		return e.Kind == KindUnavailable
	case ErrCommandTimeout:
		return e.Kind == KindTimeout
	case ErrMalformedOutput:
		return e.Kind == KindMalformed
	}
	return false
}

// KindOf 取错误分类，非 CommandError 一律视为 KindFailed
func KindOf(err error) ErrorKind {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindFailed
}

// isNoMatch grep 没有匹配行时退出码为 1 且无输出，不算失败
func isNoMatch(err error) bool {
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Kind != KindFailed || ce.Output != "" {
		return false
	}
	var exitErr *exec.ExitError
	return errors.As(ce.Err, &exitErr) && exitErr.ExitCode() == 1
}
