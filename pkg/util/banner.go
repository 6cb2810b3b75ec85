package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/common-nighthawk/go-figure"
)

// Color 终端 ANSI 颜色
type Color string

const (
	ColorNone   Color = ""
	ColorRed    Color = "\x1b[1;31m"
	ColorGreen  Color = "\x1b[1;32m"
	ColorYellow Color = "\x1b[1;33m"
	ColorBlue   Color = "\x1b[1;34m"
	ColorCyan   Color = "\x1b[1;36m"

	colorReset = "\x1b[0m"
)

var colorsByName = map[string]Color{
	"red":    ColorRed,
	"green":  ColorGreen,
	"yellow": ColorYellow,
	"blue":   ColorBlue,
	"cyan":   ColorCyan,
}

// ParseColor 按名称取颜色（大小写不敏感），未知名称返回 ColorNone
func ParseColor(name string) Color {
	return colorsByName[strings.ToLower(strings.TrimSpace(name))]
}

func (c Color) wrap(s string) string {
	if c == ColorNone {
		return s
	}
	return string(c) + s + colorReset
}

// PrintBanner 打印启动 banner，末行附带版本号。
// 设置了 NO_COLOR 环境变量时不输出颜色码。
func PrintBanner(w io.Writer, text, version string, color Color) {
	if os.Getenv("NO_COLOR") != "" {
		color = ColorNone
	}
	fig := figure.NewFigure(text, "", true)
	for _, line := range fig.Slicify() {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fmt.Fprintln(w, color.wrap(line))
	}
	if version != "" {
		fmt.Fprintln(w, color.wrap("  version "+version))
	}
}
