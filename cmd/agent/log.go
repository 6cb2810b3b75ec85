package agent

import (
	"github.com/spf13/cobra"
)

// log.* 与 yaml 中 log 段一一对应
func initLogFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	l := defaultCfg.Log

	f.String("log.level", l.Level, "日志级别 [debug,info,warn,error]")
	f.String("log.format", l.Format, "控制台日志格式 [console,json]，文件日志固定为 json")
	f.String("log.path", l.Path, "日志目录，不存在时自动创建")
	f.Int("log.max_backup", l.MaxBackup, "保留的日志文件个数，>0 时优先于 log.max_age")
	f.Int("log.max_age", l.MaxAge, "日志保留天数")
	f.String("log.banner_color", l.BannerColor, "启动 banner 颜色 [red,green,yellow,blue,cyan]")
}
