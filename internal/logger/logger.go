package logger

import (
	"io"
	"log/slog"
	"os"
)

// New 构建文本格式的 slog.Logger，debug 为 true 时输出 Debug 级别
func New(debug bool) *slog.Logger {
	return NewWithWriter(os.Stdout, debug)
}

func NewWithWriter(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Init 同时设置为默认 logger，供 cmd 使用
func Init(debug bool) *slog.Logger {
	l := New(debug)
	slog.SetDefault(l)
	return l
}

// Discard 丢弃所有输出，测试或未注入 logger 时使用
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
