package storage

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误，写入后进程退出
)

// LogOptions 日志文件与轮转参数
type LogOptions struct {
	Filename   string // 为空时输出到 stderr
	Level      string // debug/info/warn/error
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger 日志记录器：zap 写文件(lumberjack 轮转)，同时把格式化后的条目推送给订阅者
type Logger struct {
	zl          *zap.Logger
	level       zap.AtomicLevel
	rotate      *lumberjack.Logger // 输出到 stderr 时为 nil
	mu          sync.Mutex         // 保护订阅者列表
	subscribers []chan string
	closed      bool
}

// NewLogger 创建新的日志记录器
func NewLogger(opts LogOptions) (*Logger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("日志级别无效 %q: %w", opts.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	l := &Logger{level: level}
	var sink zapcore.WriteSyncer
	if opts.Filename == "" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		l.rotate = &lumberjack.Logger{
			Filename:   opts.Filename,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			LocalTime:  true,
		}
		sink = zapcore.AddSync(l.rotate)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	l.zl = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
	return l, nil
}

// Close 刷新缓冲并关闭文件，所有订阅通道随之关闭
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	for _, ch := range l.subscribers {
		close(ch)
	}
	l.subscribers = nil

	_ = l.zl.Sync()
	if l.rotate != nil {
		return l.rotate.Close()
	}
	return nil
}

// Reopen 立即轮转日志文件(SIGHUP 时调用)
func (l *Logger) Reopen() error {
	if l.rotate == nil {
		return nil
	}
	return l.rotate.Rotate()
}

// Log 记录日志，级别未开启时不写文件也不通知订阅者
func (l *Logger) Log(level LogLevel, message string, fields ...zap.Field) {
	zl := level.zap()
	if !l.level.Enabled(zl) {
		return
	}

	l.broadcast(level, message, fields)
	if ce := l.zl.Check(zl, message); ce != nil {
		ce.Write(fields...)
	}
}

func (l *Logger) broadcast(level LogLevel, message string, fields []zap.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || len(l.subscribers) == 0 {
		return
	}

	// 格式化日志条目: [时间] 级别: 消息 k=v
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", time.Now().Format("2006-01-02 15:04:05"), level, message)
	if len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range fields {
			f.AddTo(enc)
		}
		for k, v := range enc.Fields {
			fmt.Fprintf(&b, " %s=%v", k, v)
		}
	}
	b.WriteString("\n")
	entry := b.String()

	for _, ch := range l.subscribers {
		select {
		case ch <- entry: // 尝试发送日志条目
		default: // 如果通道已满则跳过
		}
	}
}

// Subscribe 订阅日志消息，返回带缓冲(100)的只读通道
func (l *Logger) Subscribe() <-chan string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan string, 100)
	if l.closed {
		close(ch)
		return ch
	}
	l.subscribers = append(l.subscribers, ch)
	return ch
}

// Unsubscribe 取消订阅并关闭通道
func (l *Logger) Unsubscribe(sub <-chan string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, ch := range l.subscribers {
		if ch == sub {
			close(ch)
			l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
			return
		}
	}
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zap() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string, fields ...zap.Field)   { l.Log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)    { l.Log(INFO, msg, fields...) }
func (l *Logger) Warning(msg string, fields ...zap.Field) { l.Log(WARNING, msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field)   { l.Log(ERROR, msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field)   { l.Log(FATAL, msg, fields...) }
