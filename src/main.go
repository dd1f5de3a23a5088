package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron"
	"go.uber.org/zap"

	"RentalDashboard/src/config"
	"RentalDashboard/src/datapush"
	"RentalDashboard/src/dataset"
	"RentalDashboard/src/datasource/email"
	"RentalDashboard/src/datasource/file"
	"RentalDashboard/src/processor"
	"RentalDashboard/src/storage"
	"RentalDashboard/src/web"
)

const (
	jsonFolder   = "./config"
	jsonFile     = "config.json"
	dataJsonFile = "dataconfig.json"

	shutdownTimeout = 10 * time.Second
	pushTimeout     = 30 * time.Second
)

func main() {
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("配置加载失败: ", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(storage.LogOptions{
		Filename:   cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer logger.Close()

	a, err := newApp(cfg, dcfg, logger)
	if err != nil {
		logger.Fatal("初始化失败", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx); err != nil {
		logger.Fatal("服务异常退出", zap.Error(err))
	}
	logger.Info("服务已停止")
}

// app 持有各组件，负责启动顺序和后台任务
type app struct {
	cfg    *config.Config
	dcfg   *config.DataConfig
	span   dataset.Span
	logger *storage.Logger

	store    *dataset.Store
	reloader *file.Reloader
	server   *http.Server
	cron     *cron.Cron

	mailClient  email.MailService
	attachments *email.AttachmentHandler
	robot       *datapush.Robot
}

func newApp(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) (*app, error) {
	span, err := cfg.Span()
	if err != nil {
		return nil, err
	}

	store := dataset.NewStore()
	loader := file.NewLoader(dcfg, cfg.Data.SheetName)
	reloader := file.NewReloader(loader, store, logger, cfg.HourlyPath(), cfg.DailyPath())

	gin.SetMode(cfg.Server.Mode)
	srv, err := web.NewServer(cfg, dcfg, store, reloader, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		dcfg:     dcfg,
		span:     span,
		logger:   logger,
		store:    store,
		reloader: reloader,
		server:   &http.Server{Addr: cfg.Server.Addr, Handler: srv.Router()},
	}
	if err := a.schedule(); err != nil {
		return nil, err
	}
	return a, nil
}

// schedule 按配置注册定时任务；全部关闭时 cron 为空跑
func (a *app) schedule() error {
	a.cron = cron.New()

	if a.cfg.Email.Enabled {
		a.mailClient = email.NewEmailClient(a.cfg.Email.Server, a.cfg.Email.Username, a.cfg.Email.Password, a.logger)
		validHourly, validDaily := a.reloader.Validators()
		a.attachments = email.NewAttachmentHandler(a.cfg.Email.TargetSubject, a.logger,
			email.Target{Prefix: baseName(a.cfg.Data.HourlyFile), Path: a.cfg.HourlyPath(), Validate: validHourly},
			email.Target{Prefix: baseName(a.cfg.Data.DailyFile), Path: a.cfg.DailyPath(), Validate: validDaily},
		)

		// 例如 "@every 5m0s"
		spec := fmt.Sprintf("@every %s", a.cfg.Email.CheckInterval)
		if err := a.cron.AddFunc(spec, a.checkMail); err != nil {
			return fmt.Errorf("创建邮件检查任务失败: %w", err)
		}
	}

	if a.cfg.Push.Enabled {
		a.robot = datapush.NewRobot(a.cfg.Push.Webhook, a.cfg.Push.Secret)
		if err := a.cron.AddFunc(a.cfg.Push.Schedule, a.pushSummary); err != nil {
			return fmt.Errorf("创建推送任务失败: %w", err)
		}
	}

	if a.cfg.SendEmail.Enabled && a.cfg.SendEmail.Schedule != "" {
		if err := a.cron.AddFunc(a.cfg.SendEmail.Schedule, a.mailReport); err != nil {
			return fmt.Errorf("创建报表邮件任务失败: %w", err)
		}
	}
	return nil
}

// run 首次加载失败直接返回；之后阻塞到 ctx 结束
func (a *app) run(ctx context.Context) error {
	if err := a.reloader.Reload("startup"); err != nil {
		return err
	}

	if pid := a.cfg.Server.PidFile; pid != "" {
		if err := writePidFile(pid); err != nil {
			a.logger.Warning("写入 pid 文件失败", zap.Error(err))
		} else {
			defer os.Remove(pid)
		}
	}

	if a.cfg.Data.Watch {
		monitor, err := file.NewFileMonitor(a.cfg.Data.Dir, a.cfg.Data.HourlyFile, a.cfg.Data.DailyFile)
		if err != nil {
			return fmt.Errorf("监听数据目录失败: %w", err)
		}
		go func() {
			err := monitor.Watch(ctx, func(string) {
				path, at := monitor.LastChange()
				a.logger.Info("检测到数据文件变化", zap.String("file", path), zap.Time("modified", at))
				a.reloader.Reload("watch")
			})
			if err != nil {
				a.logger.Error("文件监听中断", zap.Error(err))
			}
		}()
	}

	a.cron.Start()
	defer a.cron.Stop()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP 服务已启动", zap.String("addr", a.cfg.Server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-hup:
			// 日志文件可能已被外部轮转
			if err := a.logger.Reopen(); err != nil {
				a.logger.Error("重新打开日志失败", zap.Error(err))
			}
			a.reloader.Reload("signal")

		case err := <-serveErr:
			return err

		case <-ctx.Done():
			a.logger.Info("收到退出信号，正在关闭...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		}
	}
}

// checkMail 取最新一封数据邮件，附件落盘后重新加载
func (a *app) checkMail() {
	start := time.Now()
	latest, err := email.CheckAndProcessEmails(a.mailClient, a.cfg.Email.TargetSubject, a.logger)
	if err != nil {
		a.logger.Error("检查处理邮件失败", zap.Error(err))
		return
	}
	if latest == nil {
		return
	}

	saved, err := a.attachments.Handle(latest)
	if err != nil {
		a.logger.Error("处理邮件失败", zap.Uint32("uid", latest.UID), zap.Error(err))
	}
	// 开启目录监听时由 watcher 负责重新加载
	if len(saved) > 0 && !a.cfg.Data.Watch {
		a.reloader.Reload("email")
	}
	a.logger.Info("邮件处理完成", zap.Strings("saved", saved), zap.Duration("elapsed", time.Since(start)))
}

// report 全量数据、全部图表
func (a *app) report() (processor.Report, error) {
	p := processor.NewDataProcessor(a.store.Get(), processor.Options{
		FilterHourly: a.cfg.Dashboard.FilterHourly,
		Span:         a.span,
	})
	return p.Build(dataset.FilterSpec{}, dataset.Panels)
}

func (a *app) pushSummary() {
	rep, err := a.report()
	if err != nil {
		a.logger.Error("生成推送内容失败", zap.Error(err))
		return
	}
	title, text := datapush.Summary(rep, a.dcfg)

	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := a.robot.SendMarkdown(ctx, title, text); err != nil {
		a.logger.Error("钉钉推送失败", zap.Error(err))
		return
	}
	a.logger.Info("钉钉推送成功", zap.String("title", title))
}

func (a *app) mailReport() {
	rep, err := a.report()
	if err != nil {
		a.logger.Error("生成报表失败", zap.Error(err))
		return
	}
	content, err := rep.Workbook()
	if err != nil {
		a.logger.Error("生成工作簿失败", zap.Error(err))
		return
	}
	_, text := datapush.Summary(rep, a.dcfg)

	err = email.SendReport(a.cfg.SendEmail, email.Report{
		Body:     text,
		Filename: rep.Filename(),
		Content:  content,
	})
	if err != nil {
		a.logger.Error("报表邮件发送失败", zap.Error(err))
		return
	}
	a.logger.Info("报表邮件已发送", zap.Strings("to", a.cfg.SendEmail.To))
}

// baseName hour.csv -> hour，附件按此前缀匹配
func baseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func writePidFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := file.EnsureDir(dir); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}
