package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"RentalDashboard/src/dataset"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataFileConfig  `mapstructure:"data"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
	Email     EmailConfig     `mapstructure:"email"`
	SendEmail SendEmailConfig `mapstructure:"send_email"`
	Push      PushConfig      `mapstructure:"push"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr" validate:"required"`
	Mode    string `mapstructure:"mode" validate:"oneof=debug release test"`
	PidFile string `mapstructure:"pid_file"`
}

// DataFileConfig 输入文件位置
type DataFileConfig struct {
	Dir        string `mapstructure:"dir" validate:"required"`
	HourlyFile string `mapstructure:"hourly_file" validate:"required"`
	DailyFile  string `mapstructure:"daily_file" validate:"required"`
	SheetName  string `mapstructure:"sheet_name"` // xlsx 输入的工作表，为空时取第一个
	SpanStart  string `mapstructure:"span_start" validate:"required,datetime=2006-01-02"`
	SpanEnd    string `mapstructure:"span_end" validate:"required,datetime=2006-01-02"`
	Watch      bool   `mapstructure:"watch"` // 监听数据目录，文件变化时自动重新加载
}

type DashboardConfig struct {
	// 时段图是否也应用日期/季节过滤
	FilterHourly bool `mapstructure:"filter_hourly"`
}

type LogConfig struct {
	File       string `mapstructure:"file" validate:"required"`
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`
}

// EmailConfig 从邮箱拉取数据附件
type EmailConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Server        string        `mapstructure:"server" validate:"required_if=Enabled true"`         // 邮件服务器地址
	Username      string        `mapstructure:"username" validate:"required_if=Enabled true"`       // 邮箱用户名
	Password      string        `mapstructure:"password"`                                           // 邮箱密码
	TargetSubject string        `mapstructure:"target_subject" validate:"required_if=Enabled true"` // 需要匹配的邮件主题
	CheckInterval time.Duration `mapstructure:"check_interval" validate:"min=0"`                    // 检查新邮件的间隔时间
}

// SendEmailConfig 导出的工作簿通过 SMTP 发送
type SendEmailConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Server   string   `mapstructure:"server" validate:"required_if=Enabled true"` // host:port
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from" validate:"required_if=Enabled true"`
	To       []string `mapstructure:"to" validate:"required_if=Enabled true,dive,email"`
	Subject  string   `mapstructure:"subject"`
	Schedule string   `mapstructure:"schedule"` // cron 表达式，为空时不定时发送
}

// PushConfig 钉钉机器人推送
type PushConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Webhook  string `mapstructure:"webhook" validate:"required_if=Enabled true"`
	Secret   string `mapstructure:"secret"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// DataConfig 列名映射与展示文本
type DataConfig struct {
	// 规范列名 -> 源文件中可能出现的列名
	Columns       map[string][]string `mapstructure:"columns"`
	DateLayouts   []string            `mapstructure:"date_layouts" validate:"min=1"`
	SeasonLabels  map[string]string   `mapstructure:"season_labels"`
	WeatherLabels map[string]string   `mapstructure:"weather_labels"`
	Locale        string              `mapstructure:"locale" validate:"required"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex

	validate = validator.New()
)

// LoadConfig 只加载一次，后续调用返回同一份配置
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configFile, cfgChan, errChan)
	go parseDataConfig(dataConfigFile, dcfgChan, errChan)

	return waitForResults(cfgChan, dcfgChan, errChan)
}

func parseConfig(path string, resultChan chan<- *Config, errChan chan<- error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	// RENTAL_SERVER_ADDR 覆盖 server.addr
	v.SetEnvPrefix("RENTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		errChan <- fmt.Errorf("读取配置文件失败 %s: %w", path, err)
		return
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		errChan <- fmt.Errorf("Config校验失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parseDataConfig(path string, resultChan chan<- *DataConfig, errChan chan<- error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDataDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		errChan <- fmt.Errorf("读取数据配置文件失败 %s: %w", path, err)
		return
	}
	var dcfg DataConfig
	if err := v.Unmarshal(&dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	if err := dcfg.Validate(); err != nil {
		errChan <- fmt.Errorf("DataConfig校验失败: %w", err)
		return
	}
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg  *Config
		dcfg *DataConfig
		errs []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, nil, combineErrors(errs)
	}
	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}
	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.pid_file", "rental-dashboard.pid")

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.hourly_file", "hour.csv")
	v.SetDefault("data.daily_file", "day.csv")
	v.SetDefault("data.span_start", "2011-01-01")
	v.SetDefault("data.span_end", "2012-12-31")
	v.SetDefault("data.watch", true)

	v.SetDefault("dashboard.filter_hourly", false)

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.check_interval", "5m")
	v.SetDefault("send_email.enabled", false)
	v.SetDefault("send_email.subject", "Bike rental dashboard")
	v.SetDefault("push.enabled", false)
	v.SetDefault("push.schedule", "0 0 9 * * *")
}

func setDataDefaults(v *viper.Viper) {
	v.SetDefault("columns", map[string]interface{}{
		dataset.ColDate:       []string{"dteday", "date"},
		dataset.ColHour:       []string{"hr", "hour"},
		dataset.ColSeason:     []string{"season"},
		dataset.ColMonth:      []string{"mnth", "month"},
		dataset.ColWeather:    []string{"weathersit", "weather"},
		dataset.ColCasual:     []string{"casual"},
		dataset.ColRegistered: []string{"registered"},
		dataset.ColCount:      []string{"cnt", "count"},
		dataset.ColID:         []string{"instant", "id"},
	})
	v.SetDefault("date_layouts", []string{"2006-01-02", "2006/01/02", "2006-01-02 15:04:05", "1/2/2006"})
	v.SetDefault("season_labels", map[string]interface{}{
		"1": "Spring", "2": "Summer", "3": "Fall", "4": "Winter",
	})
	v.SetDefault("weather_labels", map[string]interface{}{
		"1": "Cerah", "2": "Berawan", "3": "Hujan Ringan", "4": "Hujan Lebat",
	})
	v.SetDefault("locale", "en")
}

// Validate 校验所有字段，多个问题合并为一个错误
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, validationErrors(err)...)
	}
	if len(errs) == 0 {
		if _, err := c.Span(); err != nil {
			errs = append(errs, err)
		}
	}
	return combineErrors(errs)
}

// Span 配置的数据日期范围
func (c *Config) Span() (dataset.Span, error) {
	start, err := time.Parse(dataset.DateLayout, c.Data.SpanStart)
	if err != nil {
		return dataset.Span{}, fmt.Errorf("data.span_start: %w", err)
	}
	end, err := time.Parse(dataset.DateLayout, c.Data.SpanEnd)
	if err != nil {
		return dataset.Span{}, fmt.Errorf("data.span_end: %w", err)
	}
	if end.Before(start) {
		return dataset.Span{}, fmt.Errorf("data.span_end %s is before data.span_start %s", c.Data.SpanEnd, c.Data.SpanStart)
	}
	return dataset.Span{Start: start, End: end}, nil
}

func (c *Config) HourlyPath() string { return filepath.Join(c.Data.Dir, c.Data.HourlyFile) }

func (c *Config) DailyPath() string { return filepath.Join(c.Data.Dir, c.Data.DailyFile) }

func (dc *DataConfig) Validate() error {
	var errs []error
	if err := validate.Struct(dc); err != nil {
		errs = append(errs, validationErrors(err)...)
	}
	for _, col := range []string{
		dataset.ColDate, dataset.ColHour, dataset.ColSeason, dataset.ColMonth, dataset.ColWeather,
		dataset.ColCasual, dataset.ColRegistered, dataset.ColCount, dataset.ColID,
	} {
		if len(dc.Columns[col]) == 0 {
			errs = append(errs, fmt.Errorf("columns.%s: no source column names", col))
		}
	}
	return combineErrors(errs)
}

func validationErrors(err error) []error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return out
}

// GetColumn 把源文件列名映射为规范列名，大小写不敏感
func (dc *DataConfig) GetColumn(source string) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	source = strings.ToLower(strings.TrimSpace(source))
	for canonical, aliases := range dc.Columns {
		for _, alias := range aliases {
			if strings.ToLower(alias) == source {
				return canonical, true
			}
		}
	}
	return "", false
}

func (dc *DataConfig) GetAliases(canonical string) []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), dc.Columns[canonical]...)
}

func (dc *DataConfig) SetAliases(canonical string, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()
	if dc.Columns == nil {
		dc.Columns = make(map[string][]string)
	}
	dc.Columns[canonical] = aliases
}

// SeasonLabel 图例文本，未配置时使用枚举名
func (dc *DataConfig) SeasonLabel(s dataset.Season) string {
	mu.RLock()
	defer mu.RUnlock()
	if label, ok := dc.SeasonLabels[strconv.Itoa(int(s))]; ok {
		return label
	}
	return s.String()
}

func (dc *DataConfig) WeatherLabel(w dataset.Weather) string {
	mu.RLock()
	defer mu.RUnlock()
	if label, ok := dc.WeatherLabels[strconv.Itoa(int(w))]; ok {
		return label
	}
	return w.String()
}
