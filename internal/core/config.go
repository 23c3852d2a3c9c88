package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/RecoveryAshes/jsrecon/internal/models"
	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// Config 应用程序配置
type Config struct {
	Engine   models.EngineConfig `mapstructure:"engine"`
	Logging  LoggingConfig       `mapstructure:"logging"`
	Output   OutputConfig        `mapstructure:"output"`
	Headers  map[string]string   `mapstructure:"headers"`
	Resource ResourceConfig      `mapstructure:"resource"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir      string `mapstructure:"base_dir"`      // 输出根目录
	PerTarget    bool   `mapstructure:"per_target"`    // 写每目标文件
	CombinedFile string `mapstructure:"combined_file"` // 合并输出文件名(空则不写)
	JSONFile     string `mapstructure:"json_file"`     // 结构化JSON输出文件名(空则不写)
	DownloadDir  string `mapstructure:"download_dir"`  // 下载文件子目录
}

// ResourceConfig 资源保护配置
type ResourceConfig struct {
	SafetyReserveMemoryMB int `mapstructure:"safety_reserve_memory"` // 安全保留内存(MB)
	ContextMemoryMB       int `mapstructure:"context_memory"`        // 单浏览上下文估算内存(MB)
	CPULoadThreshold      int `mapstructure:"cpu_load_threshold"`    // CPU负载阈值(%)
}

// LoadConfig 加载配置文件
// 未指定路径时搜索./configs、当前目录和~/.jsrecon;文件不存在则使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".jsrecon"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在,使用默认值
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 配置文件中的自定义头部先行验证
	for name, value := range config.Headers {
		if err := utils.ValidateHeader(name, value); err != nil {
			return nil, fmt.Errorf("配置文件头部无效: %w", err)
		}
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.threads", 2)
	v.SetDefault("engine.nav_timeout", 30)
	v.SetDefault("engine.settle_delay", 2)
	v.SetDefault("engine.final_wait", 3)
	v.SetDefault("engine.headless", true)
	v.SetDefault("engine.scroll", true)
	v.SetDefault("engine.interact", true)
	v.SetDefault("engine.mode", "browser")
	v.SetDefault("engine.resume", false)
	v.SetDefault("engine.download", false)
	v.SetDefault("engine.dedupe_downloads", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("output.base_dir", "output")
	v.SetDefault("output.per_target", true)
	v.SetDefault("output.combined_file", "")
	v.SetDefault("output.json_file", "")
	v.SetDefault("output.download_dir", "downloads")

	v.SetDefault("resource.safety_reserve_memory", 1024)
	v.SetDefault("resource.context_memory", 150)
	v.SetDefault("resource.cpu_load_threshold", 85)
}
