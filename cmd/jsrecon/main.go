package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-rod/rod/lib/proto"
	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/jsrecon/internal/core"
	"github.com/RecoveryAshes/jsrecon/internal/models"
	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headerFlags []string // 自定义HTTP请求头

	// 采集参数
	targetURL    string
	urlFile      string
	threads      int
	navTimeout   int
	settleDelay  int
	finalWait    int
	mode         string
	headless     bool
	proxy        string
	noScroll     bool
	noInteract   bool
	resume       bool
	outputDir    string
	combinedFile string
	jsonFile     string
	allowDomains []string
	denyDomains  []string
	cookieFile   string
	rawCookies   string
	storageFile  string
	download     bool
	noDedupe     bool
)

var rootCmd = &cobra.Command{
	Use:   "jsrecon",
	Short: "浏览器驱动的JavaScript资产发现工具",
	Long: `JsRecon - 浏览器驱动的JavaScript资产发现工具

通过真实浏览器加载目标页面,从六类信号源发现JS资产:
  • 网络响应拦截
  • DOM变更监听
  • 动态script创建钩子
  • 内联module导入扫描
  • WebSocket帧扫描
  • Service Worker枚举

使用示例:
  # 单目标采集
  jsrecon -u https://example.com

  # 批量目标 + 增量合并
  jsrecon -f targets.txt --resume

  # 带会话的认证采集并下载
  jsrecon -u https://example.com --cookie-file cookies.json --download

  # 仅静态预扫描(不启动浏览器)
  jsrecon -u https://example.com --mode static

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose && logLevel == "" {
			logConfig.Level = "debug"
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// 信号处理(Ctrl+C优雅退出)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			utils.Warnf("\n收到中断信号: %v, 正在退出...", sig)
			os.Exit(130)
		}()

		if targetURL == "" && urlFile == "" {
			return cmd.Help()
		}

		appConfig, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		applyFlags(cmd, appConfig)

		if err := ValidateFlags(targetURL, urlFile, rawCookies, appConfig); err != nil {
			return err
		}

		// 命令行头部与配置文件头部合并,命令行优先
		if err := mergeHeaderFlags(appConfig); err != nil {
			return err
		}
		if len(appConfig.Headers) > 0 {
			utils.Infof("已加载 %d 个自定义HTTP头部:", len(appConfig.Headers))
			for name, value := range utils.RedactHeaders(appConfig.Headers) {
				utils.Infof("  %s: %s", name, value)
			}
		}

		// 收集目标列表
		var targets []string
		if urlFile != "" {
			targets, err = utils.ReadURLsFromFile(urlFile)
			if err != nil {
				return fmt.Errorf("读取URL文件失败: %w", err)
			}
		} else {
			normalized, err := NormalizeTarget(targetURL)
			if err != nil {
				return fmt.Errorf("无效的目标URL: %w", err)
			}
			targets = []string{normalized}
		}
		if len(targets) == 0 {
			return fmt.Errorf("没有有效的目标URL")
		}

		// Cookie加载
		var cookies []*proto.NetworkCookieParam
		if cookieFile != "" {
			cookies = core.LoadCookiesFromFile(cookieFile, targets[0])
		} else if rawCookies != "" {
			cookies, err = core.ParseRawCookies(rawCookies, targets[0])
			if err != nil {
				return fmt.Errorf("解析Cookie失败: %w", err)
			}
		}

		// localStorage种子在浏览器导航前注入页面
		var storage map[string]string
		if storageFile != "" {
			storage = core.LoadLocalStorageFromFile(storageFile)
		}

		orchestrator, err := core.NewOrchestrator(appConfig, cookies, storage)
		if err != nil {
			return fmt.Errorf("创建编排器失败: %w", err)
		}

		stats, _, err := orchestrator.Run(targets)
		if err != nil {
			return fmt.Errorf("采集失败: %w", err)
		}

		printStats(stats)
		utils.Info("✨ 采集任务完成!")
		return nil
	},
}

// applyFlags 将显式设置的命令行参数覆盖到配置上
func applyFlags(cmd *cobra.Command, config *core.Config) {
	flags := cmd.Flags()
	if flags.Changed("threads") {
		config.Engine.Threads = threads
	}
	if flags.Changed("nav-timeout") {
		config.Engine.NavTimeoutSec = navTimeout
	}
	if flags.Changed("settle-delay") {
		config.Engine.SettleDelaySec = settleDelay
	}
	if flags.Changed("final-wait") {
		config.Engine.FinalWaitSec = finalWait
	}
	if flags.Changed("mode") {
		config.Engine.Mode = models.EngineMode(mode)
	}
	if flags.Changed("headless") {
		config.Engine.Headless = headless
	}
	if flags.Changed("proxy") {
		config.Engine.Proxy = proxy
	}
	if flags.Changed("no-scroll") {
		config.Engine.Scroll = !noScroll
	}
	if flags.Changed("no-interact") {
		config.Engine.Interact = !noInteract
	}
	if flags.Changed("resume") {
		config.Engine.Resume = resume
	}
	if flags.Changed("download") {
		config.Engine.Download = download
	}
	if flags.Changed("no-dedupe") {
		config.Engine.DedupeDownloads = !noDedupe
	}
	if flags.Changed("output") {
		config.Output.BaseDir = outputDir
	}
	if flags.Changed("combined") {
		config.Output.CombinedFile = combinedFile
	}
	if flags.Changed("json") {
		config.Output.JSONFile = jsonFile
	}
	if len(allowDomains) > 0 {
		config.Engine.AllowDomains = allowDomains
	}
	if len(denyDomains) > 0 {
		config.Engine.DenyDomains = denyDomains
	}
}

// mergeHeaderFlags 解析-H参数并合并进配置,命令行优先
func mergeHeaderFlags(config *core.Config) error {
	if config.Headers == nil {
		config.Headers = make(map[string]string)
	}
	for _, h := range headerFlags {
		name, value, err := utils.ParseHeaderFlag(h)
		if err != nil {
			return fmt.Errorf("无效的头部参数 %q: %w", h, err)
		}
		if err := utils.ValidateHeader(name, value); err != nil {
			return fmt.Errorf("无效的头部参数 %q: %w", h, err)
		}
		config.Headers[name] = value
	}
	return nil
}

// printStats 打印运行统计摘要
func printStats(stats *models.RunStats) {
	fmt.Println("\n==================================================")
	fmt.Println("📊 采集统计")
	fmt.Println("==================================================")
	fmt.Printf("✅ 目标总数: %d\n", stats.Targets)
	fmt.Printf("✅ 成功目标: %d\n", stats.Succeeded)
	fmt.Printf("❌ 失败目标: %d\n", stats.Failed)
	fmt.Printf("✅ JS资源总数(去重): %d\n", stats.TotalURLs)
	if stats.Downloaded > 0 || stats.FailedDownloads > 0 {
		fmt.Printf("📥 下载成功: %d\n", stats.Downloaded)
		fmt.Printf("📥 内容重复跳过: %d\n", stats.DuplicateFiles)
		fmt.Printf("❌ 下载失败: %d\n", stats.FailedDownloads)
		fmt.Printf("📦 下载总大小: %.2f MB\n", float64(stats.TotalBytes)/(1024*1024))
	}
	fmt.Printf("⏱️  总耗时: %.2f秒\n", stats.Duration)
	fmt.Println("==================================================")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("JsRecon %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headerFlags, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")

	// 采集参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "目标URL (必需,除非使用 --url-file)")
	rootCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径,'-'表示stdin")
	rootCmd.Flags().IntVar(&threads, "threads", 2, "批次宽度(每批并行目标数,1-50)")
	rootCmd.Flags().IntVar(&navTimeout, "nav-timeout", 30, "导航超时(秒)")
	rootCmd.Flags().IntVar(&settleDelay, "settle-delay", 2, "提取步骤前等待(秒)")
	rootCmd.Flags().IntVar(&finalWait, "final-wait", 3, "收尾等待(秒)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "browser", "发现模式 (browser|static|all)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringVar(&proxy, "proxy", "", "浏览器代理,如 http://127.0.0.1:8080")
	rootCmd.Flags().BoolVar(&noScroll, "no-scroll", false, "禁用滚动触发懒加载")
	rootCmd.Flags().BoolVar(&noInteract, "no-interact", false, "禁用hover交互触发")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "增量合并已有输出")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "output", "输出目录")
	rootCmd.Flags().StringVar(&combinedFile, "combined", "", "合并清单文件名(写入输出目录)")
	rootCmd.Flags().StringVar(&jsonFile, "json", "", "JSON报告文件名(写入输出目录)")
	rootCmd.Flags().StringSliceVar(&allowDomains, "filter-domain", []string{}, "域名allow模式(glob),可多次指定")
	rootCmd.Flags().StringSliceVar(&denyDomains, "exclude-domain", []string{}, "域名deny模式(glob),可多次指定")
	rootCmd.Flags().StringVar(&cookieFile, "cookie-file", "", "Cookie JSON文件路径")
	rootCmd.Flags().StringVar(&rawCookies, "cookies", "", "原始Cookie字符串 'k=v; k2=v2' (仅单目标)")
	rootCmd.Flags().StringVar(&storageFile, "local-storage-file", "", "localStorage种子JSON文件(扁平键值对象)")
	rootCmd.Flags().BoolVar(&download, "download", false, "下载发现的JS文件")
	rootCmd.Flags().BoolVar(&noDedupe, "no-dedupe", false, "禁用下载内容哈希去重")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
