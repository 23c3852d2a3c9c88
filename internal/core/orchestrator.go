package core

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/schollz/progressbar/v3"

	"github.com/RecoveryAshes/jsrecon/internal/collector"
	"github.com/RecoveryAshes/jsrecon/internal/crawlers"
	"github.com/RecoveryAshes/jsrecon/internal/jsurl"
	"github.com/RecoveryAshes/jsrecon/internal/models"
	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// Orchestrator 多目标采集编排器
// 职责: 共享一个浏览器进程,按批次并发采集,每个目标独占一个隐身上下文
type Orchestrator struct {
	config  *Config
	guard   *ResourceGuard
	writer  *ResultWriter
	filter  *jsurl.DomainFilter
	cookies []*proto.NetworkCookieParam
	storage map[string]string

	browser    *rod.Browser
	launcherFn *launcher.Launcher
	downloader *Downloader

	mu      sync.Mutex
	results map[string]*models.CollectionResult
}

// NewOrchestrator 创建编排器
// storage 为浏览器采集前注入的localStorage种子, 可为nil
func NewOrchestrator(config *Config, cookies []*proto.NetworkCookieParam, storage map[string]string) (*Orchestrator, error) {
	if err := config.Engine.Validate(); err != nil {
		return nil, err
	}
	filter := jsurl.NewDomainFilter(config.Engine.AllowDomains, config.Engine.DenyDomains)

	o := &Orchestrator{
		config:  config,
		guard:   NewResourceGuard(config.Resource),
		writer:  NewResultWriter(config.Output, config.Engine.Resume),
		filter:  filter,
		cookies: cookies,
		storage: storage,
		results: make(map[string]*models.CollectionResult),
	}
	if config.Engine.Download {
		downloadDir := filepath.Join(config.Output.BaseDir, config.Output.DownloadDir)
		o.downloader = NewDownloader(downloadDir, config.Engine.DedupeDownloads)
	}
	return o, nil
}

// Run 执行整次采集
// 返回运行统计与每目标结果;单目标模式下导航硬失败会中止运行
func (o *Orchestrator) Run(targets []string) (*models.RunStats, []*models.CollectionResult, error) {
	start := time.Now()
	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("没有待采集的目标")
	}

	needBrowser := o.config.Engine.Mode != models.ModeStatic
	if needBrowser {
		if err := o.startBrowser(); err != nil {
			return nil, nil, err
		}
		defer o.stopBrowser()
	}

	bar := progressbar.NewOptions(len(targets),
		progressbar.OptionSetDescription("🔍 采集目标"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	// 按批次推进: 每批开始前重新评估资源允许的宽度
	singleTarget := len(targets) == 1
	for offset := 0; offset < len(targets); {
		width := o.guard.EffectiveWidth(o.config.Engine.Threads)
		batch, end := nextBatch(targets, offset, width)
		utils.Debugf("开始批次: %d个目标 (宽度=%d)", len(batch), width)

		var wg sync.WaitGroup
		var abortErr error
		var abortMu sync.Mutex
		for _, target := range batch {
			wg.Add(1)
			go func(target string) {
				defer wg.Done()
				result := o.collectOne(target)
				if result.Failed && singleTarget {
					abortMu.Lock()
					abortErr = fmt.Errorf("目标采集失败 [%s]: %s", target, result.ErrorDetail)
					abortMu.Unlock()
				}
				// 结果只在任务完成后进入共享map
				o.mu.Lock()
				o.results[target] = result
				o.mu.Unlock()
				_ = bar.Add(1)
			}(target)
		}
		wg.Wait()
		if abortErr != nil {
			_ = bar.Finish()
			return nil, nil, abortErr
		}
		offset = end
	}
	_ = bar.Finish()

	results := make([]*models.CollectionResult, 0, len(targets))
	for _, target := range targets {
		if r, ok := o.results[target]; ok {
			results = append(results, r)
		}
	}

	stats, err := o.persist(results)
	if err != nil {
		return nil, results, err
	}
	stats.Duration = time.Since(start).Seconds()
	return stats, results, nil
}

// nextBatch 按宽度切出下一批目标
func nextBatch(targets []string, offset, width int) ([]string, int) {
	if width < 1 {
		width = 1
	}
	end := offset + width
	if end > len(targets) {
		end = len(targets)
	}
	return targets[offset:end], end
}

// collectOne 采集单个目标
// 任何失败都被隔离为空的Failed结果,不影响同批其他目标
func (o *Orchestrator) collectOne(target string) *models.CollectionResult {
	result := models.NewCollectionResult(target)
	defer func() { result.CompletedAt = time.Now() }()

	mode := o.config.Engine.Mode

	// 静态预扫描
	if mode == models.ModeStatic || mode == models.ModeAll {
		scanner := crawlers.NewStaticScanner(o.config.Headers, o.config.Engine.NavTimeout())
		assets, err := scanner.Scan(target)
		if err != nil {
			if mode == models.ModeStatic {
				utils.Errorf("静态扫描失败 [%s]: %v", target, err)
				result.Failed = true
				result.ErrorDetail = err.Error()
				return result
			}
			utils.Warnf("静态扫描失败,继续浏览器采集 [%s]: %v", target, err)
		}
		for _, a := range assets {
			o.mergeAsset(result, a)
		}
	}

	// 浏览器采集
	if mode == models.ModeBrowser || mode == models.ModeAll {
		if err := o.collectWithBrowser(target, result); err != nil {
			utils.Errorf("浏览器采集失败 [%s]: %v", target, err)
			result.Failed = true
			result.ErrorDetail = err.Error()
			result.URLs = []string{}
			result.Sources = map[string]string{}
			return result
		}
	}

	o.applyFilter(result)

	// 纯静态模式没有页面上下文, 下载直接走原始HTTP
	if mode == models.ModeStatic && o.downloader != nil {
		o.downloader.DownloadAll(nil, result.URLs, o.config.Headers)
	}

	utils.Infof("✅ 目标完成 [%s]: %d个JS资源", target, result.Count())
	return result
}

// collectWithBrowser 在独占的隐身上下文中运行一次采集
func (o *Orchestrator) collectWithBrowser(target string, result *models.CollectionResult) error {
	incognito, err := o.browser.Incognito()
	if err != nil {
		return fmt.Errorf("创建隐身上下文失败: %w", err)
	}
	defer func() {
		// 上下文销毁连带关闭其全部页面
		err := proto.TargetDisposeBrowserContext{
			BrowserContextID: incognito.BrowserContextID,
		}.Call(o.browser)
		if err != nil {
			utils.Debugf("销毁浏览上下文失败 [%s]: %v", target, err)
		}
	}()

	cfg := collector.Config{
		NavTimeout:      o.config.Engine.NavTimeout(),
		SettleDelay:     o.config.Engine.SettleDelay(),
		FinalWait:       o.config.Engine.FinalWait(),
		ScrollEnabled:   o.config.Engine.Scroll,
		ScrollStepDelay: 200 * time.Millisecond,
		InteractEnabled: o.config.Engine.Interact,
		ExtraHeaders:    o.config.Headers,
		Cookies:         o.cookies,
		LocalStorage:    o.storage,
	}

	col := collector.New(incognito, target, cfg)
	runErr := col.Run()
	if runErr == nil {
		for _, a := range col.Assets() {
			o.mergeAsset(result, a)
		}
		// 下载走页面上下文,带着页面自己的会话
		if o.downloader != nil {
			urls := o.filter.Apply(result.URLs)
			o.downloader.DownloadAll(col.Page(), urls, o.config.Headers)
		}
	}
	col.Close()
	return runErr
}

// mergeAsset 合并单个资源,保留首个来源标签
func (o *Orchestrator) mergeAsset(result *models.CollectionResult, a collector.Asset) {
	if _, exists := result.Sources[a.URL]; exists {
		return
	}
	result.Sources[a.URL] = string(a.Source)
	result.URLs = append(result.URLs, a.URL)
}

// applyFilter 应用域名过滤并将URL按字典序排列
func (o *Orchestrator) applyFilter(result *models.CollectionResult) {
	filtered := o.filter.Apply(result.URLs)
	sort.Strings(filtered)
	kept := make(map[string]bool, len(filtered))
	for _, u := range filtered {
		kept[u] = true
	}
	for u := range result.Sources {
		if !kept[u] {
			delete(result.Sources, u)
		}
	}
	result.URLs = filtered
}

// persist 写出每目标文件、合并清单与JSON报告,并汇总统计
func (o *Orchestrator) persist(results []*models.CollectionResult) (*models.RunStats, error) {
	stats := &models.RunStats{Targets: len(results)}

	union := make(map[string]bool)
	for _, r := range results {
		if r.Failed {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
		for _, u := range r.URLs {
			union[u] = true
		}
		if _, err := o.writer.WriteTarget(r); err != nil {
			return stats, err
		}
	}
	stats.TotalURLs = len(union)

	if err := o.writer.WriteCombined(results); err != nil {
		return stats, err
	}

	if o.downloader != nil {
		ds := o.downloader.Stats()
		stats.Downloaded = ds.Downloaded
		stats.DuplicateFiles = ds.Duplicates
		stats.FailedDownloads = ds.Failed
		stats.TotalBytes = ds.TotalBytes
	}
	return stats, nil
}

// startBrowser 启动共享浏览器进程
func (o *Orchestrator) startBrowser() error {
	l := launcher.New().
		Headless(o.config.Engine.Headless).
		Set("ignore-certificate-errors").
		Set("disable-gpu").
		Set("no-sandbox")
	if o.config.Engine.Proxy != "" {
		l = l.Proxy(o.config.Engine.Proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}

	o.browser = browser
	o.launcherFn = l
	utils.Infof("🚀 浏览器已启动 (headless=%v)", o.config.Engine.Headless)
	return nil
}

// stopBrowser 关闭浏览器并清理launcher临时数据
func (o *Orchestrator) stopBrowser() {
	if o.browser != nil {
		if err := o.browser.Close(); err != nil {
			utils.Warnf("关闭浏览器失败: %v", err)
		}
		o.browser = nil
	}
	if o.launcherFn != nil {
		o.launcherFn.Cleanup()
		o.launcherFn = nil
	}
	utils.Debugf("浏览器已关闭")
}
