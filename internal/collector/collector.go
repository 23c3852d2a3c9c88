package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// Config 单目标采集配置
type Config struct {
	NavTimeout      time.Duration     // 导航超时
	SettleDelay     time.Duration     // 每个提取步骤前的固定等待
	FinalWait       time.Duration     // 收尾前等待迟到的异步加载
	ScrollEnabled   bool              // 是否滚动触发懒加载
	ScrollStepDelay time.Duration     // 滚动步进间延迟
	InteractEnabled bool              // 是否执行交互触发(hover)
	ExtraHeaders    map[string]string // 附加HTTP头部
	Cookies         []*proto.NetworkCookieParam
	LocalStorage    map[string]string // 导航前注入的localStorage种子
}

// DefaultConfig 默认采集配置
func DefaultConfig() Config {
	return Config{
		NavTimeout:      30 * time.Second,
		SettleDelay:     2 * time.Second,
		FinalWait:       3 * time.Second,
		ScrollEnabled:   true,
		ScrollStepDelay: 300 * time.Millisecond,
		InteractEnabled: true,
	}
}

// Collector 单目标信号采集器
// 职责: 在一个独立浏览上下文中聚合六个发现来源的信号,产出去重URL集合
// 生命周期: idle -> initializing -> intercepting -> navigating -> extracting
//          -> interacting -> finalizing -> done
// done总是可达: 导航超时降级为部分结果继续,其他导航错误向上传播
type Collector struct {
	browser *rod.Browser // 该目标独占的incognito浏览上下文
	page    *rod.Page
	target  string
	config  Config

	sink  *Sink
	state *StateMachine
}

// New 创建采集器
// browser应为目标独占的incognito上下文,cookie/storage与其他任务隔离
func New(browser *rod.Browser, target string, config Config) *Collector {
	return &Collector{
		browser: browser,
		target:  target,
		config:  config,
		sink:    NewSink(target),
		state:   NewStateMachine(),
	}
}

// State 当前生命周期状态
func (c *Collector) State() State {
	return c.state.Current()
}

// Results 返回当前已累积的规范化URL(字典序)
// 运行中途调用返回已有快照
func (c *Collector) Results() []string {
	return c.sink.URLs()
}

// Assets 返回URL及首见来源标签
func (c *Collector) Assets() []Asset {
	return c.sink.Assets()
}

// Page 返回采集用页面,供下载阶段复用带认证的上下文
// 采集尚未初始化时返回nil
func (c *Collector) Page() *rod.Page {
	return c.page
}

// Run 执行完整采集流程
// 返回错误仅限初始化失败和非超时导航失败;监听器内部错误一律吞掉
func (c *Collector) Run() error {
	defer c.state.Finish()

	// initializing: 创建页面,注入instrumentation,配置头部与cookie
	if err := c.state.Advance(StateInitializing); err != nil {
		return err
	}
	if err := c.initPage(); err != nil {
		return fmt.Errorf("初始化页面失败: %w", err)
	}

	// intercepting: 武装网络响应与WebSocket帧监听
	if err := c.state.Advance(StateIntercepting); err != nil {
		return err
	}
	c.armListeners()

	// navigating: 带超时导航,超时降级为部分结果
	if err := c.state.Advance(StateNavigating); err != nil {
		return err
	}
	if err := c.navigate(); err != nil {
		if isTimeoutErr(err) {
			utils.Warnf("导航超时,以部分结果继续 [%s]: %v", c.target, err)
		} else {
			return fmt.Errorf("导航失败: %w", err)
		}
	}

	// extracting: 静态DOM提取
	if err := c.state.Advance(StateExtracting); err != nil {
		return err
	}
	time.Sleep(c.config.SettleDelay)
	c.extractStaticScripts()

	// interacting: 滚动 + hover触发懒加载
	// 必须先于inline-module和service-worker扫描,后者只能看到此刻已存在的内容
	if err := c.state.Advance(StateInteracting); err != nil {
		return err
	}
	if c.config.ScrollEnabled {
		scrollPage(c.page, c.config.ScrollStepDelay)
	}
	if c.config.InteractEnabled {
		NewInteractionTrigger(c.page).Run()
	}

	// finalizing: 二次等待后执行文本扫描与service worker枚举
	if err := c.state.Advance(StateFinalizing); err != nil {
		return err
	}
	time.Sleep(c.config.SettleDelay)
	c.scanInlineModules()
	c.discoverServiceWorkers()

	// 等待迟到的异步加载
	time.Sleep(c.config.FinalWait)

	utils.Debugf("采集完成 [%s]: %d个资源", c.target, c.sink.Count())
	return nil
}

// initPage 创建页面并完成导航前的全部注入
func (c *Collector) initPage() error {
	page, err := c.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("创建页面失败: %w", err)
	}
	c.page = page

	// 宿主回调: instrumentation载荷通过它上报动态创建/DOM突变的script src
	_, err = page.Expose(reportBindingName, func(g gson.JSON) (interface{}, error) {
		defer func() {
			// 回调内部错误不中止采集
			_ = recover()
		}()
		rawURL := g.Get("url").Str()
		kind := g.Get("kind").Str()

		src := SourceDynamicCreation
		if kind == string(SourceDOMMutation) {
			src = SourceDOMMutation
		}
		c.sink.Offer(rawURL, "", src, true)
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("注册宿主回调失败: %w", err)
	}

	// instrumentation载荷在每次文档创建时注入,作用域限于本上下文
	if _, err := page.EvalOnNewDocument(instrumentPayload); err != nil {
		return fmt.Errorf("注入instrumentation失败: %w", err)
	}

	// localStorage种子
	if seed, err := localStorageSeedPayload(c.config.LocalStorage); err != nil {
		utils.Warnf("生成localStorage种子脚本失败: %v", err)
	} else if seed != "" {
		if _, err := page.EvalOnNewDocument(seed); err != nil {
			utils.Warnf("注入localStorage种子失败: %v", err)
		}
	}

	// 附加头部
	if len(c.config.ExtraHeaders) > 0 {
		var kv []string
		for name, value := range c.config.ExtraHeaders {
			kv = append(kv, name, value)
		}
		if _, err := page.SetExtraHeaders(kv); err != nil {
			utils.Warnf("设置附加头部失败: %v", err)
		}
	}

	// cookie注入
	if len(c.config.Cookies) > 0 {
		if err := page.SetCookies(c.config.Cookies); err != nil {
			utils.Warnf("注入cookie失败: %v", err)
		}
	}

	return nil
}

// armListeners 武装网络响应与WebSocket帧事件监听
// 监听器内的任何错误(响应体已释放等)只影响可观测性,不影响正确性,一律忽略
func (c *Collector) armListeners() {
	go c.page.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			defer func() { _ = recover() }()
			resp := e.Response
			if resp == nil || resp.Status >= 400 {
				return
			}
			c.sink.Offer(resp.URL, responseContentType(resp), SourceNetwork, true)
		},
		func(e *proto.NetworkWebSocketFrameReceived) {
			defer func() { _ = recover() }()
			if e.Response == nil {
				return
			}
			for _, raw := range ScanFramePayload(e.Response.PayloadData) {
				c.sink.Offer(raw, "", SourceWebSocket, true)
			}
		},
	)()
}

// responseContentType 从响应中取content-type,优先MIME类型,回退到原始头部
func responseContentType(resp *proto.NetworkResponse) string {
	if resp.MIMEType != "" {
		return resp.MIMEType
	}
	for name, value := range resp.Headers {
		if strings.EqualFold(name, "content-type") {
			return value.Str()
		}
	}
	return ""
}

// navigate 导航到目标并等待页面空闲,整体受NavTimeout约束
func (c *Collector) navigate() error {
	nav := c.page.Timeout(c.config.NavTimeout)
	if err := nav.Navigate(c.target); err != nil {
		return err
	}
	if err := nav.WaitLoad(); err != nil {
		return err
	}
	if err := nav.WaitIdle(c.config.NavTimeout); err != nil {
		return err
	}
	return nil
}

// isTimeoutErr 判断导航错误是否为超时
// rod对CDP错误的包装不一致,同时检查context deadline和错误消息
func isTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline")
}

// extractStaticScripts 从已加载DOM中提取<script src>与script类preload链接
func (c *Collector) extractStaticScripts() {
	result, err := c.page.Evaluate(rod.Eval(`() => {
		var out = [];
		var scripts = document.querySelectorAll('script[src]');
		for (var i = 0; i < scripts.length; i++) {
			if (scripts[i].src) {
				out.push(scripts[i].src);
			}
		}
		var links = document.querySelectorAll('link[rel="preload"][as="script"], link[rel="modulepreload"]');
		for (var j = 0; j < links.length; j++) {
			if (links[j].href) {
				out.push(links[j].href);
			}
		}
		return out;
	}`))
	if err != nil {
		utils.Debugf("静态script提取失败 [%s]: %v", c.target, err)
		return
	}

	for _, item := range result.Value.Arr() {
		c.sink.Offer(item.Str(), "", SourceStaticScan, true)
	}
}

// scanInlineModules 扫描<script type="module">文本中的import字面量
// import说明符指向的必然是模块脚本,入库时跳过分类启发式
func (c *Collector) scanInlineModules() {
	result, err := c.page.Evaluate(rod.Eval(`() => {
		var out = [];
		var scripts = document.querySelectorAll('script[type="module"]');
		for (var i = 0; i < scripts.length; i++) {
			if (scripts[i].textContent) {
				out.push(scripts[i].textContent);
			}
		}
		return out;
	}`))
	if err != nil {
		utils.Debugf("inline module扫描失败 [%s]: %v", c.target, err)
		return
	}

	for _, item := range result.Value.Arr() {
		for _, spec := range ScanModuleImports(item.Str()) {
			c.sink.Offer(spec, "", SourceInlineModule, false)
		}
	}
}

// discoverServiceWorkers 双路service worker发现
//  1. 静态扫描所有<script>文本中的serviceWorker.register字面量
//  2. 短暂等待后通过控制协议枚举存活的service worker目标
func (c *Collector) discoverServiceWorkers() {
	result, err := c.page.Evaluate(rod.Eval(`() => {
		var out = [];
		var scripts = document.querySelectorAll('script');
		for (var i = 0; i < scripts.length; i++) {
			if (scripts[i].textContent) {
				out.push(scripts[i].textContent);
			}
		}
		return out;
	}`))
	if err != nil {
		utils.Debugf("service worker静态扫描失败 [%s]: %v", c.target, err)
	} else {
		for _, item := range result.Value.Arr() {
			for _, raw := range ScanServiceWorkerRegistrations(item.Str()) {
				c.sink.Offer(raw, "", SourceServiceWorker, false)
			}
		}
	}

	// 注册是异步的,给浏览器一点时间完成worker启动
	time.Sleep(c.config.SettleDelay)

	targets, err := proto.TargetGetTargets{}.Call(c.browser)
	if err != nil {
		utils.Debugf("枚举service worker目标失败: %v", err)
		return
	}
	for _, info := range targets.TargetInfos {
		if info.Type == "service_worker" && info.URL != "" {
			c.sink.Offer(info.URL, "", SourceServiceWorker, false)
		}
	}
}

// Close 关闭采集器持有的页面
func (c *Collector) Close() {
	if c.page != nil {
		if err := c.page.Close(); err != nil {
			utils.Debugf("关闭页面失败: %v", err)
		}
	}
}
