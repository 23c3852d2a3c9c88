package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// EngineMode 发现引擎模式
type EngineMode string

const (
	ModeBrowser EngineMode = "browser" // 仅浏览器驱动发现
	ModeStatic  EngineMode = "static"  // 仅静态预扫描
	ModeAll     EngineMode = "all"     // 先静态后浏览器
)

// EngineConfig 发现引擎配置
type EngineConfig struct {
	Threads         int        `json:"threads" mapstructure:"threads"`                   // 批次宽度(每批并行采集器数)
	NavTimeoutSec   int        `json:"nav_timeout" mapstructure:"nav_timeout"`           // 导航超时(秒)
	SettleDelaySec  int        `json:"settle_delay" mapstructure:"settle_delay"`         // 提取步骤前等待(秒)
	FinalWaitSec    int        `json:"final_wait" mapstructure:"final_wait"`             // 收尾等待(秒)
	Headless        bool       `json:"headless" mapstructure:"headless"`                 // 无头模式
	Proxy           string     `json:"proxy" mapstructure:"proxy"`                       // 浏览器代理
	Scroll          bool       `json:"scroll" mapstructure:"scroll"`                     // 滚动触发懒加载
	Interact        bool       `json:"interact" mapstructure:"interact"`                 // hover交互触发
	Mode            EngineMode `json:"mode" mapstructure:"mode"`                         // 发现模式
	Resume          bool       `json:"resume" mapstructure:"resume"`                     // 增量合并已有输出
	AllowDomains    []string   `json:"allow_domains" mapstructure:"allow_domains"`       // 域名allow模式
	DenyDomains     []string   `json:"deny_domains" mapstructure:"deny_domains"`         // 域名deny模式
	Download        bool       `json:"download" mapstructure:"download"`                 // 下载发现的资源
	DedupeDownloads bool       `json:"dedupe_downloads" mapstructure:"dedupe_downloads"` // 按内容哈希去重下载
}

// Validate 验证引擎配置
func (c *EngineConfig) Validate() error {
	if c.Threads < 1 || c.Threads > 50 {
		return fmt.Errorf("并发批次宽度必须在1-50之间,当前值: %d", c.Threads)
	}
	if c.NavTimeoutSec < 1 || c.NavTimeoutSec > 300 {
		return fmt.Errorf("导航超时必须在1-300秒之间,当前值: %d", c.NavTimeoutSec)
	}
	if c.SettleDelaySec < 0 || c.SettleDelaySec > 60 {
		return fmt.Errorf("等待时间必须在0-60秒之间,当前值: %d", c.SettleDelaySec)
	}
	if c.FinalWaitSec < 0 || c.FinalWaitSec > 120 {
		return fmt.Errorf("收尾等待必须在0-120秒之间,当前值: %d", c.FinalWaitSec)
	}
	switch c.Mode {
	case ModeBrowser, ModeStatic, ModeAll:
	default:
		return fmt.Errorf("无效的发现模式: %s (有效值: browser, static, all)", c.Mode)
	}
	return nil
}

// NavTimeout 导航超时时长
func (c *EngineConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// SettleDelay 提取步骤前等待时长
func (c *EngineConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySec) * time.Second
}

// FinalWait 收尾等待时长
func (c *EngineConfig) FinalWait() time.Duration {
	return time.Duration(c.FinalWaitSec) * time.Second
}

// CollectionResult 单目标采集结果
// URLs去重且按字典序排列;Sources记录每个URL的首见来源标签(仅元数据)
type CollectionResult struct {
	RunID       string            `json:"run_id"`
	Target      string            `json:"target"`
	URLs        []string          `json:"urls"`
	Sources     map[string]string `json:"sources,omitempty"`
	Failed      bool              `json:"failed,omitempty"`
	ErrorDetail string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
}

// NewCollectionResult 创建带运行ID的空结果
func NewCollectionResult(target string) *CollectionResult {
	return &CollectionResult{
		RunID:     uuid.New().String(),
		Target:    target,
		URLs:      []string{},
		Sources:   make(map[string]string),
		StartedAt: time.Now(),
	}
}

// Count 结果中的URL数量
func (r *CollectionResult) Count() int {
	return len(r.URLs)
}

// Hostname 目标的主机名,解析失败返回空
func (r *CollectionResult) Hostname() string {
	parsed, err := url.Parse(r.Target)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

// ToJSON 序列化为JSON
func (r *CollectionResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// RunStats 整次运行的统计
type RunStats struct {
	Targets         int     `json:"targets"`          // 目标总数
	Succeeded       int     `json:"succeeded"`        // 成功目标数
	Failed          int     `json:"failed"`           // 失败目标数(记为空结果)
	TotalURLs       int     `json:"total_urls"`       // 合并去重后URL总数
	Downloaded      int     `json:"downloaded"`       // 下载成功文件数
	DuplicateFiles  int     `json:"duplicate_files"`  // 内容哈希重复被丢弃数
	FailedDownloads int     `json:"failed_downloads"` // 下载失败数
	TotalBytes      int64   `json:"total_bytes"`      // 下载总字节数
	Duration        float64 `json:"duration"`         // 总耗时(秒)
}
