package collector

import (
	"sort"
	"sync"

	"github.com/RecoveryAshes/jsrecon/internal/jsurl"
)

// Source 发现来源标签
// 六个独立的信号生产者共用同一个去重汇聚器,来源标签仅作元数据,不参与身份判定
type Source string

const (
	SourceNetwork         Source = "network-response"
	SourceDOMMutation     Source = "dom-mutation"
	SourceDynamicCreation Source = "dynamic-creation"
	SourceInlineModule    Source = "inline-module-import"
	SourceWebSocket       Source = "websocket-frame"
	SourceServiceWorker   Source = "service-worker"
	SourceStaticScan      Source = "static-scan"
)

// Asset 一条已发现的JavaScript资源
type Asset struct {
	URL    string `json:"url"`
	Source Source `json:"source"`
}

// Sink 按规范化URL去重的资源汇聚器
// 职责: 接收各生产者上报的候选URL,规范化、可选分类、去重入库
// 身份 = 规范化URL字符串,首个上报的来源标签胜出
type Sink struct {
	baseURL string

	mu   sync.Mutex
	seen map[string]Source
}

// NewSink 创建汇聚器,baseURL用于解析相对/协议相对URL
func NewSink(baseURL string) *Sink {
	return &Sink{
		baseURL: baseURL,
		seen:    make(map[string]Source),
	}
}

// Offer 上报候选URL
// classify为true时要求URL或Content-Type通过JS分类启发式才入库
// 规范化失败或分类不通过则静默丢弃,返回是否首次入库
func (s *Sink) Offer(rawURL string, contentType string, src Source, classify bool) bool {
	canonical := jsurl.Normalize(rawURL, s.baseURL)
	if canonical == "" {
		return false
	}

	if classify && !jsurl.Classify(canonical, contentType) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[canonical]; exists {
		return false
	}
	s.seen[canonical] = src
	return true
}

// URLs 返回当前已累积的规范化URL,字典序排序
// 运行中途调用返回当前快照,不存在"未就绪"状态
func (s *Sink) URLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0, len(s.seen))
	for u := range s.seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Assets 返回URL及其首见来源标签,按URL字典序排序
func (s *Sink) Assets() []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := make([]Asset, 0, len(s.seen))
	for u, src := range s.seen {
		assets = append(assets, Asset{URL: u, Source: src})
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].URL < assets[j].URL })
	return assets
}

// Count 当前去重后的资源数
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
