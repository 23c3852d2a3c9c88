package collector

import (
	"reflect"
	"sort"
	"sync"
	"testing"
)

// TestSinkDedup 同一规范化URL只入库一次,首见来源标签胜出
func TestSinkDedup(t *testing.T) {
	sink := NewSink("https://example.com/")

	if !sink.Offer("https://example.com/app.js", "", SourceNetwork, true) {
		t.Fatal("首次上报应入库")
	}
	if sink.Offer("https://example.com/app.js", "", SourceDOMMutation, true) {
		t.Error("重复URL不应再次入库")
	}
	// 不同写法但规范化后相同
	if sink.Offer("//example.com/app.js#frag", "", SourceWebSocket, true) {
		t.Error("规范化后相同的URL不应再次入库")
	}

	assets := sink.Assets()
	if len(assets) != 1 {
		t.Fatalf("期望1条资源, 实际%d条", len(assets))
	}
	if assets[0].Source != SourceNetwork {
		t.Errorf("首见来源应胜出, 期望%s, 实际%s", SourceNetwork, assets[0].Source)
	}
}

// TestSinkClassifyGate classify开关控制是否应用JS分类启发式
func TestSinkClassifyGate(t *testing.T) {
	sink := NewSink("https://example.com/")

	if sink.Offer("https://example.com/page.html", "text/html", SourceNetwork, true) {
		t.Error("非JS资源在classify开启时应被丢弃")
	}
	if !sink.Offer("https://example.com/sw-entry", "", SourceServiceWorker, false) {
		t.Error("classify关闭时任意规范化成功的URL都应入库")
	}
}

// TestSinkDropsMalformed 畸形URL静默丢弃,不panic不报错
func TestSinkDropsMalformed(t *testing.T) {
	sink := NewSink("https://example.com/")

	for _, raw := range []string{"", "%%%", "javascript:void(0)", "data:,x"} {
		if sink.Offer(raw, "", SourceNetwork, true) {
			t.Errorf("畸形输入%q不应入库", raw)
		}
	}
	if sink.Count() != 0 {
		t.Errorf("期望0条资源, 实际%d条", sink.Count())
	}
}

// TestSinkSortedOutput 输出始终为字典序
func TestSinkSortedOutput(t *testing.T) {
	sink := NewSink("https://example.com/")
	inputs := []string{
		"https://example.com/z.js",
		"https://example.com/a.js",
		"https://example.com/m.js",
	}
	for _, u := range inputs {
		sink.Offer(u, "", SourceNetwork, true)
	}

	urls := sink.URLs()
	if !sort.StringsAreSorted(urls) {
		t.Errorf("URLs()未排序: %v", urls)
	}
	expected := []string{
		"https://example.com/a.js",
		"https://example.com/m.js",
		"https://example.com/z.js",
	}
	if !reflect.DeepEqual(urls, expected) {
		t.Errorf("URLs() = %v, 期望 %v", urls, expected)
	}
}

// TestSinkConcurrentOffer 并发上报不丢失不重复
func TestSinkConcurrentOffer(t *testing.T) {
	sink := NewSink("https://example.com/")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sink.Offer("https://example.com/shared.js", "", SourceNetwork, true)
				sink.Offer("https://example.com/other.js", "", SourceWebSocket, true)
			}
		}()
	}
	wg.Wait()

	if sink.Count() != 2 {
		t.Errorf("并发上报后期望2条资源, 实际%d条", sink.Count())
	}
}

// TestSinkThreeSourceScenario 规范场景: 静态script + 后注入script + inline module import
func TestSinkThreeSourceScenario(t *testing.T) {
	sink := NewSink("https://example.com/index.html")

	// <script src="/app.js">
	sink.Offer("/app.js", "", SourceStaticScan, true)
	// 后注入的 <script src="//cdn.example.com/vendor.abc12345.js">
	sink.Offer("//cdn.example.com/vendor.abc12345.js", "", SourceDOMMutation, true)
	// inline module中的 import("./lazy.js")
	for _, spec := range ScanModuleImports(`const p = import("./lazy.js");`) {
		sink.Offer(spec, "", SourceInlineModule, false)
	}

	expected := []string{
		"https://cdn.example.com/vendor.abc12345.js",
		"https://example.com/app.js",
		"https://example.com/lazy.js",
	}
	if got := sink.URLs(); !reflect.DeepEqual(got, expected) {
		t.Errorf("URLs() = %v, 期望 %v", got, expected)
	}
}
