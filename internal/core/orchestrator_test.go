package core

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/RecoveryAshes/jsrecon/internal/collector"
	"github.com/RecoveryAshes/jsrecon/internal/jsurl"
	"github.com/RecoveryAshes/jsrecon/internal/models"
)

func TestNextBatch(t *testing.T) {
	targets := []string{"a", "b", "c", "d", "e"}

	// 宽度2: 5个目标分为 2,2,1 三批
	var batches [][]string
	for offset := 0; offset < len(targets); {
		batch, end := nextBatch(targets, offset, 2)
		batches = append(batches, batch)
		offset = end
	}

	want := [][]string{{"a", "b"}, {"c", "d"}, {"e"}}
	if !reflect.DeepEqual(batches, want) {
		t.Errorf("批次划分 = %v, 期望 %v", batches, want)
	}
}

func TestNextBatchDegenerateWidth(t *testing.T) {
	targets := []string{"a", "b"}
	batch, end := nextBatch(targets, 0, 0)
	if len(batch) != 1 || end != 1 {
		t.Errorf("宽度0应退化为1, 实际批次 %v, end=%d", batch, end)
	}
}

func TestMergeAssetFirstSourceWins(t *testing.T) {
	o := &Orchestrator{filter: jsurl.NewDomainFilter(nil, nil)}
	r := models.NewCollectionResult("https://example.com")

	o.mergeAsset(r, collector.Asset{URL: "https://example.com/a.js", Source: collector.SourceNetwork})
	o.mergeAsset(r, collector.Asset{URL: "https://example.com/a.js", Source: collector.SourceDOMMutation})
	o.mergeAsset(r, collector.Asset{URL: "https://example.com/b.js", Source: collector.SourceStaticScan})

	if r.Count() != 2 {
		t.Fatalf("URL数量 = %d, 期望 2", r.Count())
	}
	if r.Sources["https://example.com/a.js"] != string(collector.SourceNetwork) {
		t.Errorf("重复资源应保留首个来源, 实际 %q", r.Sources["https://example.com/a.js"])
	}
}

func TestApplyFilter(t *testing.T) {
	o := &Orchestrator{
		filter: jsurl.NewDomainFilter([]string{"*.example.com", "example.com"}, []string{"tracker.example.com"}),
	}
	r := models.NewCollectionResult("https://example.com")
	for _, a := range []collector.Asset{
		{URL: "https://z.example.com/z.js", Source: collector.SourceStaticScan},
		{URL: "https://app.example.com/a.js", Source: collector.SourceNetwork},
		{URL: "https://tracker.example.com/t.js", Source: collector.SourceNetwork},
		{URL: "https://other.com/x.js", Source: collector.SourceNetwork},
	} {
		o.mergeAsset(r, a)
	}

	o.applyFilter(r)

	// 过滤后按字典序排列, 与发现顺序无关
	want := []string{"https://app.example.com/a.js", "https://z.example.com/z.js"}
	if !reflect.DeepEqual(r.URLs, want) {
		t.Errorf("过滤后URL = %v, 期望 %v", r.URLs, want)
	}
	if _, ok := r.Sources["https://tracker.example.com/t.js"]; ok {
		t.Error("被拒绝的URL不应保留来源标签")
	}
	if len(r.Sources) != 2 {
		t.Errorf("来源表大小 = %d, 期望 2", len(r.Sources))
	}
}

func TestRunStaticModeDownloads(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><script src="/app.js"></script></head><body></body></html>`))
	})
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte(`console.log("static");`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	config := &Config{
		Engine: models.EngineConfig{
			Mode:            models.ModeStatic,
			Threads:         1,
			NavTimeoutSec:   5,
			Download:        true,
			DedupeDownloads: true,
		},
		Output: OutputConfig{
			BaseDir:     dir,
			PerTarget:   true,
			DownloadDir: "downloads",
		},
		Resource: ResourceConfig{CPULoadThreshold: 300},
	}

	o, err := NewOrchestrator(config, nil, nil)
	if err != nil {
		t.Fatalf("创建编排器失败: %v", err)
	}

	stats, results, err := o.Run([]string{server.URL})
	if err != nil {
		t.Fatalf("运行失败: %v", err)
	}
	if len(results) != 1 || results[0].Count() == 0 {
		t.Fatalf("静态模式未发现资源: %+v", results)
	}
	// 静态模式同样执行下载
	if stats.Downloaded != 1 {
		t.Errorf("下载数量 = %d, 期望 1", stats.Downloaded)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "downloads"))
	if err != nil || len(entries) == 0 {
		t.Errorf("下载目录应包含文件, err=%v entries=%v", err, entries)
	}
}
