package core

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/RecoveryAshes/jsrecon/internal/models"
)

func TestTargetFileName(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "普通域名", target: "https://example.com", want: "example_com_js.txt"},
		{name: "子域名", target: "https://app.example.com/path", want: "app_example_com_js.txt"},
		{name: "带端口", target: "https://example.com:8443", want: "example_com_js.txt"},
		{name: "无效URL", target: "::bad::", want: "unknown_js.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TargetFileName(tt.target); got != tt.want {
				t.Errorf("TargetFileName(%q) = %q, 期望 %q", tt.target, got, tt.want)
			}
		})
	}
}

func TestReadPersistedURLs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "example_com_js.txt")
	content := "# 注释行\nhttps://example.com/a.js\n\nhttps://example.com/b.js\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	urls, err := ReadPersistedURLs(path)
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if len(urls) != 2 {
		t.Errorf("URL数量 = %d, 期望 2", len(urls))
	}
	if !urls["https://example.com/a.js"] || !urls["https://example.com/b.js"] {
		t.Errorf("清单内容不符: %v", urls)
	}
}

func TestReadPersistedURLsMissingFile(t *testing.T) {
	urls, err := ReadPersistedURLs(filepath.Join(t.TempDir(), "nope.txt"))
	if err != nil {
		t.Fatalf("不存在的文件应视为空清单, 实际错误: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("URL数量 = %d, 期望 0", len(urls))
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取结果文件失败: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestWriteTargetResumeAppendsDiffOnly(t *testing.T) {
	dir := t.TempDir()
	output := OutputConfig{BaseDir: dir, PerTarget: true}
	path := filepath.Join(dir, "example_com_js.txt")

	// 历史文件含注释行和 X.js
	prior := "# discovered 2026-08-01\nhttps://example.com/X.js\n"
	if err := os.WriteFile(path, []byte(prior), 0644); err != nil {
		t.Fatal(err)
	}

	// 续采发现 X.js 和 Y.js: 只追加 Y.js, 注释行与既有顺序原样保留
	w := NewResultWriter(output, true)
	r := models.NewCollectionResult("https://example.com")
	r.URLs = []string{"https://example.com/X.js", "https://example.com/Y.js"}
	newCount, err := w.WriteTarget(r)
	if err != nil {
		t.Fatalf("续采写入失败: %v", err)
	}
	if newCount != 1 {
		t.Errorf("新增数量 = %d, 期望 1", newCount)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := prior + "https://example.com/Y.js\n"
	if string(data) != want {
		t.Errorf("续采后文件内容:\n%s期望:\n%s", data, want)
	}
}

func TestWriteTargetResumeIdempotent(t *testing.T) {
	dir := t.TempDir()
	output := OutputConfig{BaseDir: dir, PerTarget: true}

	r := models.NewCollectionResult("https://example.com")
	r.URLs = []string{"https://example.com/a.js", "https://example.com/b.js"}

	w := NewResultWriter(output, true)
	if _, err := w.WriteTarget(r); err != nil {
		t.Fatal(err)
	}
	first := readLines(t, filepath.Join(dir, "example_com_js.txt"))

	// 相同结果再写一次, 文件内容不变且新增为0
	newCount, err := w.WriteTarget(r)
	if err != nil {
		t.Fatal(err)
	}
	if newCount != 0 {
		t.Errorf("重复写入新增数量 = %d, 期望 0", newCount)
	}
	second := readLines(t, filepath.Join(dir, "example_com_js.txt"))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("重复写入后内容变化: %v -> %v", first, second)
	}
}

func TestWriteTargetOverwrite(t *testing.T) {
	dir := t.TempDir()
	output := OutputConfig{BaseDir: dir, PerTarget: true}
	path := filepath.Join(dir, "example_com_js.txt")

	w := NewResultWriter(output, false)
	r1 := models.NewCollectionResult("https://example.com")
	r1.URLs = []string{"https://example.com/old.js"}
	if _, err := w.WriteTarget(r1); err != nil {
		t.Fatal(err)
	}

	// 非续采模式整体覆盖, 历史URL不保留
	r2 := models.NewCollectionResult("https://example.com")
	r2.URLs = []string{"https://example.com/new.js"}
	if _, err := w.WriteTarget(r2); err != nil {
		t.Fatal(err)
	}

	want := []string{"https://example.com/new.js"}
	if got := readLines(t, path); !reflect.DeepEqual(got, want) {
		t.Errorf("覆盖后内容 = %v, 期望 %v", got, want)
	}
}

func TestWriteCombined(t *testing.T) {
	dir := t.TempDir()
	output := OutputConfig{BaseDir: dir, PerTarget: false, CombinedFile: "all_js.txt", JSONFile: "report.json"}
	w := NewResultWriter(output, false)

	r1 := models.NewCollectionResult("https://a.com")
	r1.URLs = []string{"https://a.com/app.js", "https://cdn.com/shared.js"}
	r2 := models.NewCollectionResult("https://b.com")
	r2.URLs = []string{"https://b.com/main.js", "https://cdn.com/shared.js"}

	if err := w.WriteCombined([]*models.CollectionResult{r1, r2}); err != nil {
		t.Fatalf("合并写入失败: %v", err)
	}

	// 合并清单为去重后的并集且有序
	want := []string{"https://a.com/app.js", "https://b.com/main.js", "https://cdn.com/shared.js"}
	if got := readLines(t, filepath.Join(dir, "all_js.txt")); !reflect.DeepEqual(got, want) {
		t.Errorf("合并清单 = %v, 期望 %v", got, want)
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("读取JSON报告失败: %v", err)
	}
	if !strings.Contains(string(data), `"https://a.com"`) || !strings.Contains(string(data), `"count": 2`) {
		t.Errorf("JSON报告内容不符:\n%s", data)
	}
}

func TestWriteCombinedResumeAppendsDiffOnly(t *testing.T) {
	dir := t.TempDir()
	output := OutputConfig{BaseDir: dir, PerTarget: false, CombinedFile: "all_js.txt", JSONFile: "report.json"}
	path := filepath.Join(dir, "all_js.txt")

	prior := "# run 1\nhttps://a.com/app.js\n"
	if err := os.WriteFile(path, []byte(prior), 0644); err != nil {
		t.Fatal(err)
	}

	w := NewResultWriter(output, true)
	r := models.NewCollectionResult("https://a.com")
	r.URLs = []string{"https://a.com/app.js", "https://a.com/vendor.js"}
	if err := w.WriteCombined([]*models.CollectionResult{r}); err != nil {
		t.Fatalf("续采合并写入失败: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := prior + "https://a.com/vendor.js\n"
	if string(data) != want {
		t.Errorf("续采后合并清单:\n%s期望:\n%s", data, want)
	}

	// JSON报告在续采下与既有内容做并集
	report, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(report), `"count": 2`) {
		t.Errorf("JSON报告内容不符:\n%s", report)
	}
}
