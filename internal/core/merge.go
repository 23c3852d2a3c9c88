package core

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RecoveryAshes/jsrecon/internal/jsurl"
	"github.com/RecoveryAshes/jsrecon/internal/models"
	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// ResultWriter 结果持久化与合并引擎
// 每目标文件按主机名命名;续采模式只追加与历史结果的差集,绝不截断重写
type ResultWriter struct {
	baseDir      string
	perTarget    bool
	combinedFile string
	jsonFile     string
	resume       bool
}

// NewResultWriter 创建结果写入器
func NewResultWriter(output OutputConfig, resume bool) *ResultWriter {
	return &ResultWriter{
		baseDir:      output.BaseDir,
		perTarget:    output.PerTarget,
		combinedFile: output.CombinedFile,
		jsonFile:     output.JSONFile,
		resume:       resume,
	}
}

// TargetFileName 目标对应的输出文件名
// 主机名中的点替换为下划线,如 example.com -> example_com_js.txt
func TargetFileName(target string) string {
	host := jsurl.Hostname(target)
	if host == "" {
		host = "unknown"
	}
	return strings.ReplaceAll(host, ".", "_") + "_js.txt"
}

// ReadPersistedURLs 读取已持久化的URL清单
// 文件不存在视为空清单;#开头的行与空行被忽略
func ReadPersistedURLs(path string) (map[string]bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("打开结果文件失败: %w", err)
	}
	defer file.Close()

	urls := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取结果文件失败: %w", err)
	}
	return urls, nil
}

// appendDiff 计算与已有清单的差集并仅追加新增行
// 既有内容(包括注释行和原始顺序)原样保留,文件只增不减
func appendDiff(path string, urls []string) (int, error) {
	existing, err := ReadPersistedURLs(path)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(urls))
	var fresh []string
	for _, u := range urls {
		if !existing[u] && !seen[u] {
			seen[u] = true
			fresh = append(fresh, u)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	sort.Strings(fresh)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("打开结果文件失败: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	for _, u := range fresh {
		sb.WriteString(u)
		sb.WriteByte('\n')
	}
	if _, err := file.WriteString(sb.String()); err != nil {
		return 0, fmt.Errorf("追加结果失败: %w", err)
	}
	return len(fresh), nil
}

// WriteTarget 写入单目标结果
// 续采模式仅追加新增URL;否则整体重写为排序后的去重清单
func (w *ResultWriter) WriteTarget(result *models.CollectionResult) (newCount int, err error) {
	if !w.perTarget {
		return len(result.URLs), nil
	}
	if err := os.MkdirAll(w.baseDir, 0755); err != nil {
		return 0, fmt.Errorf("创建输出目录失败: %w", err)
	}

	path := filepath.Join(w.baseDir, TargetFileName(result.Target))

	if w.resume {
		newCount, err = appendDiff(path, result.URLs)
		if err != nil {
			return 0, err
		}
		utils.Infof("目标 %s 结果已追加至 %s (新增 %d 条)", result.Target, path, newCount)
		return newCount, nil
	}

	sorted := dedupSorted(result.URLs)
	if err := writeLines(path, sorted); err != nil {
		return 0, err
	}
	utils.Infof("目标 %s 结果已写入 %s (共 %d 条)", result.Target, path, len(sorted))
	return len(sorted), nil
}

// targetReport JSON报告中的单目标条目
type targetReport struct {
	Count int      `json:"count"`
	URLs  []string `json:"urls"`
}

// WriteCombined 写入所有目标的合并清单与JSON报告
// 续采模式下合并清单同样只追加差集,JSON报告与既有内容做并集后重建
func (w *ResultWriter) WriteCombined(results []*models.CollectionResult) error {
	if w.combinedFile == "" && w.jsonFile == "" {
		return nil
	}
	if err := os.MkdirAll(w.baseDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	if w.combinedFile != "" {
		path := filepath.Join(w.baseDir, w.combinedFile)
		union := make(map[string]bool)
		for _, r := range results {
			for _, u := range r.URLs {
				union[u] = true
			}
		}
		all := make([]string, 0, len(union))
		for u := range union {
			all = append(all, u)
		}
		sort.Strings(all)

		if w.resume {
			added, err := appendDiff(path, all)
			if err != nil {
				return err
			}
			utils.Infof("合并结果已追加至 %s (新增 %d 条)", path, added)
		} else {
			if err := writeLines(path, all); err != nil {
				return err
			}
			utils.Infof("合并结果已写入 %s (共 %d 条)", path, len(all))
		}
	}

	if w.jsonFile != "" {
		path := filepath.Join(w.baseDir, w.jsonFile)

		report := make(map[string]targetReport, len(results))
		if w.resume {
			if data, err := os.ReadFile(path); err == nil {
				if err := json.Unmarshal(data, &report); err != nil {
					utils.Warnf("既有JSON报告无法解析,将重建: %s: %v", path, err)
					report = make(map[string]targetReport, len(results))
				}
			}
		}
		for _, r := range results {
			merged := make(map[string]bool)
			for _, u := range report[r.Target].URLs {
				merged[u] = true
			}
			for _, u := range r.URLs {
				merged[u] = true
			}
			urls := make([]string, 0, len(merged))
			for u := range merged {
				urls = append(urls, u)
			}
			sort.Strings(urls)
			report[r.Target] = targetReport{Count: len(urls), URLs: urls}
		}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("序列化JSON报告失败: %w", err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("写入JSON报告失败: %w", err)
		}
		utils.Infof("JSON报告已写入 %s", path)
	}
	return nil
}

// dedupSorted 去重并按字典序排序
func dedupSorted(urls []string) []string {
	set := make(map[string]bool, len(urls))
	for _, u := range urls {
		set[u] = true
	}
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func writeLines(path string, lines []string) error {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("写入结果文件失败: %w", err)
	}
	return nil
}
