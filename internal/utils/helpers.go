package utils

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// ReadURLsFromFile 从文件中读取目标URL列表
// 路径为"-"时从标准输入读取;跳过空行与#注释行,无效URL告警后跳过
func ReadURLsFromFile(filepath string) ([]string, error) {
	var reader io.Reader
	if filepath == "-" {
		reader = os.Stdin
	} else {
		file, err := os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("打开URL文件失败: %w", err)
		}
		defer file.Close()
		reader = file
	}

	urls, err := readURLs(reader)
	if err != nil {
		return nil, err
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("输入中没有有效的URL")
	}

	Infof("加载了 %d 个目标URL", len(urls))
	return urls, nil
}

// readURLs 逐行解析URL输入
func readURLs(reader io.Reader) ([]string, error) {
	urls := make([]string, 0)
	scanner := bufio.NewScanner(reader)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := ValidateURL(line); err != nil {
			Warnf("跳过无效URL (行 %d): %s - %v", lineNum, line, err)
			continue
		}

		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取URL输入失败: %w", err)
	}

	return urls, nil
}

// ValidateURL 验证目标URL格式
// 要求绝对http/https URL,带主机名
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URL格式无效: %w", err)
	}

	if parsed.Scheme == "" {
		return fmt.Errorf("URL缺少协议(http/https)")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL协议必须是http或https")
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL缺少主机名")
	}

	return nil
}

// SanitizeFilename 将URL转换为确定性的本地文件名
// 形式: 主机名前缀 + 路径,非字母数字字符替换为下划线
func SanitizeFilename(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return sanitizeString(rawURL)
	}

	name := parsed.Host + parsed.Path
	if parsed.Path == "" || parsed.Path == "/" {
		name = parsed.Host + "/index.js"
	}
	return sanitizeString(name)
}

// sanitizeString 替换所有非字母数字字符为下划线,保留最后一个扩展名点
func sanitizeString(s string) string {
	lastDot := strings.LastIndex(s, ".")
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && i == lastDot:
			b.WriteRune('.')
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
