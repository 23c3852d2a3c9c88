package utils

import (
	"testing"
)

// TestValidateHeader 头部名称/值验证
func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expectError bool
	}{
		{"合法头部", "User-Agent", "jsrecon/1.0", false},
		{"合法带数字", "X-Request-ID-123", "abc", false},
		{"空名称", "", "x", true},
		{"名称含空格", "User Agent", "x", true},
		{"名称含下划线", "User_Agent", "x", true},
		{"禁止头部Host", "Host", "evil.com", true},
		{"禁止头部大小写混合", "content-LENGTH", "10", true},
		{"值含控制字符", "X-Test", "a\x01b", true},
		{"值含非ASCII", "X-Test", "中文", true},
		{"空值合法", "X-Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeader(tt.headerName, tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("ValidateHeader(%q, %q) 错误=%v, 期望错误=%v", tt.headerName, tt.headerValue, err, tt.expectError)
			}
		})
	}
}

// TestRedactHeaderValue 敏感头部脱敏策略
func TestRedactHeaderValue(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{"普通头部不脱敏", "Accept", "application/json", "application/json"},
		{"Bearer仅保留前缀", "Authorization", "Bearer abcdef123456", "Bearer ***"},
		{"长密钥保留首尾", "X-Api-Key", "sk-1234567890abcd", "sk-1***abcd"},
		{"短密钥完全隐藏", "X-Token", "abc", "***"},
		{"Cookie脱敏", "Cookie", "session=0123456789", "sess***6789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactHeaderValue(tt.header, tt.value)
			if got != tt.expected {
				t.Errorf("RedactHeaderValue(%q, %q) = %q, 期望 %q", tt.header, tt.value, got, tt.expected)
			}
		})
	}
}

// TestParseHeaderFlag 命令行头部参数解析
func TestParseHeaderFlag(t *testing.T) {
	name, value, err := ParseHeaderFlag("X-Custom: hello world")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if name != "X-Custom" || value != "hello world" {
		t.Errorf("解析结果 %q=%q, 期望 X-Custom=hello world", name, value)
	}

	if _, _, err := ParseHeaderFlag("no-colon-here"); err == nil {
		t.Error("缺少冒号应报错")
	}
	if _, _, err := ParseHeaderFlag("Host: x"); err == nil {
		t.Error("禁止头部应报错")
	}
}

// TestSanitizeFilename URL到文件名的确定性转换
func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"常规JS文件", "https://cdn.example.com/static/app.js", "cdn_example_com_static_app.js"},
		{"根路径", "https://example.com/", "example_com_index.js"},
		{"带哈希命名", "https://a.com/v2/main.abc123.js", "a_com_v2_main_abc123.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFilename(tt.url)
			if got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, 期望 %q", tt.url, got, tt.expected)
			}
		})
	}

	// 确定性
	if SanitizeFilename("https://x.com/a.js") != SanitizeFilename("https://x.com/a.js") {
		t.Error("SanitizeFilename应是确定性的")
	}
}
