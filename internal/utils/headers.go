package utils

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxHeaderValueLength HTTP头部值最大长度 (8KB)
	MaxHeaderValueLength = 8192
)

// forbiddenHeaders 由HTTP客户端/浏览器自动管理,禁止用户配置
var forbiddenHeaders = map[string]bool{
	"host":              true,
	"content-length":    true,
	"transfer-encoding": true,
	"connection":        true,
}

// sensitiveKeywords 名称中出现这些关键字的头部在日志中脱敏
var sensitiveKeywords = []string{
	"authorization",
	"cookie",
	"token",
	"key",
	"secret",
	"password",
	"credential",
}

var (
	headerNameRegex  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	headerValueRegex = regexp.MustCompile(`^[\x20-\x7E\t]*$`)
)

// ValidateHeader 验证单个头部的名称与值 (RFC 7230)
// 名称仅允许字母数字连字符,值仅允许可打印ASCII,禁止头部直接拒绝
func ValidateHeader(name, value string) error {
	if forbiddenHeaders[strings.ToLower(name)] {
		return fmt.Errorf("头部 '%s' 由客户端自动管理,不允许自定义", name)
	}
	if name == "" || !headerNameRegex.MatchString(name) {
		return fmt.Errorf("头部名称非法: %q (仅允许字母、数字和连字符)", name)
	}
	if len(value) > MaxHeaderValueLength {
		return fmt.Errorf("头部 '%s' 值过长: %d 字节 (最大 %d)", name, len(value), MaxHeaderValueLength)
	}
	if !headerValueRegex.MatchString(value) {
		return fmt.Errorf("头部 '%s' 值包含非法字符 (仅允许可打印ASCII)", name)
	}
	return nil
}

// IsSensitiveHeader 判断头部是否需要脱敏
func IsSensitiveHeader(name string) bool {
	nameLower := strings.ToLower(name)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 脱敏敏感头部值,用于日志输出
func RedactHeaderValue(name, value string) string {
	if !IsSensitiveHeader(name) {
		return value
	}
	if strings.HasPrefix(value, "Bearer ") {
		return "Bearer ***"
	}
	if len(value) > 8 {
		return value[:4] + "***" + value[len(value)-4:]
	}
	return "***"
}

// RedactHeaders 返回脱敏后的头部map,用于日志展示
func RedactHeaders(headers map[string]string) map[string]string {
	result := make(map[string]string, len(headers))
	for name, value := range headers {
		result[name] = RedactHeaderValue(name, value)
	}
	return result
}

// ParseHeaderFlag 解析命令行 "Name: Value" 形式的头部参数
func ParseHeaderFlag(s string) (name, value string, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("格式错误: 缺少冒号分隔符,应为 'Name: Value'")
	}

	name = strings.TrimSpace(parts[0])
	value = strings.TrimSpace(parts[1])

	if err := ValidateHeader(name, value); err != nil {
		return "", "", err
	}

	return name, value, nil
}
