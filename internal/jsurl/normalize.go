package jsurl

import (
	"net/url"
	"strings"
)

// Normalize 将任意URL字符串规范化为绝对URL
// 处理规则:
//   - 协议相对形式(//host/path)和相对路径均基于baseURL解析
//   - 移除fragment(#...)
//   - 折叠路径中重复的分隔符(//)
//
// 输入无法解析时返回空字符串,调用方应静默丢弃,绝不视为致命错误
func Normalize(rawURL string, baseURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	ref, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	var resolved *url.URL
	if ref.IsAbs() {
		resolved = ref
	} else {
		base, err := url.Parse(baseURL)
		if err != nil || !base.IsAbs() {
			return ""
		}
		resolved = base.ResolveReference(ref)
	}

	// 仅接受http/https
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if resolved.Host == "" {
		return ""
	}

	// 移除fragment
	resolved.Fragment = ""
	resolved.RawFragment = ""

	// 折叠路径中的重复分隔符
	resolved.Path = collapseSlashes(resolved.Path)
	resolved.RawPath = ""

	return resolved.String()
}

// collapseSlashes 折叠路径中连续的'/'
func collapseSlashes(p string) string {
	if !strings.Contains(p, "//") {
		return p
	}
	var b strings.Builder
	b.Grow(len(p))
	prevSlash := false
	for _, r := range p {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Hostname 提取URL的主机名(不含端口),解析失败返回空字符串
func Hostname(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
