package jsurl

import (
	"regexp"
	"strings"
)

// FilterRule 域名过滤规则
// Pattern为glob风格主机名模式: '*'匹配任意子串,'.'按字面转义
type FilterRule struct {
	Pattern string
	Deny    bool
}

// globToRegexp 将glob模式编译为不区分大小写的正则
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// DomainFilter 按主机名对URL集合做允许/拒绝过滤
type DomainFilter struct {
	allow []*regexp.Regexp
	deny  []*regexp.Regexp
}

// NewDomainFilter 编译allow/deny模式列表
// 无法编译的模式被跳过并忽略(glob转义后实际不会出现)
func NewDomainFilter(allowPatterns, denyPatterns []string) *DomainFilter {
	df := &DomainFilter{}
	for _, p := range allowPatterns {
		if re, err := globToRegexp(p); err == nil {
			df.allow = append(df.allow, re)
		}
	}
	for _, p := range denyPatterns {
		if re, err := globToRegexp(p); err == nil {
			df.deny = append(df.deny, re)
		}
	}
	return df
}

// Match 判断单个URL是否通过过滤
// allow列表存在时要求至少命中一条;deny命中则无条件拒绝(deny优先)
func (df *DomainFilter) Match(rawURL string) bool {
	host := Hostname(rawURL)
	if host == "" {
		return false
	}

	// deny短路,无论allow是否命中
	for _, re := range df.deny {
		if re.MatchString(host) {
			return false
		}
	}

	if len(df.allow) > 0 {
		for _, re := range df.allow {
			if re.MatchString(host) {
				return true
			}
		}
		return false
	}

	return true
}

// Apply 过滤URL序列,保持输入顺序
// 两个模式列表均为空时等价于恒等函数
func (df *DomainFilter) Apply(urls []string) []string {
	if len(df.allow) == 0 && len(df.deny) == 0 {
		return urls
	}

	filtered := make([]string, 0, len(urls))
	for _, u := range urls {
		if df.Match(u) {
			filtered = append(filtered, u)
		}
	}
	return filtered
}
