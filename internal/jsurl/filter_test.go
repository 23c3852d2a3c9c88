package jsurl

import (
	"reflect"
	"testing"
)

// TestDomainFilter 测试域名过滤的allow/deny语义
func TestDomainFilter(t *testing.T) {
	urls := []string{
		"https://app.example.com/a.js",
		"https://cdn.example.com/b.js",
		"https://other.com/c.js",
	}

	tests := []struct {
		name     string
		allow    []string
		deny     []string
		expected []string
	}{
		{
			name:     "无模式时为恒等函数",
			expected: urls,
		},
		{
			name:     "仅allow通配子域",
			allow:    []string{"*.example.com"},
			expected: []string{"https://app.example.com/a.js", "https://cdn.example.com/b.js"},
		},
		{
			name:     "allow加deny且deny优先",
			allow:    []string{"*.example.com"},
			deny:     []string{"cdn.example.com"},
			expected: []string{"https://app.example.com/a.js"},
		},
		{
			name:     "仅deny",
			deny:     []string{"*.example.com"},
			expected: []string{"https://other.com/c.js"},
		},
		{
			name:     "deny命中全部",
			deny:     []string{"*"},
			expected: []string{},
		},
		{
			name:     "精确allow",
			allow:    []string{"other.com"},
			expected: []string{"https://other.com/c.js"},
		},
		{
			name:     "点号按字面匹配不作通配",
			allow:    []string{"appxexample.com"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			df := NewDomainFilter(tt.allow, tt.deny)
			got := df.Apply(urls)
			if len(got) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Apply() = %v, 期望 %v", got, tt.expected)
			}
		})
	}
}

// TestDomainFilterDenyAlwaysWins 对任意同时命中allow和deny的URL,deny必须胜出
func TestDomainFilterDenyAlwaysWins(t *testing.T) {
	df := NewDomainFilter([]string{"*"}, []string{"*.blocked.com"})

	if df.Match("https://x.blocked.com/a.js") {
		t.Error("deny命中时即使allow也命中,URL仍不应通过")
	}
	if !df.Match("https://ok.com/a.js") {
		t.Error("未被deny命中的URL应通过")
	}
}

// TestDomainFilterCaseInsensitive 主机名匹配不区分大小写
func TestDomainFilterCaseInsensitive(t *testing.T) {
	df := NewDomainFilter([]string{"*.Example.COM"}, nil)
	if !df.Match("https://CDN.example.com/b.js") {
		t.Error("大小写混合的主机名应命中allow模式")
	}
}
