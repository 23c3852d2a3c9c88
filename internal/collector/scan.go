package collector

import (
	"regexp"
)

// 静态文本扫描用的正则
// 脚本文本中的import/注册字面量只能覆盖扫描时刻已存在的内容,
// 因此调用顺序上必须先完成滚动/交互触发,再执行这些扫描
var (
	// staticImportPattern 静态 import ... from "X"
	staticImportPattern = regexp.MustCompile(`import\s+(?:[\w$*{}\s,]+\s+from\s+)?["']([^"']+)["']`)

	// dynamicImportPattern 动态 import("X")
	dynamicImportPattern = regexp.MustCompile(`import\s*\(\s*["']([^"']+)["']\s*\)`)

	// serviceWorkerPattern serviceWorker.register("X") 调用字面量
	serviceWorkerPattern = regexp.MustCompile(`serviceWorker\s*\.\s*register\s*\(\s*["']([^"']+)["']`)

	// wsJSURLPattern WebSocket帧载荷中形如 https?://...js... 的URL
	wsJSURLPattern = regexp.MustCompile(`https?://[^\s"'<>\\]+?\.js[^\s"'<>\\]*`)
)

// ScanModuleImports 从<script type="module">文本中提取import字面量
// 覆盖静态import与动态import()两种形式,返回去重后的候选URL
func ScanModuleImports(scriptText string) []string {
	seen := make(map[string]bool)
	var specs []string

	collect := func(matches [][]string) {
		for _, m := range matches {
			if len(m) > 1 && m[1] != "" && !seen[m[1]] {
				seen[m[1]] = true
				specs = append(specs, m[1])
			}
		}
	}

	collect(staticImportPattern.FindAllStringSubmatch(scriptText, -1))
	collect(dynamicImportPattern.FindAllStringSubmatch(scriptText, -1))

	return specs
}

// ScanServiceWorkerRegistrations 从脚本文本中提取serviceWorker.register调用的脚本字面量
func ScanServiceWorkerRegistrations(scriptText string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, m := range serviceWorkerPattern.FindAllStringSubmatch(scriptText, -1) {
		if len(m) > 1 && m[1] != "" && !seen[m[1]] {
			seen[m[1]] = true
			urls = append(urls, m[1])
		}
	}
	return urls
}

// ScanFramePayload 从WebSocket帧载荷文本中提取JS形态的URL
func ScanFramePayload(payload string) []string {
	return wsJSURLPattern.FindAllString(payload, -1)
}
