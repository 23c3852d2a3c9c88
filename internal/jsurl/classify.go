package jsurl

import (
	"net/url"
	"regexp"
	"strings"
)

// JSFileExtensions 识别为JavaScript源文件的扩展名
var JSFileExtensions = []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx"}

// jsMIMEFamilies JavaScript的MIME类型家族(子串匹配)
var jsMIMEFamilies = []string{
	"application/javascript",
	"text/javascript",
	"application/ecmascript",
	"text/ecmascript",
	"application/x-javascript",
	"module",
}

var (
	// bundlerChunkPattern 打包器产物命名: *.chunk*.js / *.bundle*.js / *.vendor*.js 及数字变体
	bundlerChunkPattern = regexp.MustCompile(`(?i)\.(chunk|bundle|vendor)[\w.-]*\.js$|^\d+\.[\w.-]*js$`)

	// hashedJSPattern 路径中紧邻.js之前的8位以上十六进制哈希段
	hashedJSPattern = regexp.MustCompile(`(?i)[.\-_/][0-9a-f]{8,}[.\-_]?(chunk|bundle|min)?\.js$`)
)

// Classify 判断资源是否为JavaScript
// 启发式规则,按顺序任一命中即为true:
//  a. Content-Type头匹配已知JS MIME家族(子串,不区分大小写)
//  b. URL路径以JS/TS源文件扩展名结尾
//  c. 路径匹配打包器chunk命名
//  d. 路径中.js前存在8位以上十六进制哈希段
//  e. URL带查询串且路径中任意位置含".js"
//
// 误报可接受(结果集仅为建议性质),伪装加载器的漏报是已知限制
func Classify(rawURL string, contentType string) bool {
	if contentType != "" {
		ct := strings.ToLower(contentType)
		for _, family := range jsMIMEFamilies {
			if strings.Contains(ct, family) {
				return true
			}
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(parsed.Path)

	// 扩展名检查
	for _, ext := range JSFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	// 打包器chunk命名
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	if bundlerChunkPattern.MatchString(base) {
		return true
	}

	// 哈希段命名
	if hashedJSPattern.MatchString(path) {
		return true
	}

	// 带查询串且路径中包含.js
	if parsed.RawQuery != "" && strings.Contains(path, ".js") {
		return true
	}

	return false
}
