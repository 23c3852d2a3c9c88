package core

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-rod/rod/lib/proto"

	"github.com/RecoveryAshes/jsrecon/internal/jsurl"
	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// cookieEntry 兼容两种JSON格式的Cookie条目
// 现代格式使用小写字段,旧版导出格式使用首字母大写且布尔值为字符串
type cookieEntry struct {
	Name     string      `json:"name"`
	Value    string      `json:"value"`
	Domain   string      `json:"domain"`
	Path     string      `json:"path"`
	Secure   interface{} `json:"secure"`
	HTTPOnly interface{} `json:"httpOnly"`

	// 旧版格式字段
	LegacyName     string      `json:"Name"`
	LegacyValue    string      `json:"Value"`
	LegacyDomain   string      `json:"Domain"`
	LegacyPath     string      `json:"Path"`
	LegacySecure   interface{} `json:"Secure"`
	LegacyHTTPOnly interface{} `json:"HttpOnly"`
}

// asBool 解析布尔字段,兼容字符串形式的"true"/"false"
func asBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	default:
		return false
	}
}

func (e *cookieEntry) normalize() (name, value, domain, path string, secure, httpOnly bool) {
	name, value, domain, path = e.Name, e.Value, e.Domain, e.Path
	secure, httpOnly = asBool(e.Secure), asBool(e.HTTPOnly)
	if name == "" && e.LegacyName != "" {
		name, value = e.LegacyName, e.LegacyValue
		domain, path = e.LegacyDomain, e.LegacyPath
		secure, httpOnly = asBool(e.LegacySecure), asBool(e.LegacyHTTPOnly)
	}
	if path == "" {
		path = "/"
	}
	return
}

// LoadCookiesFromFile 从JSON文件加载Cookie
// 解析失败时警告并返回空列表,不中断整体流程
func LoadCookiesFromFile(path, targetURL string) []*proto.NetworkCookieParam {
	data, err := os.ReadFile(path)
	if err != nil {
		utils.Warnf("读取Cookie文件失败: %s: %v", path, err)
		return nil
	}

	var entries []cookieEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		utils.Warnf("Cookie文件格式无效,跳过: %s: %v", path, err)
		return nil
	}

	defaultDomain := jsurl.Hostname(targetURL)
	cookies := make([]*proto.NetworkCookieParam, 0, len(entries))
	for _, e := range entries {
		name, value, domain, cookiePath, secure, httpOnly := e.normalize()
		if name == "" {
			continue
		}
		if domain == "" {
			domain = defaultDomain
		}
		cookies = append(cookies, &proto.NetworkCookieParam{
			Name:     name,
			Value:    value,
			Domain:   domain,
			Path:     cookiePath,
			Secure:   secure,
			HTTPOnly: httpOnly,
		})
	}

	utils.Infof("已加载 %d 个Cookie", len(cookies))
	return cookies
}

// LoadLocalStorageFromFile 从JSON文件加载localStorage种子
// 文件为扁平的字符串键值对象;解析失败时警告并返回空,不中断整体流程
func LoadLocalStorageFromFile(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		utils.Warnf("读取localStorage文件失败: %s: %v", path, err)
		return nil
	}

	var items map[string]string
	if err := json.Unmarshal(data, &items); err != nil {
		utils.Warnf("localStorage文件格式无效,跳过: %s: %v", path, err)
		return nil
	}

	utils.Infof("已加载 %d 条localStorage种子", len(items))
	return items
}

// ParseRawCookies 解析原始Cookie字符串 "k=v; k2=v2"
// 仅单目标模式可用,域名取自目标URL
func ParseRawCookies(raw, targetURL string) ([]*proto.NetworkCookieParam, error) {
	domain := jsurl.Hostname(targetURL)
	if domain == "" {
		return nil, fmt.Errorf("无法从目标URL解析域名: %s", targetURL)
	}

	var cookies []*proto.NetworkCookieParam
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("Cookie格式无效: %q", pair)
		}
		cookies = append(cookies, &proto.NetworkCookieParam{
			Name:   strings.TrimSpace(name),
			Value:  strings.TrimSpace(value),
			Domain: domain,
			Path:   "/",
		})
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("Cookie字符串为空")
	}
	return cookies, nil
}
