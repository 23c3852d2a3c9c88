package crawlers

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"

	"github.com/RecoveryAshes/jsrecon/internal/collector"
	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// StaticScanner 静态预扫描器(使用Colly)
// 职责: 不启动浏览器,直接抓取目标页面HTML并提取脚本引用
// 只能看到服务端返回的标记,运行时注入的脚本需要浏览器采集补全
type StaticScanner struct {
	headers map[string]string
	timeout time.Duration
}

// NewStaticScanner 创建静态预扫描器
func NewStaticScanner(headers map[string]string, timeout time.Duration) *StaticScanner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StaticScanner{headers: headers, timeout: timeout}
}

// Scan 抓取目标页面并返回发现的JS资源
func (s *StaticScanner) Scan(target string) ([]collector.Asset, error) {
	sink := collector.NewSink(target)

	c := colly.NewCollector()
	c.SetRequestTimeout(s.timeout)

	// 跳过证书验证,允许访问自签名或过期证书的站点
	c.WithTransport(&http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	})

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		for name, value := range s.headers {
			r.Headers.Set(name, value)
		}
	})

	// 外链脚本
	c.OnHTML("script[src]", func(e *colly.HTMLElement) {
		jsURL := e.Request.AbsoluteURL(e.Attr("src"))
		if sink.Offer(jsURL, "", collector.SourceStaticScan, true) {
			utils.Debugf("静态扫描发现JS文件: %s", jsURL)
		}
	})

	// 预加载提示
	c.OnHTML(`link[rel="preload"][as="script"]`, func(e *colly.HTMLElement) {
		sink.Offer(e.Request.AbsoluteURL(e.Attr("href")), "", collector.SourceStaticScan, true)
	})
	c.OnHTML(`link[rel="modulepreload"]`, func(e *colly.HTMLElement) {
		sink.Offer(e.Request.AbsoluteURL(e.Attr("href")), "", collector.SourceStaticScan, true)
	})

	// noscript降级标记以原始文本形式存在,需要二次解析
	c.OnHTML("noscript", func(e *colly.HTMLElement) {
		for _, ref := range scanNoscriptFragment(e.Text) {
			sink.Offer(e.Request.AbsoluteURL(ref), "", collector.SourceStaticScan, true)
		}
	})

	// 内联脚本: module导入与service worker注册字面量
	c.OnHTML("script:not([src])", func(e *colly.HTMLElement) {
		if e.Attr("type") == "module" {
			for _, imported := range collector.ScanModuleImports(e.Text) {
				sink.Offer(imported, "", collector.SourceInlineModule, false)
			}
		}
		for _, swURL := range collector.ScanServiceWorkerRegistrations(e.Text) {
			sink.Offer(swURL, "", collector.SourceServiceWorker, false)
		}
	})

	var responseErr error
	c.OnError(func(r *colly.Response, err error) {
		responseErr = fmt.Errorf("请求失败 (HTTP %d): %w", r.StatusCode, err)
	})

	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("静态扫描失败 [%s]: %w", target, err)
	}
	c.Wait()

	if responseErr != nil {
		return nil, responseErr
	}

	assets := sink.Assets()
	utils.Infof("静态扫描完成 [%s]: %d个资源", target, len(assets))
	return assets, nil
}

// scanNoscriptFragment 解析noscript片段中的脚本引用
// 片段常以实体转义形式出现(&lt;script&gt;), 解析前先还原
func scanNoscriptFragment(fragment string) []string {
	fragment = html.UnescapeString(fragment)
	if !strings.Contains(fragment, "<") {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script":
				for _, attr := range n.Attr {
					if attr.Key == "src" && attr.Val != "" {
						refs = append(refs, attr.Val)
					}
				}
			case "link":
				var href, rel, as string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "href":
						href = attr.Val
					case "rel":
						rel = attr.Val
					case "as":
						as = attr.Val
					}
				}
				if href != "" && (rel == "modulepreload" || (rel == "preload" && as == "script")) {
					refs = append(refs, href)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return refs
}
