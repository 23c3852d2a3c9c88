package core

import (
	"crypto/sha256"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/schollz/progressbar/v3"

	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// fetchScript 在页面上下文内抓取脚本内容并编码为base64
// 借用页面自身的Cookie与请求头,绕过独立HTTP客户端缺少会话的问题
const fetchScript = `async (url) => {
	const resp = await fetch(url, { credentials: "include" });
	if (!resp.ok) {
		throw new Error("HTTP " + resp.status);
	}
	const buf = await resp.arrayBuffer();
	let binary = "";
	const bytes = new Uint8Array(buf);
	for (let i = 0; i < bytes.length; i++) {
		binary += String.fromCharCode(bytes[i]);
	}
	return btoa(binary);
}`

// Downloader JS文件下载器
// 按内容SHA256去重,同一内容的多个URL只保留一份文件
type Downloader struct {
	downloadDir string
	dedupe      bool
	client      *http.Client

	mu     sync.Mutex
	hashes map[string]string // 内容哈希 -> 已保存文件名
	stats  DownloadStats
}

// DownloadStats 下载统计
type DownloadStats struct {
	Downloaded int
	Duplicates int
	Failed     int
	TotalBytes int64
}

// DownloadError 单个URL的下载失败记录
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("下载失败 [%s]: %v", e.URL, e.Err)
}

// NewDownloader 创建下载器
func NewDownloader(downloadDir string, dedupe bool) *Downloader {
	return &Downloader{
		downloadDir: downloadDir,
		dedupe:      dedupe,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
				},
			},
			// 最多跟随一次重定向,避免被引到无关页面
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > 1 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		hashes: make(map[string]string),
	}
}

// Stats 返回下载统计快照
func (d *Downloader) Stats() DownloadStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// DownloadAll 下载一组URL,逐个处理并收集失败记录
// page可为nil,此时全部走独立HTTP客户端
func (d *Downloader) DownloadAll(page *rod.Page, urls []string, headers map[string]string) []*DownloadError {
	if len(urls) == 0 {
		return nil
	}
	if err := os.MkdirAll(d.downloadDir, 0755); err != nil {
		return []*DownloadError{{URL: d.downloadDir, Err: err}}
	}

	bar := progressbar.NewOptions(len(urls),
		progressbar.OptionSetDescription("📥 下载JS文件"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var failures []*DownloadError
	for _, fileURL := range urls {
		if err := d.downloadOne(page, fileURL, headers); err != nil {
			utils.Warnf("下载失败 [%s]: %v", fileURL, err)
			d.mu.Lock()
			d.stats.Failed++
			d.mu.Unlock()
			failures = append(failures, &DownloadError{URL: fileURL, Err: err})
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	stats := d.Stats()
	utils.Infof("下载完成: 成功 %d, 重复 %d, 失败 %d, 共 %d bytes",
		stats.Downloaded, stats.Duplicates, stats.Failed, stats.TotalBytes)
	return failures
}

func (d *Downloader) downloadOne(page *rod.Page, fileURL string, headers map[string]string) error {
	var content []byte
	var err error

	if page != nil {
		content, err = d.fetchViaPage(page, fileURL)
		if err != nil {
			utils.Debugf("页面内抓取失败,回退到独立请求 [%s]: %v", fileURL, err)
			content, err = d.fetchViaHTTP(fileURL, headers)
		}
	} else {
		content, err = d.fetchViaHTTP(fileURL, headers)
	}
	if err != nil {
		return err
	}

	return d.save(fileURL, content)
}

// fetchViaPage 通过页面上下文抓取,自动携带会话Cookie
func (d *Downloader) fetchViaPage(page *rod.Page, fileURL string) ([]byte, error) {
	result, err := page.Timeout(30 * time.Second).Evaluate(rod.Eval(fetchScript, fileURL).ByPromise())
	if err != nil {
		return nil, err
	}
	content, err := base64.StdEncoding.DecodeString(result.Value.Str())
	if err != nil {
		return nil, fmt.Errorf("base64解码失败: %w", err)
	}
	return content, nil
}

// fetchViaHTTP 独立HTTP请求抓取,手动处理压缩编码
func (d *Downloader) fetchViaHTTP(fileURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	// Go的Transport只在自动模式解gzip,手动请求需要自行解码
	return utils.DecodeBody(resp.Header.Get("Content-Encoding"), body)
}

// save 落盘后按内容哈希去重
// 先写入再比对哈希,命中重复则删除刚写入的文件,磁盘上每份内容只保留一份
func (d *Downloader) save(fileURL string, content []byte) error {
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	d.mu.Lock()
	defer d.mu.Unlock()

	name := utils.SanitizeFilename(fileURL)
	path := filepath.Join(d.downloadDir, name)

	// 同名不同内容时加哈希前缀区分
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(d.downloadDir, hash[:8]+"_"+name)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}

	if d.dedupe {
		if existing, ok := d.hashes[hash]; ok {
			utils.Debugf("发现重复文件(哈希相同): %s (与 %s 相同)", fileURL, existing)
			if err := os.Remove(path); err != nil {
				utils.Warnf("删除重复文件失败: %s: %v", path, err)
			}
			d.stats.Duplicates++
			return nil
		}
	}

	d.hashes[hash] = filepath.Base(path)
	d.stats.Downloaded++
	d.stats.TotalBytes += int64(len(content))
	utils.Debugf("📥 下载成功: %s (%d bytes) - %s", filepath.Base(path), len(content), fileURL)
	return nil
}
