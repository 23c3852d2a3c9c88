package main

import (
	"fmt"
	"net/url"

	"github.com/RecoveryAshes/jsrecon/internal/core"
	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// ValidateFlags 验证命令行标志组合
func ValidateFlags(targetURL, urlFile, rawCookies string, config *core.Config) error {
	if targetURL != "" && urlFile != "" {
		return fmt.Errorf("--url 和 --url-file 不能同时使用")
	}

	// 原始Cookie字符串只在单目标模式下有明确的归属域名
	if rawCookies != "" && urlFile != "" {
		return fmt.Errorf("--cookies 仅支持单目标模式,批量模式请使用 --cookie-file")
	}

	return config.Engine.Validate()
}

// NormalizeTarget 规范化目标URL,缺少协议时默认https
func NormalizeTarget(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		rawURL = "https://" + rawURL
		parsed, err = url.Parse(rawURL)
		if err != nil {
			return "", err
		}
	}

	if err := utils.ValidateURL(parsed.String()); err != nil {
		return "", err
	}
	return parsed.String(), nil
}
