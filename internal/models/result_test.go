package models

import (
	"testing"
)

// TestEngineConfigValidate 引擎配置校验
func TestEngineConfigValidate(t *testing.T) {
	valid := EngineConfig{
		Threads:        2,
		NavTimeoutSec:  30,
		SettleDelaySec: 2,
		FinalWaitSec:   3,
		Mode:           ModeBrowser,
	}

	tests := []struct {
		name        string
		mutate      func(c *EngineConfig)
		expectError bool
	}{
		{"默认合法配置", func(c *EngineConfig) {}, false},
		{"并发为0", func(c *EngineConfig) { c.Threads = 0 }, true},
		{"并发超上限", func(c *EngineConfig) { c.Threads = 51 }, true},
		{"超时为0", func(c *EngineConfig) { c.NavTimeoutSec = 0 }, true},
		{"等待为负", func(c *EngineConfig) { c.SettleDelaySec = -1 }, true},
		{"收尾超上限", func(c *EngineConfig) { c.FinalWaitSec = 200 }, true},
		{"无效模式", func(c *EngineConfig) { c.Mode = "turbo" }, true},
		{"static模式合法", func(c *EngineConfig) { c.Mode = ModeStatic }, false},
		{"all模式合法", func(c *EngineConfig) { c.Mode = ModeAll }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() 错误=%v, 期望错误=%v", err, tt.expectError)
			}
		})
	}
}

// TestCollectionResult 结果对象基本行为
func TestCollectionResult(t *testing.T) {
	r := NewCollectionResult("https://app.example.com:8443/page")

	if r.RunID == "" {
		t.Error("RunID不应为空")
	}
	if r.Count() != 0 {
		t.Errorf("新结果应为空, 实际%d条", r.Count())
	}
	if h := r.Hostname(); h != "app.example.com" {
		t.Errorf("Hostname() = %s, 期望 app.example.com", h)
	}

	r.URLs = []string{"https://app.example.com/a.js"}
	data, err := r.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON失败: %v", err)
	}
	if len(data) == 0 {
		t.Error("JSON输出为空")
	}
}
