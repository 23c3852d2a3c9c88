package collector

import (
	"time"

	"github.com/go-rod/rod"

	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// interactiveSelectors 交互触发用的选择器,按固定顺序执行
// 覆盖按钮、链接、常见点击处理标记与懒加载标记
var interactiveSelectors = []string{
	"button",
	"a[href]",
	"[onclick]",
	"[data-toggle]",
	"[data-load]",
	"[data-lazy]",
	".lazy",
	".lazyload",
}

const (
	// maxElementsPerSelector 每个选择器最多处理的元素数
	maxElementsPerSelector = 10

	// hoverTimeout 单次hover的超时
	hoverTimeout = 2 * time.Second
)

// InteractionTrigger 交互触发引擎
// 职责: 对页面内交互元素模拟hover,诱发绑定在hover/focus上的懒加载请求
// 单个元素失败(不可见、已脱离文档)一律忽略,引擎永远运行到结束,不会中止采集
type InteractionTrigger struct {
	page *rod.Page
}

// NewInteractionTrigger 创建交互触发引擎
func NewInteractionTrigger(page *rod.Page) *InteractionTrigger {
	return &InteractionTrigger{page: page}
}

// Run 依序遍历选择器,对每个选择器的前N个匹配元素模拟hover
func (it *InteractionTrigger) Run() {
	for _, selector := range interactiveSelectors {
		elements, err := it.page.Timeout(hoverTimeout).Elements(selector)
		if err != nil {
			utils.Debugf("查询选择器失败 [%s]: %v", selector, err)
			continue
		}

		count := len(elements)
		if count > maxElementsPerSelector {
			count = maxElementsPerSelector
		}

		for i := 0; i < count; i++ {
			if err := elements[i].Timeout(hoverTimeout).Hover(); err != nil {
				// 元素不可见或已脱离文档,忽略
				continue
			}
		}
	}
}

// scrollPage 以半视口步长滚动整个文档高度,触发可视性懒加载
// 每步之间插入固定延迟,结束后回到页面顶部
func scrollPage(page *rod.Page, stepDelay time.Duration) {
	result, err := page.Evaluate(rod.Eval(`() => {
		return {
			height: document.documentElement ? document.documentElement.scrollHeight : 0,
			viewport: window.innerHeight || 0
		};
	}`))
	if err != nil {
		utils.Debugf("获取页面高度失败: %v", err)
		return
	}

	height := result.Value.Get("height").Int()
	viewport := result.Value.Get("viewport").Int()
	if height <= 0 || viewport <= 0 {
		return
	}

	step := viewport / 2
	if step < 1 {
		step = 1
	}

	for y := 0; y < height; y += step {
		if _, err := page.Evaluate(rod.Eval(`(y) => window.scrollTo(0, y)`, y)); err != nil {
			utils.Debugf("滚动页面失败: %v", err)
			return
		}
		time.Sleep(stepDelay)
	}

	// 回到顶部
	if _, err := page.Evaluate(rod.Eval(`() => window.scrollTo(0, 0)`)); err != nil {
		utils.Debugf("回滚页面顶部失败: %v", err)
	}
}
