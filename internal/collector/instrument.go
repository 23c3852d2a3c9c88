package collector

import (
	"encoding/json"
	"fmt"
)

// reportBindingName 页面内可调用的宿主回调名称
const reportBindingName = "__jsreconReport"

// instrumentPayload 每个浏览上下文注入一次的固定instrumentation载荷
// 契约: 构造时拦截script元素的src赋值(属性与property两条路径)并通过
// 宿主回调上报,同时挂载MutationObserver捕获后插入的<script src>节点
// 所有hook状态均限定在单个上下文内,绝不跨任务共享
const instrumentPayload = `(() => {
	if (window.__jsreconHooked) {
		return;
	}
	window.__jsreconHooked = true;

	const report = (url, kind) => {
		try {
			if (url && window.` + reportBindingName + `) {
				window.` + reportBindingName + `({ url: String(url), kind: kind });
			}
		} catch (e) {
			// ignore
		}
	};

	// 拦截元素创建路径: script元素的src property赋值在挂载到DOM前即上报
	try {
		const srcDesc = Object.getOwnPropertyDescriptor(HTMLScriptElement.prototype, 'src');
		const origCreate = Document.prototype.createElement;
		Document.prototype.createElement = function () {
			const el = origCreate.apply(this, arguments);
			if (arguments[0] && String(arguments[0]).toLowerCase() === 'script' && srcDesc) {
				try {
					Object.defineProperty(el, 'src', {
						configurable: true,
						get() { return srcDesc.get.call(this); },
						set(v) { report(v, 'dynamic-creation'); srcDesc.set.call(this, v); }
					});
				} catch (e) {
					// ignore
				}
			}
			return el;
		};
	} catch (e) {
		// ignore
	}

	// 拦截属性设置路径: setAttribute('src', ...)
	try {
		const origSetAttr = Element.prototype.setAttribute;
		Element.prototype.setAttribute = function (name, value) {
			if (this.tagName === 'SCRIPT' && String(name).toLowerCase() === 'src') {
				report(value, 'dynamic-creation');
			}
			return origSetAttr.call(this, name, value);
		};
	} catch (e) {
		// ignore
	}

	// MutationObserver: 覆盖初始加载后插入DOM的<script src>
	const watch = () => {
		try {
			const mo = new MutationObserver((muts) => {
				for (const m of muts) {
					for (const n of m.addedNodes) {
						if (n && n.tagName === 'SCRIPT' && n.src) {
							report(n.src, 'dom-mutation');
						}
					}
				}
			});
			mo.observe(document.documentElement || document, { childList: true, subtree: true });
		} catch (e) {
			// ignore
		}
	};
	if (document.documentElement) {
		watch();
	} else {
		document.addEventListener('DOMContentLoaded', watch, { once: true });
	}
})();`

// localStorageSeedPayload 生成导航前注入localStorage种子数据的脚本
func localStorageSeedPayload(items map[string]string) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("序列化localStorage种子数据失败: %w", err)
	}
	return fmt.Sprintf(`(() => {
	try {
		const seed = %s;
		for (const k in seed) {
			localStorage.setItem(k, seed[k]);
		}
	} catch (e) {
		// ignore
	}
})();`, string(encoded)), nil
}
