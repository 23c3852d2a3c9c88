package core

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/RecoveryAshes/jsrecon/internal/utils"
)

// ResourceGuard 批次宽度资源保护器
// 职责: 依据可用内存和CPU负载收窄单批并发的浏览上下文数
type ResourceGuard struct {
	safetyReserve int64  // 安全保留内存(字节)
	contextMemory int64  // 单浏览上下文估算内存(字节)
	cpuThreshold  int    // CPU负载阈值(%)
	totalMemory   uint64
}

// NewResourceGuard 创建资源保护器
func NewResourceGuard(config ResourceConfig) *ResourceGuard {
	vmStat, err := mem.VirtualMemory()
	var totalMem uint64
	if err != nil {
		utils.Warnf("获取系统内存失败,使用默认值: %v", err)
		totalMem = 4 * 1024 * 1024 * 1024
	} else {
		totalMem = vmStat.Total
		utils.Infof("系统总内存: %.2f GB", float64(totalMem)/(1024*1024*1024))
	}

	contextMem := int64(config.ContextMemoryMB) * 1024 * 1024
	if contextMem <= 0 {
		contextMem = 150 * 1024 * 1024
	}

	return &ResourceGuard{
		safetyReserve: int64(config.SafetyReserveMemoryMB) * 1024 * 1024,
		contextMemory: contextMem,
		cpuThreshold:  config.CPULoadThreshold,
		totalMemory:   totalMem,
	}
}

// EffectiveWidth 计算本批实际可并发的上下文数
// 资源充足时直接返回请求宽度;内存不足收窄,CPU过载降至1,且至少为1
func (g *ResourceGuard) EffectiveWidth(requested int) int {
	if requested < 1 {
		return 1
	}

	maxByMemory := requested
	if vmStat, err := mem.VirtualMemory(); err == nil {
		available := int64(vmStat.Available) - g.safetyReserve
		maxByMemory = int(available / g.contextMemory)
	}

	// 阈值>=200视为禁用CPU检查
	if g.cpuThreshold < 200 {
		if percentages, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percentages) > 0 {
			if percentages[0] > float64(g.cpuThreshold) {
				utils.Warnf("CPU负载过高(当前%.1f%%),本批并发收窄至1", percentages[0])
				return 1
			}
		}
	}

	width := requested
	if maxByMemory < width {
		width = maxByMemory
	}
	if width < requested && width >= 1 {
		utils.Warnf("资源受限,批次宽度由 %d 收窄至 %d", requested, width)
	}
	if width < 1 {
		width = 1
	}
	return width
}
