package collector

import (
	"fmt"
	"sync"
)

// State 单目标采集生命周期状态
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateIntercepting
	StateNavigating
	StateExtracting
	StateInteracting
	StateFinalizing
	StateDone
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateIntercepting:
		return "intercepting"
	case StateNavigating:
		return "navigating"
	case StateExtracting:
		return "extracting"
	case StateInteracting:
		return "interacting"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StateMachine 显式状态机
// 职责: 约束采集阶段只能顺序推进,done可从任意状态到达(超时降级路径)
type StateMachine struct {
	mu      sync.RWMutex
	current State
}

// NewStateMachine 创建处于idle的状态机
func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateIdle}
}

// Current 返回当前状态
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Advance 推进到下一状态
// 仅允许顺序+1推进;done是终态,可从任意非done状态直达
func (sm *StateMachine) Advance(next State) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.current == StateDone {
		return fmt.Errorf("状态机已终结,无法从done推进到%s", next)
	}
	if next == StateDone {
		sm.current = StateDone
		return nil
	}
	if next != sm.current+1 {
		return fmt.Errorf("非法状态转移: %s -> %s", sm.current, next)
	}
	sm.current = next
	return nil
}

// Finish 强制进入done终态
// 无论当前处于哪个阶段都会成功,保证done总是可达
func (sm *StateMachine) Finish() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.current = StateDone
}
