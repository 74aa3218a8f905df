package core

import (
	"sync"
	"time"
)

// KeyStatusType 凭证状态
type KeyStatusType int

const (
	KeyStatusAvailable KeyStatusType = iota
	KeyStatusCooldown
	KeyStatusDead
)

func (s KeyStatusType) String() string {
	switch s {
	case KeyStatusCooldown:
		return "cooldown"
	case KeyStatusDead:
		return "dead"
	default:
		return "available"
	}
}

// KeyState 凭证的状态信息
type KeyState struct {
	Status     KeyStatusType
	UnlockTime time.Time
}

// KeyStateManager 凭证状态管理器 (线程安全)
// 429 之后进入冷却，401/403 之后标记失效；冷却期内的请求直接走兜底内容，不发起网络调用
type KeyStateManager struct {
	states map[string]KeyState
	mutex  sync.RWMutex
	now    func() time.Time
}

func NewKeyStateManager() *KeyStateManager {
	return &KeyStateManager{
		states: make(map[string]KeyState),
		now:    time.Now,
	}
}

// MarkCooldown 标记凭证进入冷却
func (m *KeyStateManager) MarkCooldown(key string, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	// 已失效的凭证不会因为冷却而复活
	if st, ok := m.states[key]; ok && st.Status == KeyStatusDead {
		return
	}
	m.states[key] = KeyState{
		Status:     KeyStatusCooldown,
		UnlockTime: m.now().Add(duration),
	}
}

// MarkDead 标记凭证失效，直到进程重启或 MarkAvailable
func (m *KeyStateManager) MarkDead(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.states[key] = KeyState{Status: KeyStatusDead}
}

// MarkAvailable 清除凭证状态
func (m *KeyStateManager) MarkAvailable(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.states, key)
}

// Status 返回凭证当前状态，过期的冷却视为可用
func (m *KeyStateManager) Status(key string) KeyStatusType {
	m.mutex.RLock()
	state, exists := m.states[key]
	m.mutex.RUnlock()

	if !exists {
		return KeyStatusAvailable
	}
	if state.Status == KeyStatusCooldown && !m.now().Before(state.UnlockTime) {
		// 冷却结束，懒惰清理
		m.mutex.Lock()
		if cur, ok := m.states[key]; ok && cur == state {
			delete(m.states, key)
		}
		m.mutex.Unlock()
		return KeyStatusAvailable
	}
	return state.Status
}

// IsAvailable 检查凭证是否可用
func (m *KeyStateManager) IsAvailable(key string) bool {
	return m.Status(key) == KeyStatusAvailable
}
