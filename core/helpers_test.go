package core

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"universe-gateway/models"
)

// fakeGenerator 返回预设文本或错误；block 非 nil 时等待放行
type fakeGenerator struct {
	mu              sync.Mutex
	text            string
	err             error
	calls           int
	lastInstruction string
	lastSchema      map[string]any
	lastModel       string
	block           chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, instruction string, schema map[string]any, model string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastInstruction = instruction
	f.lastSchema = schema
	f.lastModel = model
	text, err, block := f.text, f.err, f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memoryRecorder 收集遥测条目
type memoryRecorder struct {
	mu      sync.Mutex
	entries []*models.GenerationLog
}

func (r *memoryRecorder) Record(e *models.GenerationLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *memoryRecorder) Last() *models.GenerationLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	return r.entries[len(r.entries)-1]
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

const validFeedJSON = `[
	{"title":"Neon Tides","description":"Surf glowing waves together","type":"SOCIAL_EVENT","creator":"WaveRider","color":"#0ea5e9"},
	{"title":"Echo Vault","description":"A capsule of your first VR concert","type":"MEMORY_CAPSULE","creator":"Archivist","color":"#a855f7"},
	{"title":"Quantum Maze","description":"Race friends through shifting corridors","type":"MINI_GAME","creator":"PuzzleSmith","color":"#f59e0b"}
]`
