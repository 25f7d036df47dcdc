package clientstore

import (
	"context"
	"sync"

	"github.com/nao1215/textgen/pkg/session"
)

// Memory はプロセス内メモリに保持するストア。プロセス終了で内容は失われる。
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemory は空のメモリストアを生成する。
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

// Open はクライアントIDに対応するストアを返す。
func (m *Memory) Open(clientID string) session.Store {
	return &memoryStore{parent: m, clientID: clientID}
}

type memoryStore struct {
	parent   *Memory
	clientID string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if err := validate(s.clientID, key); err != nil {
		return "", false, err
	}
	s.parent.mu.RLock()
	defer s.parent.mu.RUnlock()
	v, ok := s.parent.data[s.clientID][key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	if err := validate(s.clientID, key); err != nil {
		return err
	}
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	values, ok := s.parent.data[s.clientID]
	if !ok {
		values = make(map[string]string)
		s.parent.data[s.clientID] = values
	}
	values[key] = value
	return nil
}

func (s *memoryStore) Remove(_ context.Context, key string) error {
	if err := validate(s.clientID, key); err != nil {
		return err
	}
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	values, ok := s.parent.data[s.clientID]
	if !ok {
		return nil
	}
	delete(values, key)
	if len(values) == 0 {
		delete(s.parent.data, s.clientID)
	}
	return nil
}
