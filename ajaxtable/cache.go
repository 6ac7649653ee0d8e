package ajaxtable

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/ajaxtable/go_ajaxtable/logger"
	"github.com/recoilme/pudge"
)

//Store is the key-value capability backing the result cache. Implementations
//must be safe for concurrent use; entries live until the store evicts them or
//ClearTable is called, there is no ttl.
type Store interface {
	Get(key string, to *PageResult) (bool, error)
	Set(key string, value PageResult) error
	Clear(prefix string) error
}

//GetOrCompute serves the cached result for key when caching is enabled, else
//runs compute and stores the outcome. Store errors are treated as cache
//misses, never as request failures.
func GetOrCompute(store Store, enabled bool, table string, params Params, compute func() (PageResult, error)) (PageResult, error) {
	if !enabled || store == nil {
		return compute()
	}
	key := params.CacheKey(table)
	var cached PageResult
	hit, err := store.Get(key, &cached)
	if err != nil {
		logger.Log.Warning("Cache read failed: ", key, " error: ", err)
	} else if hit {
		// the stored entry may come from a request with another draw
		cached.Draw = params.Draw
		return cached, nil
	}

	result, err := compute()
	if err != nil {
		return PageResult{}, err
	}
	if err := store.Set(key, result); err != nil {
		logger.Log.Warning("Cache write failed: ", key, " error: ", err)
	}
	return result, nil
}

//ClearTable drops every cached page of one table.
func ClearTable(store Store, table string) error {
	if store == nil {
		return nil
	}
	return store.Clear("ajaxtable_" + table + "_")
}

//MemoryStore keeps marshaled results in a plain map. The marshal roundtrip
//makes cached entries immutable against later mutation of the returned maps.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte, 20)}
}

func (s *MemoryStore) Get(key string, to *PageResult) (bool, error) {
	s.mu.RLock()
	data, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, to); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Set(key string, value PageResult) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(prefix string) error {
	s.mu.Lock()
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
		}
	}
	s.mu.Unlock()
	return nil
}

//PudgeStore persists results in a pudge db so the cache survives restarts.
type PudgeStore struct {
	db *pudge.Db
}

func NewPudgeStore(file string) (*PudgeStore, error) {
	db, err := pudge.Open(file, &pudge.Config{SyncInterval: 1})
	if err != nil {
		return nil, err
	}
	return &PudgeStore{db: db}, nil
}

func (s *PudgeStore) Get(key string, to *PageResult) (bool, error) {
	has, err := s.db.Has(key)
	if err != nil {
		return false, err
	}
	if !has {
		return false, nil
	}
	var data []byte
	if err := s.db.Get(key, &data); err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, to); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PudgeStore) Set(key string, value PageResult) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Set(key, data)
}

func (s *PudgeStore) Clear(prefix string) error {
	keys, err := s.db.Keys(nil, 0, 0, true)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if strings.HasPrefix(string(key), prefix) {
			if err := s.db.Delete(string(key)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *PudgeStore) Close() error {
	return s.db.Close()
}
