package tableclient

import "github.com/recoilme/pudge"

//PudgeStore persists view state in a pudge db so it survives process
//restarts, the way a browser session store would.
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

func (s *PudgeStore) Get(key string) ([]byte, bool) {
	var data []byte
	if err := s.db.Get(key, &data); err != nil {
		return nil, false
	}
	return data, true
}

func (s *PudgeStore) Set(key string, value []byte) {
	s.db.Set(key, value)
}

func (s *PudgeStore) Delete(key string) {
	s.db.Delete(key)
}

func (s *PudgeStore) Close() error {
	return s.db.Close()
}
