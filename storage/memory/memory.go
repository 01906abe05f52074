// Package memory is a Store kept in process memory.
package memory

import (
	"context"
	"sync"

	"xdao.co/ledger/model"
	"xdao.co/ledger/storage"
)

type Store struct {
	mu       sync.RWMutex
	accounts map[model.EntityID]storage.Account
	files    map[model.EntityID]storage.File
	receipts map[string]model.Receipt
	next     uint64
}

func New() *Store {
	return &Store{
		accounts: map[model.EntityID]storage.Account{},
		files:    map[model.EntityID]storage.File{},
		receipts: map[string]model.Receipt{},
	}
}

func (s *Store) PutAccount(_ context.Context, a storage.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Key = append([]byte(nil), a.Key...)
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) GetAccount(_ context.Context, id model.EntityID) (storage.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return storage.Account{}, storage.ErrNotFound
	}
	a.Key = append([]byte(nil), a.Key...)
	return a, nil
}

func (s *Store) GetFile(_ context.Context, id model.EntityID) (storage.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return storage.File{}, storage.ErrNotFound
	}
	return cloneFile(f), nil
}

func (s *Store) PutReceipt(_ context.Context, txID string, r model.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.receipts[txID]; ok && old.IsTerminal() {
		return storage.ErrExists
	}
	s.receipts[txID] = cloneReceipt(r)
	return nil
}

func (s *Store) GetReceipt(_ context.Context, txID string) (model.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[txID]
	if !ok {
		return model.Receipt{}, storage.ErrNotFound
	}
	return cloneReceipt(r), nil
}

func (s *Store) Settle(_ context.Context, st storage.Settlement) (model.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.receipts[st.TransactionID]; ok && old.IsTerminal() {
		return model.Receipt{}, storage.ErrExists
	}
	payer, ok := s.accounts[st.Payer]
	if !ok {
		return model.Receipt{}, storage.ErrNotFound
	}
	r := cloneReceipt(st.Receipt)
	if st.File != nil {
		f := cloneFile(*st.File)
		f.ID.Num = s.next
		if f.ID.Num < st.EntityFloor {
			f.ID.Num = st.EntityFloor
		}
		s.next = f.ID.Num + 1
		s.files[f.ID] = f
		if r.Status == model.ReceiptSuccess {
			id := f.ID
			r.ResourceID = &id
		}
	}
	payer.Balance -= st.Fee
	s.accounts[st.Payer] = payer
	s.receipts[st.TransactionID] = r
	return cloneReceipt(r), nil
}

func (s *Store) Close() error { return nil }

func cloneFile(f storage.File) storage.File {
	keys := make([][]byte, len(f.Keys))
	for i, k := range f.Keys {
		keys[i] = append([]byte(nil), k...)
	}
	f.Keys = keys
	f.Contents = append([]byte(nil), f.Contents...)
	return f
}

func cloneReceipt(r model.Receipt) model.Receipt {
	if r.ResourceID != nil {
		id := *r.ResourceID
		r.ResourceID = &id
	}
	return r
}
