// Package prefstore is the local durable store for non-financial preference
// data: address book entries and UI preferences. Nothing financial lives
// here. Balances, trades and offers are a volatile cache of remote truth
// and are always re-fetched after a restart.
//
// Writes are debounced (~1 second) before hitting Badger so bursts of edits
// do not amplify into disk churn; Close flushes whatever is pending.
package prefstore

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/peerdex/gop2p/internal/common"
)

var log = logrus.WithField("component", "prefstore")

const (
	addressBookKey = "addressbook"
	prefKeyPrefix  = "pref:"

	flushCheck    = 250 * time.Millisecond
	writeDebounce = 1 * time.Second
)

// AddressBookEntry is one saved counterparty or withdrawal address.
type AddressBookEntry struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Address     string `json:"address"`
	AssetSymbol string `json:"assetSymbol"`
	Network     string `json:"network"`
}

type Store struct {
	db *badger.DB

	mu      sync.Mutex
	pending map[string][]byte
	deb     *common.Debouncer

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open opens (or creates) the store at dir and starts the flush loop.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "data/prefs"
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:      db,
		pending: make(map[string][]byte),
		deb:     common.NewDebouncer(writeDebounce),
		stopCh:  make(chan struct{}),
	}
	s.wg.Add(1)
	go s.flushLoop()
	return s, nil
}

func (s *Store) flushLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(flushCheck)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			if s.deb.Ready(now) {
				s.Flush()
			}
		}
	}
}

// set queues one key for the debounced flush.
func (s *Store) set(key string, value []byte) {
	s.mu.Lock()
	s.pending[key] = value
	s.mu.Unlock()
	s.deb.Mark(time.Now())
}

// Flush writes all pending keys in one transaction. Called by the flush
// loop once writes go quiet, and unconditionally on Close.
func (s *Store) Flush() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make(map[string][]byte)
	s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		for k, v := range batch {
			if err := txn.Set([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("preference flush failed, re-queueing")
		s.mu.Lock()
		for k, v := range batch {
			if _, overwritten := s.pending[k]; !overwritten {
				s.pending[k] = v
			}
		}
		s.mu.Unlock()
	}
}

func (s *Store) get(key string) ([]byte, bool) {
	// Pending writes shadow the disk copy.
	s.mu.Lock()
	if v, ok := s.pending[key]; ok {
		s.mu.Unlock()
		return v, true
	}
	s.mu.Unlock()

	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false
	}
	return out, true
}

// SaveAddressBook replaces the stored address book (debounced).
func (s *Store) SaveAddressBook(entries []AddressBookEntry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	s.set(addressBookKey, b)
	return nil
}

// AddressBook returns the stored address book, or an empty list.
func (s *Store) AddressBook() []AddressBookEntry {
	b, ok := s.get(addressBookKey)
	if !ok {
		return nil
	}
	var entries []AddressBookEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		log.WithError(err).Warn("corrupt address book entry ignored")
		return nil
	}
	return entries
}

// SetPreference stores one string preference (debounced).
func (s *Store) SetPreference(key, value string) {
	s.set(prefKeyPrefix+key, []byte(value))
}

// Preference reads one string preference.
func (s *Store) Preference(key string) (string, bool) {
	b, ok := s.get(prefKeyPrefix + key)
	if !ok {
		return "", false
	}
	return string(b), true
}

// Close flushes pending writes and closes the database. Idempotent.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.Flush()
		err = s.db.Close()
	})
	return err
}
