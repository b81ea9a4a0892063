// Package metastore persists per-account staking metadata (constants, nominations,
// validator lists, identities) tagged with the chain they were fetched from.
//
// Each entry carries an xxhash of its JSON payload and a version counter: an update
// whose payload hash and chain name match the stored entry is skipped, anything else
// overwrites it. Reads go through a small LRU in front of SQLite.
package metastore

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pushchain/easystake/stakingClient/db"
	stakingerrors "github.com/pushchain/easystake/stakingClient/errors"
	"github.com/pushchain/easystake/stakingClient/metrics"
	"github.com/pushchain/easystake/stakingClient/store"
)

// Key names a metadata slot of an account.
type Key string

const (
	KeyStakingConsts        Key = "stakingConsts"
	KeyNominatedValidators  Key = "nominatedValidators"
	KeyValidatorsInfo       Key = "validatorsInfo"
	KeyValidatorsIdentities Key = "validatorsIdentities"
)

// Keys lists every slot the staking session uses.
var Keys = []Key{KeyStakingConsts, KeyNominatedValidators, KeyValidatorsInfo, KeyValidatorsIdentities}

// read results recorded in metrics
const (
	readHit        = "hit"
	readMiss       = "miss"
	readOtherChain = "other_chain"
)

// Entry is the in-memory view of a stored value.
type Entry struct {
	Account   string          `json:"account"`
	Key       Key             `json:"key"`
	ChainName string          `json:"chainName"`
	MetaData  json.RawMessage `json:"metaData"`
	Hash      uint64          `json:"hash"`
	Version   uint64          `json:"version"`
}

// Store is safe for concurrent use. Writes to the same (account, key) are
// last-writer-wins.
type Store struct {
	db      *db.DB
	cache   *lru.Cache
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu sync.Mutex
}

// New wraps an open database. cacheSize bounds the number of entries kept in memory.
func New(database *db.DB, cacheSize int, m *metrics.Metrics, logger zerolog.Logger) (*Store, error) {
	if database == nil {
		return nil, errors.New("metastore: database is nil")
	}
	if err := database.Ping(); err != nil {
		return nil, errors.Wrap(err, "metastore: database unavailable")
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metadata cache")
	}
	return &Store{
		db:      database,
		cache:   cache,
		metrics: m,
		logger:  logger.With().Str("component", "metastore").Logger(),
	}, nil
}

// Hash returns the content hash used to detect unchanged payloads.
func Hash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

func cacheKey(account string, key Key) string {
	return account + "/" + string(key)
}

// Get returns the stored entry or nil when the account has none for key.
func (s *Store) Get(account string, key Key) (*Entry, error) {
	if v, ok := s.cache.Get(cacheKey(account, key)); ok {
		e := v.(Entry)
		return &e, nil
	}

	var row store.MetaEntry
	err := s.db.Client().Where(&store.MetaEntry{Account: account, Key: string(key)}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, stakingerrors.NewStakingError(stakingerrors.ErrCodeDatabase, "", "failed to read metadata", err).
			WithContext("account", account).
			WithContext("key", string(key))
	}

	e := fromRow(row)
	s.cache.Add(cacheKey(account, key), e)
	return &e, nil
}

// Load decodes the entry into out when it exists and was fetched from chainName.
// An entry from another chain reports found=false so the caller fetches fresh data.
// A payload that does not decode into out is returned as a DECODE error.
func (s *Store) Load(account string, key Key, chainName string, out any) (bool, error) {
	e, err := s.Get(account, key)
	if err != nil {
		return false, err
	}
	if e == nil {
		s.metrics.MetaRead(string(key), readMiss)
		return false, nil
	}
	if e.ChainName != chainName {
		s.metrics.MetaRead(string(key), readOtherChain)
		s.logger.Debug().
			Str("key", string(key)).
			Str("cached_chain", e.ChainName).
			Str("chain", chainName).
			Msg("ignoring metadata cached for another chain")
		return false, nil
	}
	if err := json.Unmarshal(e.MetaData, out); err != nil {
		return false, stakingerrors.NewDecodeError(chainName, "malformed cached metadata", err).
			WithContext("key", string(key))
	}
	s.metrics.MetaRead(string(key), readHit)
	return true, nil
}

// Update stores value for (account, key) unless the stored entry already holds
// the same payload for the same chain. It reports whether a write happened.
func (s *Store) Update(account string, key Key, chainName string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, stakingerrors.NewDecodeError(chainName, "failed to encode metadata", err).
			WithContext("key", string(key))
	}
	sum := Hash(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(account, key)
	if err != nil {
		return false, err
	}
	if current != nil && current.Hash == sum && current.ChainName == chainName {
		s.metrics.MetaWrite(string(key), false)
		return false, nil
	}

	var saved store.MetaEntry
	err = s.db.Client().Transaction(func(tx *gorm.DB) error {
		var row store.MetaEntry
		err := tx.Where(&store.MetaEntry{Account: account, Key: string(key)}).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = store.MetaEntry{Account: account, Key: string(key)}
		case err != nil:
			return err
		}
		row.ChainName = chainName
		row.MetaData = data
		row.Hash = int64(sum)
		row.Version++
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		saved = row
		return nil
	})
	if err != nil {
		return false, stakingerrors.NewStakingError(stakingerrors.ErrCodeDatabase, chainName, "failed to write metadata", err).
			WithContext("account", account).
			WithContext("key", string(key))
	}

	s.cache.Add(cacheKey(account, key), fromRow(saved))
	s.metrics.MetaWrite(string(key), true)
	s.logger.Debug().
		Str("key", string(key)).
		Str("chain", chainName).
		Uint64("version", saved.Version).
		Msg("metadata updated")
	return true, nil
}

// Entries lists every stored entry of account ordered by key.
func (s *Store) Entries(account string) ([]Entry, error) {
	var rows []store.MetaEntry
	err := s.db.Client().Where(&store.MetaEntry{Account: account}).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list metadata of %s", account)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

// Clear removes every entry of account.
func (s *Store) Clear(account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Client().Unscoped().Where(&store.MetaEntry{Account: account}).Delete(&store.MetaEntry{}).Error
	if err != nil {
		return errors.Wrapf(err, "failed to clear metadata of %s", account)
	}
	prefix := account + "/"
	for _, k := range s.cache.Keys() {
		if ks, ok := k.(string); ok && strings.HasPrefix(ks, prefix) {
			s.cache.Remove(k)
		}
	}
	s.logger.Info().Str("account", account).Msg("metadata cleared")
	return nil
}

func fromRow(r store.MetaEntry) Entry {
	return Entry{
		Account:   r.Account,
		Key:       Key(r.Key),
		ChainName: r.ChainName,
		MetaData:  json.RawMessage(r.MetaData),
		Hash:      uint64(r.Hash),
		Version:   r.Version,
	}
}
