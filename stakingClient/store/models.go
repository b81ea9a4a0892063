// Package store contains GORM-backed SQLite models used by the staking client.
//
// Database Structure (database file: metadata.db):
//
//	<node_home>/
//	└── data/
//	    └── metadata.db
//	        └── meta_entries
package store

import (
	"gorm.io/gorm"
)

// MetaEntry is one persisted metadata value of an account, e.g. the staking
// constants or the validator list last fetched for that account's chain.
// (Account, Key) is unique; writes are last-writer-wins.
type MetaEntry struct {
	gorm.Model
	Account   string `gorm:"uniqueIndex:idx_account_key;not null"` // SS58 address owning the entry
	Key       string `gorm:"uniqueIndex:idx_account_key;not null"` // stakingConsts, nominatedValidators, validatorsInfo, validatorsIdentities
	ChainName string `gorm:"index;not null"`                       // Chain the value was fetched from
	MetaData  []byte // Raw JSON-encoded value
	Hash      int64  // xxhash of MetaData stored as int64 (SQLite has no unsigned 64-bit), compared instead of the payload
	Version   uint64 // Incremented on every content or chain change
}
