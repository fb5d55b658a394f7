// Package state persists reward pool and custody snapshots into the
// underlying key-value store so the service survives restarts.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"stakevault/custody"
	"stakevault/rewards"
	"stakevault/storage"
)

const (
	poolPrefix     = "rewards/pool/"
	multiPrefix    = "rewards/multipool/"
	discretePrefix = "rewards/discrete/"
	vaultPrefix    = "custody/vault/"
)

// Keeper reads and writes engine snapshots through a storage.Database.
type Keeper struct {
	db storage.Database
}

// NewKeeper wraps the given database.
func NewKeeper(db storage.Database) *Keeper {
	return &Keeper{db: db}
}

func (k *Keeper) put(key string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return k.db.Put([]byte(key), encoded)
}

func (k *Keeper) get(key string, v any) (bool, error) {
	raw, err := k.db.Get([]byte(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

// SavePool persists a single-asset pool snapshot under the given name.
func (k *Keeper) SavePool(name string, snap rewards.PoolSnapshot) error {
	return k.put(poolPrefix+name, snap)
}

// LoadPool fetches a single-asset pool snapshot. The second return reports
// whether a snapshot existed.
func (k *Keeper) LoadPool(name string) (rewards.PoolSnapshot, bool, error) {
	var snap rewards.PoolSnapshot
	ok, err := k.get(poolPrefix+name, &snap)
	return snap, ok, err
}

// SaveMultiPool persists a multi-asset pool snapshot under the given name.
func (k *Keeper) SaveMultiPool(name string, snap rewards.MultiPoolSnapshot) error {
	return k.put(multiPrefix+name, snap)
}

// LoadMultiPool fetches a multi-asset pool snapshot.
func (k *Keeper) LoadMultiPool(name string) (rewards.MultiPoolSnapshot, bool, error) {
	var snap rewards.MultiPoolSnapshot
	ok, err := k.get(multiPrefix+name, &snap)
	return snap, ok, err
}

// SaveDiscretePool persists a discrete pool snapshot under the given name.
func (k *Keeper) SaveDiscretePool(name string, snap rewards.DiscretePoolSnapshot) error {
	return k.put(discretePrefix+name, snap)
}

// LoadDiscretePool fetches a discrete pool snapshot.
func (k *Keeper) LoadDiscretePool(name string) (rewards.DiscretePoolSnapshot, bool, error) {
	var snap rewards.DiscretePoolSnapshot
	ok, err := k.get(discretePrefix+name, &snap)
	return snap, ok, err
}

type vaultBalance struct {
	Holder common.Address `json:"holder"`
	Amount *big.Int       `json:"amount"`
}

type vaultSnapshot struct {
	Reserve  *big.Int       `json:"reserve"`
	Balances []vaultBalance `json:"balances"`
}

// SaveVault persists a custody ledger's reserve and external balances.
func (k *Keeper) SaveVault(ledger *custody.Ledger) error {
	balances := ledger.Balances()
	entries := make([]vaultBalance, 0, len(balances))
	for holder, amount := range balances {
		entries = append(entries, vaultBalance{Holder: holder, Amount: amount})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Holder.Hex() < entries[j].Holder.Hex()
	})
	snap := vaultSnapshot{Reserve: ledger.Reserve(), Balances: entries}
	return k.put(vaultPrefix+ledger.Asset().Hex(), snap)
}

// LoadVault restores a custody ledger's reserve and balances in place. A
// missing snapshot leaves the ledger untouched.
func (k *Keeper) LoadVault(ledger *custody.Ledger) (bool, error) {
	var snap vaultSnapshot
	ok, err := k.get(vaultPrefix+ledger.Asset().Hex(), &snap)
	if err != nil || !ok {
		return ok, err
	}
	ledger.SetReserve(snap.Reserve)
	for _, entry := range snap.Balances {
		ledger.SetBalance(entry.Holder, entry.Amount)
	}
	return true, nil
}
