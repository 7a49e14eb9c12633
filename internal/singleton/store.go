package singleton

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dlsingleton/wallet/internal/storage"
	"github.com/dlsingleton/wallet/pkg/types"
)

// Store persists SingletonRecords and LauncherInfo, and maintains the
// secondary root index GetSingletonsByRoot reads from.
type Store interface {
	PutRecord(r SingletonRecord) error
	GetRecord(coinID types.CoinID) (*SingletonRecord, error)
	DeleteRecord(coinID types.CoinID) error

	// GetLatest returns the highest-generation record for a launcher, or
	// nil if the launcher isn't tracked at all.
	GetLatest(launcherID types.LauncherID) (*SingletonRecord, error)

	// GetHistory returns records for generations [fromGen, toGen], sorted
	// ascending by generation. toGen < 0 means "through the latest".
	GetHistory(launcherID types.LauncherID, fromGen uint32, toGen int64) ([]SingletonRecord, error)

	// GetUnconfirmed returns all unconfirmed records for a launcher,
	// sorted ascending by generation.
	GetUnconfirmed(launcherID types.LauncherID) ([]SingletonRecord, error)

	// GetByRoot looks up every tracked record carrying the given root via
	// the secondary root index.
	GetByRoot(root types.Root) ([]SingletonRecord, error)

	PutLauncherInfo(info LauncherInfo) error
	GetLauncherInfo(launcherID types.LauncherID) (*LauncherInfo, error)
	DeleteLauncherInfo(launcherID types.LauncherID) error

	// ListLaunchers returns every tracked launcher ID.
	ListLaunchers() ([]types.LauncherID, error)

	// NewBatch returns a batch scoped to this store's own key prefixes,
	// letting the fork rebaser delete several stale records atomically.
	NewBatch() storage.Batch
}

const (
	prefixRecord    = "rec/"
	prefixGen       = "gen/"
	prefixLauncher  = "lau/"
	prefixRootIndex = "root/"
)

type store struct {
	db storage.DB
}

// NewStore wraps a storage.DB as a singleton Store.
func NewStore(db storage.DB) Store {
	return &store{db: db}
}

// genKey is suffixed by coinID, not just (launcherID, generation): two
// competing records can share a generation while a fork is unresolved
// (spec'd in PotentiallyHandleResubmit's reconciliation scenario), and a
// (launcherID, generation)-only key would let one PutRecord silently evict
// the other from every generation-index scan.
func genKey(launcherID types.LauncherID, generation uint32, coinID types.CoinID) []byte {
	key := make([]byte, len(prefixGen)+types.HashSize+4+types.HashSize)
	n := copy(key, prefixGen)
	n += copy(key[n:], launcherID[:])
	binary.BigEndian.PutUint32(key[n:], generation)
	n += 4
	copy(key[n:], coinID[:])
	return key
}

// genPrefix returns the scan prefix covering every generation-index entry
// for a launcher, across every generation and every coexisting coinID.
func genPrefix(launcherID types.LauncherID) []byte {
	return append([]byte(prefixGen), launcherID[:]...)
}

func recordKey(coinID types.CoinID) []byte {
	return append([]byte(prefixRecord), coinID[:]...)
}

func launcherKey(launcherID types.LauncherID) []byte {
	return append([]byte(prefixLauncher), launcherID[:]...)
}

func rootIndexKey(root types.Root, coinID types.CoinID) []byte {
	key := make([]byte, len(prefixRootIndex)+types.HashSize+types.HashSize)
	n := copy(key, prefixRootIndex)
	n += copy(key[n:], root[:])
	copy(key[n:], coinID[:])
	return key
}

func (s *store) PutRecord(r SingletonRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal singleton record: %w", err)
	}
	if err := s.db.Put(recordKey(r.CoinID), data); err != nil {
		return fmt.Errorf("put singleton record: %w", err)
	}
	if err := s.db.Put(genKey(r.LauncherID, r.Generation, r.CoinID), r.CoinID[:]); err != nil {
		return fmt.Errorf("put generation index: %w", err)
	}
	if err := s.db.Put(rootIndexKey(r.Root, r.CoinID), []byte{1}); err != nil {
		return fmt.Errorf("put root index: %w", err)
	}
	return nil
}

func (s *store) GetRecord(coinID types.CoinID) (*SingletonRecord, error) {
	data, err := s.db.Get(recordKey(coinID))
	if err != nil {
		return nil, nil
	}
	var r SingletonRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal singleton record: %w", err)
	}
	return &r, nil
}

func (s *store) DeleteRecord(coinID types.CoinID) error {
	r, err := s.GetRecord(coinID)
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	if err := s.db.Delete(recordKey(coinID)); err != nil {
		return fmt.Errorf("delete singleton record: %w", err)
	}
	if err := s.db.Delete(genKey(r.LauncherID, r.Generation, r.CoinID)); err != nil {
		return fmt.Errorf("delete generation index: %w", err)
	}
	if err := s.db.Delete(rootIndexKey(r.Root, r.CoinID)); err != nil {
		return fmt.Errorf("delete root index: %w", err)
	}
	return nil
}

// recordsForLauncher scans every generation-index entry for launcherID,
// including multiple coexisting entries at the same generation — the shape
// a still-unresolved fork leaves behind.
func (s *store) recordsForLauncher(launcherID types.LauncherID) ([]SingletonRecord, error) {
	prefix := genPrefix(launcherID)
	var out []SingletonRecord
	err := s.db.ForEach(prefix, func(_, value []byte) error {
		var coinID types.CoinID
		copy(coinID[:], value)
		r, err := s.GetRecord(coinID)
		if err != nil {
			return err
		}
		if r != nil {
			out = append(out, *r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *store) GetLatest(launcherID types.LauncherID) (*SingletonRecord, error) {
	records, err := s.recordsForLauncher(launcherID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.Generation > latest.Generation {
			latest = r
		}
	}
	return &latest, nil
}

func (s *store) GetHistory(launcherID types.LauncherID, fromGen uint32, toGen int64) ([]SingletonRecord, error) {
	records, err := s.recordsForLauncher(launcherID)
	if err != nil {
		return nil, err
	}
	var out []SingletonRecord
	for _, r := range records {
		if r.Generation < fromGen {
			continue
		}
		if toGen >= 0 && int64(r.Generation) > toGen {
			continue
		}
		out = append(out, r)
	}
	sortByGeneration(out)
	return out, nil
}

func (s *store) GetUnconfirmed(launcherID types.LauncherID) ([]SingletonRecord, error) {
	records, err := s.recordsForLauncher(launcherID)
	if err != nil {
		return nil, err
	}
	var out []SingletonRecord
	for _, r := range records {
		if !r.Confirmed {
			out = append(out, r)
		}
	}
	sortByGeneration(out)
	return out, nil
}

func (s *store) GetByRoot(root types.Root) ([]SingletonRecord, error) {
	prefix := append([]byte(prefixRootIndex), root[:]...)
	var out []SingletonRecord
	err := s.db.ForEach(prefix, func(key, _ []byte) error {
		var coinID types.CoinID
		copy(coinID[:], key[len(prefixRootIndex)+types.HashSize:])
		r, err := s.GetRecord(coinID)
		if err != nil {
			return err
		}
		if r != nil {
			out = append(out, *r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *store) PutLauncherInfo(info LauncherInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal launcher info: %w", err)
	}
	if err := s.db.Put(launcherKey(info.LauncherID), data); err != nil {
		return fmt.Errorf("put launcher info: %w", err)
	}
	return nil
}

func (s *store) GetLauncherInfo(launcherID types.LauncherID) (*LauncherInfo, error) {
	data, err := s.db.Get(launcherKey(launcherID))
	if err != nil {
		return nil, nil
	}
	var info LauncherInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("unmarshal launcher info: %w", err)
	}
	return &info, nil
}

func (s *store) DeleteLauncherInfo(launcherID types.LauncherID) error {
	if err := s.db.Delete(launcherKey(launcherID)); err != nil {
		return fmt.Errorf("delete launcher info: %w", err)
	}
	return nil
}

func (s *store) ListLaunchers() ([]types.LauncherID, error) {
	var out []types.LauncherID
	err := s.db.ForEach([]byte(prefixLauncher), func(key, _ []byte) error {
		var id types.LauncherID
		copy(id[:], key[len(prefixLauncher):])
		out = append(out, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *store) NewBatch() storage.Batch {
	if batcher, ok := s.db.(storage.Batcher); ok {
		return batcher.NewBatch()
	}
	return &nonAtomicBatch{db: s.db}
}

// nonAtomicBatch falls back to individual writes when the underlying DB
// doesn't implement storage.Batcher.
type nonAtomicBatch struct {
	db  storage.DB
	ops []func() error
}

func (b *nonAtomicBatch) Put(key, value []byte) error {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	b.ops = append(b.ops, func() error { return b.db.Put(k, v) })
	return nil
}

func (b *nonAtomicBatch) Delete(key []byte) error {
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, func() error { return b.db.Delete(k) })
	return nil
}

func (b *nonAtomicBatch) Commit() error {
	for _, op := range b.ops {
		if err := op(); err != nil {
			return err
		}
	}
	return nil
}

func sortByGeneration(records []SingletonRecord) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j-1].Generation > records[j].Generation; j-- {
			records[j-1], records[j] = records[j], records[j-1]
		}
	}
}
