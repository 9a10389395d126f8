package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/nspcc-dev/sharevault/state"
)

// IterateDumps iterates over all dumps collected by the Creator in the
// specified directory, and passes ID and Reader of each dump into f.
func IterateDumps(dir string, f func(ID, *Reader)) error {
	var id ID
	var r Reader
	var streams dumpStreams

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, e error) error {
		if errors.Is(e, fs.ErrNotExist) {
			return nil
		}
		if e != nil {
			return e
		}

		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !strings.HasSuffix(name, headersFileSuffix) {
			return nil
		}

		err := id.decodeString(name)
		if err != nil {
			return fmt.Errorf("decode dump ID from file name '%s': %w", name, err)
		}

		err = initDumpStreams(&streams, dir, id, true)
		if err != nil {
			return fmt.Errorf("init dump streams ('%s'): %w", name, err)
		}

		err = r.fromDumpStreams(streams.vaults, streams.storageItems)
		streams.close()
		if err != nil {
			return fmt.Errorf("init dump reader ('%s'): %w", name, err)
		}

		f(id, &r)

		return nil
	})
}

type kv struct{ k, v []byte }

// Reader reads vaults collected in the superior dump.
type Reader struct {
	vaults   []dumpVault
	mStorage map[string][]kv
}

func (x *Reader) fromDumpStreams(rVaults, rStorageItems io.Reader) error {
	x.vaults = x.vaults[:0]
	err := json.NewDecoder(rVaults).Decode(&x.vaults)
	if err != nil {
		return fmt.Errorf("decode vault headers from JSON: %w", err)
	}

	var rec []string
	var _kv kv

	_csv := csv.NewReader(rStorageItems)
	_csv.FieldsPerRecord = 3
	_csv.ReuseRecord = true

	if x.mStorage != nil {
		clear(x.mStorage)
	} else {
		x.mStorage = make(map[string][]kv)
	}

	for {
		rec, err = _csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		// out-of-range safety guaranteed by csv settings
		_kv.k, err = _encoding.DecodeString(rec[1])
		if err != nil {
			return fmt.Errorf("decode storage item key: %w", err)
		}

		_kv.v, err = _encoding.DecodeString(rec[2])
		if err != nil {
			return fmt.Errorf("decode storage item value: %w", err)
		}

		x.mStorage[rec[0]] = append(x.mStorage[rec[0]], _kv)
	}
}

// IterateVaults iterates over all vaults from the superior dump and passes
// their headers into f.
func (x *Reader) IterateVaults(f func(name string, h Header)) {
	for i := range x.vaults {
		f(x.vaults[i].Name, x.vaults[i].Header)
	}
}

// IterateVaultStorage passes storage items of the named vault into f.
func (x *Reader) IterateVaultStorage(name string, f func(key, value []byte)) {
	kvs := x.mStorage[name]
	for i := range kvs {
		f(kvs[i].k, kvs[i].v)
	}
}

// Restore puts storage items of the named vault into the store. The store
// is expected to be empty.
func (x *Reader) Restore(name string, s *state.Store) error {
	var found bool
	x.IterateVaults(func(n string, _ Header) {
		found = found || n == name
	})
	if !found {
		return fmt.Errorf("vault '%s' is missing in the dump", name)
	}

	tx := s.Begin()
	x.IterateVaultStorage(name, func(k, v []byte) {
		tx.Put(k, v)
	})
	return tx.Commit()
}
