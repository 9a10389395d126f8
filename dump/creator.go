package dump

import (
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/nspcc-dev/sharevault/state"
)

// Creator dumps vault states. Output file format:
//
//	'<label>-<seq>-vaults.json': JSON array of vault headers
//	'<label>-<seq>-storage.csv': CSV of vault storages
//
// Storage CSV are 'name,key,value' where name stands for vault name and
// binary key-value are base64-encoded.
//
// Use IterateDumps to access existing dumps.
type Creator struct {
	dumpStreams

	vaults []dumpVault

	storageItemsCSV *csv.Writer
}

// NewCreator returns Creator which dumps vaults into given directory. The
// dump is identified by specified ID. Resulting Creator should be closed when
// finished working with it.
//
// NewCreator fails if dump with provided ID already exists.
func NewCreator(dir string, id ID) (*Creator, error) {
	var res Creator

	err := initDumpStreams(&res.dumpStreams, dir, id, false)
	if err != nil {
		return nil, err
	}

	res.storageItemsCSV = csv.NewWriter(res.dumpStreams.storageItems)

	return &res, nil
}

// AddVault adds header of the named vault to the resulting dump and returns
// StorageWriter for the vault storage. After all needed vaults are added,
// they should be flushed via Flush method.
func (x *Creator) AddVault(name string, h Header) *StorageWriter {
	x.vaults = append(x.vaults, dumpVault{
		Name:   name,
		Header: h,
	})

	return &StorageWriter{
		name: name,
		csv:  x.storageItemsCSV,
	}
}

// Flush flushes accumulated dump to the file system.
func (x *Creator) Flush() error {
	jEnc := json.NewEncoder(x.dumpStreams.vaults)
	jEnc.SetIndent("", " ")

	err := jEnc.Encode(x.vaults)
	if err != nil {
		return fmt.Errorf("encode vault headers to JSON: %w", err)
	}

	x.storageItemsCSV.Flush()

	err = x.storageItemsCSV.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Close releases underlying resources of the Creator and makes it unusable.
func (x *Creator) Close() {
	x.close()
}

// StorageWriter writes data into the superior vault's storage dump.
type StorageWriter struct {
	name string
	csv  *csv.Writer
}

// Write saves given binary key-value into the vault dump as storage item.
func (x *StorageWriter) Write(key, value []byte) error {
	err := x.csv.Write([]string{
		x.name,
		_encoding.EncodeToString(key),
		_encoding.EncodeToString(value),
	})
	if err != nil {
		return fmt.Errorf("write storage item as CSV data: %w", err)
	}

	return nil
}

// WriteStore saves all items of the store.
func (x *StorageWriter) WriteStore(s *state.Store) error {
	var err error
	s.Begin().Seek(nil, func(k, v []byte) bool {
		err = x.Write(k, v)
		return err == nil
	})
	return err
}
