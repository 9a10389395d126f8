package dump

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ID is a unique identifier of the dump.
type ID struct {
	// Label of the dump source (e.g. staging, production).
	Label string
	// Sequence number of the dump with the label.
	Seq uint32
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Label + sep + strconv.FormatUint(uint64(x.Seq), 10)
}

// decodes ID fields from the hyphen-separated string.
func (x *ID) decodeString(s string) error {
	ss := strings.Split(s, sep)
	if len(ss) < 2 {
		return fmt.Errorf("expected '%s'-separated string with at least 2 items", sep)
	}

	n, err := strconv.ParseUint(ss[1], 10, 32)
	if err != nil {
		return fmt.Errorf("decode sequence number from '%s': %w", ss[1], err)
	}

	x.Label = ss[0]
	x.Seq = uint32(n)

	return nil
}

// Header describes dumped vault.
type Header struct {
	// Version of the logic running the vault at the moment of dump.
	Version int `json:"version"`
	// Fingerprint of the vault state snapshot.
	Fingerprint string `json:"fingerprint"`
}

var _encoding = base64.StdEncoding

type dumpVault struct {
	Name   string `json:"name"`
	Header Header `json:"header"`
}

type dumpStreams struct {
	vaults, storageItems io.ReadWriteCloser
}

func (x *dumpStreams) close() {
	_ = x.storageItems.Close()
	_ = x.vaults.Close()
}

const (
	sep = "-"

	headersFileSuffix = "vaults.json"
	storageFileSuffix = "storage.csv"
)

// initDumpStreams opens data streams for the dump files located in the
// specified directory. If read flag is set, streams are read-only. Otherwise,
// files must not exist, and streams are write only.
func initDumpStreams(d *dumpStreams, dir string, id ID, read bool) error {
	var (
		err  error
		flag = os.O_RDONLY
		perm os.FileMode
	)
	if !read {
		flag = os.O_CREATE | os.O_WRONLY | os.O_EXCL
		perm = 0600
	}

	pathStorage := filepath.Join(dir, strings.Join([]string{id.String(), storageFileSuffix}, sep))
	d.storageItems, err = os.OpenFile(pathStorage, flag, perm)
	if err != nil {
		return fmt.Errorf("open file with storage items: %w", err)
	}

	pathVaults := filepath.Join(dir, strings.Join([]string{id.String(), headersFileSuffix}, sep))
	d.vaults, err = os.OpenFile(pathVaults, flag, perm)
	if err != nil {
		_ = d.storageItems.Close()
		return fmt.Errorf("open file with vault headers: %w", err)
	}

	return nil
}
