package schema

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/state"
)

const snapshotFormat = 0

// AssetAmount is a single entry of the asset-keyed mapping.
type AssetAmount struct {
	Asset  util.Uint160
	Amount *uint256.Int
}

// HolderAmount is a single entry of the (asset, holder)-keyed mapping.
type HolderAmount struct {
	Asset  util.Uint160
	Holder util.Uint160
	Amount *uint256.Int
}

// Snapshot is a complete copy of the vault state decoded according to some
// Layout. Fields beyond the layout length are left zero.
type Snapshot struct {
	// Fields is a number of layout fields the snapshot carries.
	Fields int

	Implementation uint32
	Initialized    uint32

	Owner           util.Uint160
	Name            string
	Asset           util.Uint160
	MinAmount       *uint256.Int
	TotalShares     []AssetAmount
	Shares          []HolderAmount
	SupportedAssets []util.Uint160
}

// Read collects all fields of the layout from the state.
func Read(tx *state.Tx, l Layout) (*Snapshot, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	s := &Snapshot{Fields: len(l), MinAmount: new(uint256.Int)}

	var err error
	if s.Implementation, err = readReserved(tx, ImplementationKey); err != nil {
		return nil, fmt.Errorf("read implementation version: %w", err)
	}
	if s.Initialized, err = readReserved(tx, InitializedKey); err != nil {
		return nil, fmt.Errorf("read initialized version: %w", err)
	}

	for i := range l {
		if err = s.readField(tx, l[i].Slot); err != nil {
			return nil, fmt.Errorf("read field '%s': %w", l[i].Name, err)
		}
	}
	return s, nil
}

func (s *Snapshot) readField(tx *state.Tx, slot Slot) error {
	var (
		raw []byte
		err error
	)
	switch slot {
	case SlotOwner, SlotName, SlotAsset, SlotMinAmount:
		raw, err = tx.Get(ScalarKey(slot))
		if err != nil {
			return err
		}
	}

	switch slot {
	case SlotOwner:
		s.Owner, err = common.DecodeHash160(raw)
	case SlotName:
		s.Name = string(raw)
	case SlotAsset:
		s.Asset, err = common.DecodeHash160(raw)
	case SlotMinAmount:
		s.MinAmount, err = common.DecodeUint256(raw)
	case SlotTotalShares:
		tx.Seek(ScalarKey(slot), func(k, v []byte) bool {
			var e AssetAmount
			if e.Asset, err = common.DecodeHash160(k); err != nil {
				return false
			}
			if e.Amount, err = common.DecodeUint256(v); err != nil {
				return false
			}
			s.TotalShares = append(s.TotalShares, e)
			return true
		})
	case SlotShares:
		tx.Seek(ScalarKey(slot), func(k, v []byte) bool {
			if len(k) != 2*util.Uint160Size {
				err = fmt.Errorf("invalid holder key length %d", len(k))
				return false
			}
			var e HolderAmount
			if e.Asset, err = common.DecodeHash160(k[:util.Uint160Size]); err != nil {
				return false
			}
			if e.Holder, err = common.DecodeHash160(k[util.Uint160Size:]); err != nil {
				return false
			}
			if e.Amount, err = common.DecodeUint256(v); err != nil {
				return false
			}
			s.Shares = append(s.Shares, e)
			return true
		})
	case SlotSupportedAssets:
		tx.Seek(ScalarKey(slot), func(k, v []byte) bool {
			var (
				a  util.Uint160
				ok bool
			)
			if a, err = common.DecodeHash160(k); err != nil {
				return false
			}
			if ok, err = common.DecodeBool(v); err != nil {
				return false
			}
			if ok {
				s.SupportedAssets = append(s.SupportedAssets, a)
			}
			return true
		})
	default:
		err = fmt.Errorf("unknown slot %d", slot)
	}
	return err
}

// Write puts all carried fields into the state. It is used to restore
// dumps and does not clear fields missing in the snapshot.
func (s *Snapshot) Write(tx *state.Tx) {
	putReserved(tx, ImplementationKey, s.Implementation)
	putReserved(tx, InitializedKey, s.Initialized)

	for i := 0; i < s.Fields; i++ {
		switch Slot(i) {
		case SlotOwner:
			tx.Put(ScalarKey(SlotOwner), common.EncodeHash160(s.Owner))
		case SlotName:
			tx.Put(ScalarKey(SlotName), []byte(s.Name))
		case SlotAsset:
			tx.Put(ScalarKey(SlotAsset), common.EncodeHash160(s.Asset))
		case SlotMinAmount:
			tx.Put(ScalarKey(SlotMinAmount), common.EncodeUint256(s.minAmount()))
		case SlotTotalShares:
			for _, e := range s.TotalShares {
				tx.Put(AssetKey(SlotTotalShares, e.Asset), common.EncodeUint256(e.Amount))
			}
		case SlotShares:
			for _, e := range s.Shares {
				tx.Put(HolderKey(SlotShares, e.Asset, e.Holder), common.EncodeUint256(e.Amount))
			}
		case SlotSupportedAssets:
			for _, a := range s.SupportedAssets {
				tx.Put(AssetKey(SlotSupportedAssets, a), common.EncodeBool(true))
			}
		}
	}
}

func (s *Snapshot) minAmount() *uint256.Int {
	if s.MinAmount == nil {
		return new(uint256.Int)
	}
	return s.MinAmount
}

// EncodeBinary implements io.Serializable. Fields are written in slot
// order, so encoding of the layout prefix does not depend on the fields
// appended after it.
func (s *Snapshot) EncodeBinary(w *io.BinWriter) {
	w.WriteB(snapshotFormat)
	w.WriteU32LE(s.Implementation)
	w.WriteU32LE(s.Initialized)
	w.WriteVarUint(uint64(s.Fields))

	for i := 0; i < s.Fields; i++ {
		s.encodeField(w, Slot(i))
	}
}

func (s *Snapshot) encodeField(w *io.BinWriter, slot Slot) {
	switch slot {
	case SlotOwner:
		w.WriteBytes(s.Owner.BytesBE())
	case SlotName:
		w.WriteString(s.Name)
	case SlotAsset:
		w.WriteBytes(s.Asset.BytesBE())
	case SlotMinAmount:
		w.WriteBytes(common.EncodeUint256(s.minAmount()))
	case SlotTotalShares:
		w.WriteVarUint(uint64(len(s.TotalShares)))
		for _, e := range s.TotalShares {
			w.WriteBytes(e.Asset.BytesBE())
			w.WriteBytes(common.EncodeUint256(e.Amount))
		}
	case SlotShares:
		w.WriteVarUint(uint64(len(s.Shares)))
		for _, e := range s.Shares {
			w.WriteBytes(e.Asset.BytesBE())
			w.WriteBytes(e.Holder.BytesBE())
			w.WriteBytes(common.EncodeUint256(e.Amount))
		}
	case SlotSupportedAssets:
		w.WriteVarUint(uint64(len(s.SupportedAssets)))
		for _, a := range s.SupportedAssets {
			w.WriteBytes(a.BytesBE())
		}
	default:
		w.Err = fmt.Errorf("unknown slot %d", slot)
	}
}

// DecodeBinary implements io.Serializable. Snapshot must be prepared by
// NewSnapshot with the reading layout: data carrying more fields than the
// layout knows is rejected.
func (s *Snapshot) DecodeBinary(r *io.BinReader) {
	s.decode(r, nil)
}

func (s *Snapshot) decode(r *io.BinReader, pos func() int) []int {
	known := s.Fields

	if f := r.ReadB(); r.Err == nil && f != snapshotFormat {
		r.Err = fmt.Errorf("unsupported snapshot format %d", f)
		return nil
	}
	s.Implementation = r.ReadU32LE()
	s.Initialized = r.ReadU32LE()
	n := r.ReadVarUint()
	if r.Err != nil {
		return nil
	}
	if n > uint64(known) {
		r.Err = fmt.Errorf("snapshot carries %d fields, layout knows %d", n, known)
		return nil
	}

	s.Fields = int(n)
	offsets := make([]int, 0, n)
	for i := 0; i < s.Fields && r.Err == nil; i++ {
		if pos != nil {
			offsets = append(offsets, pos())
		}
		s.decodeField(r, Slot(i))
	}
	return offsets
}

func (s *Snapshot) decodeField(r *io.BinReader, slot Slot) {
	readHash := func() util.Uint160 {
		var h util.Uint160
		b := make([]byte, util.Uint160Size)
		r.ReadBytes(b)
		if r.Err == nil {
			h, r.Err = util.Uint160DecodeBytesBE(b)
		}
		return h
	}
	readUint := func() *uint256.Int {
		b := make([]byte, 32)
		r.ReadBytes(b)
		return new(uint256.Int).SetBytes(b)
	}

	switch slot {
	case SlotOwner:
		s.Owner = readHash()
	case SlotName:
		s.Name = r.ReadString()
	case SlotAsset:
		s.Asset = readHash()
	case SlotMinAmount:
		s.MinAmount = readUint()
	case SlotTotalShares:
		n := r.ReadVarUint()
		for i := uint64(0); i < n && r.Err == nil; i++ {
			s.TotalShares = append(s.TotalShares, AssetAmount{Asset: readHash(), Amount: readUint()})
		}
	case SlotShares:
		n := r.ReadVarUint()
		for i := uint64(0); i < n && r.Err == nil; i++ {
			s.Shares = append(s.Shares, HolderAmount{Asset: readHash(), Holder: readHash(), Amount: readUint()})
		}
	case SlotSupportedAssets:
		n := r.ReadVarUint()
		for i := uint64(0); i < n && r.Err == nil; i++ {
			s.SupportedAssets = append(s.SupportedAssets, readHash())
		}
	default:
		r.Err = fmt.Errorf("unknown slot %d", slot)
	}
}

// NewSnapshot returns empty Snapshot ready to decode data of the layout.
func NewSnapshot(l Layout) *Snapshot {
	return &Snapshot{Fields: len(l), MinAmount: new(uint256.Int)}
}

// Bytes returns binary encoding of the snapshot.
func (s *Snapshot) Bytes() ([]byte, error) {
	w := io.NewBufBinWriter()
	s.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// Decode decodes snapshot bytes according to the layout.
func Decode(b []byte, l Layout) (*Snapshot, error) {
	s, _, err := DecodeWithOffsets(b, l)
	return s, err
}

// DecodeWithOffsets is like Decode but also returns byte offsets at which
// every decoded field starts.
func DecodeWithOffsets(b []byte, l Layout) (*Snapshot, []int, error) {
	if err := l.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		s  = NewSnapshot(l)
		br = bytes.NewReader(b)
		r  = io.NewBinReaderFromIO(br)
	)
	offsets := s.decode(r, func() int { return len(b) - br.Len() })
	if r.Err != nil {
		return nil, nil, fmt.Errorf("decode snapshot: %w", r.Err)
	}
	if br.Len() != 0 {
		return nil, nil, errors.New("decode snapshot: trailing data")
	}
	return s, offsets, nil
}

// Fingerprint returns short human-readable digest of snapshot bytes.
func Fingerprint(b []byte) string {
	h := hash.Sha256(b)
	return base58.Encode(h.BytesBE())
}

func readReserved(tx *state.Tx, key []byte) (uint32, error) {
	raw, err := tx.Get(key)
	if err != nil || raw == nil {
		return 0, err
	}
	if len(raw) != 4 {
		return 0, fmt.Errorf("invalid reserved value length %d", len(raw))
	}
	return binary.BigEndian.Uint32(raw), nil
}

func putReserved(tx *state.Tx, key []byte, v uint32) {
	if v == 0 {
		return
	}
	tx.Put(key, binary.BigEndian.AppendUint32(nil, v))
}

// ReadVersion returns version stored by reserved key; zero means absence.
func ReadVersion(tx *state.Tx, key []byte) (int, error) {
	v, err := readReserved(tx, key)
	return int(v), err
}

// WriteVersion stores version by reserved key.
func WriteVersion(tx *state.Tx, key []byte, v int) {
	putReserved(tx, key, uint32(v))
}
