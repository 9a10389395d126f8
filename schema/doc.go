/*
Package schema describes persisted layout of the vault state.

The state is an ordered sequence of fields. Position of a field in the
sequence is its slot, and the slot is encoded into every storage key of the
field. Slot of a field never changes once some logic version has been
released with it: new versions may only append fields. Reordering or
retyping a field would make new logic reinterpret existing data, so
CheckAppendOnly rejects such layouts before any upgrade.

# Storage model

Key-value storage format (slot byte first):
  - 0x00 -> 20 bytes
    vault owner
  - 0x01 -> UTF-8 string
    vault name, set once at initialization
  - 0x02 -> 20 bytes
    single accepted asset of version 1, deprecated since version 2
  - 0x03 -> 32 bytes
    cached minimum deposit of the version 1 asset, deprecated since version 2
  - 0x04<asset> -> 32 bytes
    total shares outstanding per asset
  - 0x05<asset><holder> -> 32 bytes
    shares of the holder per asset
  - 0x06<asset> -> 1 byte
    supported assets of version 2

Reserved keys which are not part of the sequence:
  - 0xff'impl' -> 4 bytes
    version of the active logic
  - 0xff'init' -> 4 bytes
    version of the logic which initialized the state

Unsigned integers are 32-byte big-endian words, identities are 20-byte
big-endian hashes.
*/
package schema
