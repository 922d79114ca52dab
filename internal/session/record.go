// internal/session/record.go
package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lunixbochs/struc"
	"github.com/snksoft/crc"
)

// Persisted block layout (little-endian, 4-byte access granularity):
//
//	0–3    checksum (CRC-32 over bytes 4..19)
//	4      channel
//	5–10   peer identity
//	11–16  device identity
//	17–19  padding
const (
	IdentityLen = 6
	BlockSize   = 4
	RecordSize  = 20

	checksumLen = 4
)

// ErrInvalidRecord means the stored block failed its integrity check.
// Callers treat it as "no record".
var ErrInvalidRecord = errors.New("session: invalid record")

// checksumParams is CRC-32/MPEG-2: MSB-first, init all ones, no final xor.
var checksumParams = &crc.Parameters{
	Width:      32,
	Polynomial: 0x04C11DB7,
	Init:       0xFFFFFFFF,
	ReflectIn:  false,
	ReflectOut: false,
	FinalXor:   0x0,
}

var checksumTable = crc.NewTable(checksumParams)

var structOptions = &struc.Options{Order: binary.LittleEndian}

// Record is the connection hint kept across deep sleep.
type Record struct {
	Checksum uint32                `struc:"uint32"`
	Channel  uint8                 `struc:"uint8"`
	Peer     [IdentityLen]byte     `struc:"[6]uint8"`
	Device   [IdentityLen]byte     `struc:"[6]uint8"`
	Padding  [RecordSize - 17]byte `struc:"[3]uint8"`
}

// Checksum computes the CRC-32 used by the record over data.
func Checksum(data []byte) uint32 {
	return uint32(checksumTable.CalculateCRC(data))
}

// Encode packs the record into its fixed block, checksum field as stored.
func (r *Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOptions(&buf, r, structOptions); err != nil {
		return nil, fmt.Errorf("session: pack: %w", err)
	}
	if buf.Len() != RecordSize {
		return nil, fmt.Errorf("session: packed %d bytes, want %d", buf.Len(), RecordSize)
	}
	return buf.Bytes(), nil
}

// Compute returns the checksum over every field except the checksum itself.
func (r *Record) Compute() uint32 {
	b, err := r.Encode()
	if err != nil {
		return 0
	}
	return Checksum(b[checksumLen:])
}

// Valid reports whether the stored checksum matches the content.
func (r *Record) Valid() bool {
	return r.Checksum == r.Compute()
}

// Seal recomputes the checksum and reports whether it changed.
func (r *Record) Seal() bool {
	sum := r.Compute()
	if sum == r.Checksum {
		return false
	}
	r.Checksum = sum
	return true
}

// Decode unpacks a block and validates it.
// A short or corrupt block yields ErrInvalidRecord.
func Decode(b []byte) (Record, error) {
	var r Record
	if len(b) != RecordSize {
		return Record{}, fmt.Errorf("%w: size %d", ErrInvalidRecord, len(b))
	}
	if err := struc.UnpackWithOptions(bytes.NewReader(b), &r, structOptions); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if Checksum(b[checksumLen:]) != r.Checksum {
		return Record{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidRecord)
	}
	return r, nil
}
