package artifact

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

// MagicBytes identifies an encoded artifact ("SCMA").
const (
	MagicBytes    uint32 = 0x414D4353
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
)

// Header is the fixed-size prefix of every encoded artifact.
type Header struct {
	Magic      uint32
	Version    uint32
	PayloadLen uint64
	CreatedAt  int64
	Checksum   uint32
}

// Encode serialises a validated artifact as header + JSON payload.
func Encode(a *Artifact) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return encode(a)
}

func encode(a *Artifact) ([]byte, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshaling artifact %s: %w", a.ModelID, err)
	}
	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(payload)))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(a.CreatedAt.UnixNano()))
	binary.LittleEndian.PutUint32(buf[24:28], crc32.ChecksumIEEE(payload))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// ReadHeader parses and checks the header of an encoded artifact without
// touching the payload.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", apperrors.ErrArtifactCorrupt, len(data))
	}
	h := Header{
		Magic:      binary.LittleEndian.Uint32(data[0:4]),
		Version:    binary.LittleEndian.Uint32(data[4:8]),
		PayloadLen: binary.LittleEndian.Uint64(data[8:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(data[16:24])),
		Checksum:   binary.LittleEndian.Uint32(data[24:28]),
	}
	if h.Magic != MagicBytes {
		return h, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrArtifactCorrupt, h.Magic)
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("%w: unsupported format version %d", apperrors.ErrArtifactCorrupt, h.Version)
	}
	return h, nil
}

// Decode reverses Encode and rejects anything that cannot be fully
// reconstructed.
func Decode(data []byte) (*Artifact, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	payload := data[HeaderSize:]
	if uint64(len(payload)) != h.PayloadLen {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d", apperrors.ErrArtifactCorrupt, len(payload), h.PayloadLen)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != h.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch (got %08x, want %08x)", apperrors.ErrArtifactCorrupt, sum, h.Checksum)
	}
	var a Artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("%w: parsing payload: %v", apperrors.ErrArtifactCorrupt, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

func (h Header) Created() time.Time {
	return time.Unix(0, h.CreatedAt).UTC()
}
