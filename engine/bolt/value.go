package boltengine

import (
	"encoding/binary"

	"github.com/golang/snappy"
	"github.com/zeebo/xxh3"

	"burrow/engine"
)

// On-disk value framing, enabled per environment. When either option is on,
// values are stored as
//
//	[frame byte][xxh3 of payload, 8 bytes LE, if checksums][payload]
//
// with the checksum taken over the uncompressed payload. With both options
// off values are stored bare, so plain files stay readable by other tools.
type valueCodec struct {
	checksums bool
	snappy    bool
}

const (
	frameChecksum byte = 1 << 0
	frameSnappy   byte = 1 << 1
)

func (c valueCodec) framed() bool {
	return c.checksums || c.snappy
}

func (c valueCodec) encode(v []byte) []byte {
	if !c.framed() {
		return v
	}

	var frame byte
	payload := v
	if c.snappy {
		frame |= frameSnappy
		payload = snappy.Encode(nil, v)
	}
	size := 1 + len(payload)
	if c.checksums {
		frame |= frameChecksum
		size += 8
	}

	out := make([]byte, 1, size)
	out[0] = frame
	if c.checksums {
		out = binary.LittleEndian.AppendUint64(out, xxh3.Hash(v))
	}
	return append(out, payload...)
}

func (c valueCodec) decode(raw []byte) ([]byte, error) {
	if !c.framed() {
		return raw, nil
	}
	if len(raw) < 1 {
		return nil, engine.ErrCorrupted
	}

	frame := raw[0]
	if frame&^(frameChecksum|frameSnappy) != 0 {
		return nil, engine.ErrCorrupted
	}
	rest := raw[1:]

	var sum uint64
	if frame&frameChecksum != 0 {
		if len(rest) < 8 {
			return nil, engine.ErrCorrupted
		}
		sum = binary.LittleEndian.Uint64(rest[:8])
		rest = rest[8:]
	}

	payload := rest
	if frame&frameSnappy != 0 {
		var err error
		payload, err = snappy.Decode(nil, rest)
		if err != nil {
			return nil, engine.ErrCorrupted
		}
	}

	if frame&frameChecksum != 0 && xxh3.Hash(payload) != sum {
		return nil, engine.ErrCorrupted
	}
	return payload, nil
}
