package cache

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Persistent stores frame each payload as
//
//	expiry (8 bytes, unix nanoseconds, big endian) | key length (4 bytes) | key | data
//
// so a reader can drop stale entries and detect file name collisions.
const envelopeHeader = 12

func sealEnvelope(key string, data []byte, expires time.Time) []byte {
	buf := make([]byte, envelopeHeader+len(key)+len(data))
	binary.BigEndian.PutUint64(buf[0:8], uint64(expires.UnixNano()))
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(key)))
	copy(buf[envelopeHeader:], key)
	copy(buf[envelopeHeader+len(key):], data)
	return buf
}

func openEnvelope(buf []byte) (key string, data []byte, expires time.Time, err error) {
	if len(buf) < envelopeHeader {
		return "", nil, time.Time{}, errors.Errorf("cache envelope too short: %d bytes", len(buf))
	}
	expires = time.Unix(0, int64(binary.BigEndian.Uint64(buf[0:8])))
	n := int(binary.BigEndian.Uint32(buf[8:12]))
	if len(buf) < envelopeHeader+n {
		return "", nil, time.Time{}, errors.Errorf("cache envelope key truncated: want %d bytes", n)
	}
	key = string(buf[envelopeHeader : envelopeHeader+n])
	data = buf[envelopeHeader+n:]
	return key, data, expires, nil
}
