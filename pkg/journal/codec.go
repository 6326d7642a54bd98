package journal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/ClusterCockpit/cc-lib/v2/schema"
)

// recordMagic tags every encoded record so Recover can tell a genuine
// record header from a truncated trailing write left by a crash.
//
// spec.md §6 explicitly leaves the journal's internal record format out
// of scope ("is defined by the journal layer and is out of scope"); this
// framing is supplemented from the teacher's WAL record layout so the
// factory has something concrete to read, write, and replay in its
// tests and demo binary.
const recordMagic = uint32(0x484e4a31) // "HNJ1"

// Record is the journal's demo payload: a keyed numeric sample, the
// shape the teacher's WAL records take for a single metric write.
type Record struct {
	Key       string
	Timestamp int64
	Value     schema.Float
}

// RecordCodec encodes Records using the magic/length/payload/CRC32
// framing from walCheckpoint.go; ReadRecord decodes them.
type RecordCodec struct{}

// Encode serializes rec into a self-framed byte record ready to be
// passed to SequentialFile.Write.
func (RecordCodec) Encode(rec Record) []byte {
	payload := encodePayload(rec)
	crc := crc32.ChecksumIEEE(payload)

	out := make([]byte, 0, 4+4+len(payload)+4)
	out = appendUint32(out, recordMagic)
	out = appendUint32(out, uint32(len(payload)))
	out = append(out, payload...)
	out = appendUint32(out, crc)
	return out
}

func encodePayload(rec Record) []byte {
	size := 8 + 2 + len(rec.Key) + 4
	buf := make([]byte, 0, size)

	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(rec.Timestamp))
	buf = append(buf, ts[:]...)

	var kLen [2]byte
	binary.LittleEndian.PutUint16(kLen[:], uint16(len(rec.Key)))
	buf = append(buf, kLen[:]...)
	buf = append(buf, rec.Key...)

	var val [4]byte
	binary.LittleEndian.PutUint32(val[:], math.Float32bits(float32(rec.Value)))
	buf = append(buf, val[:]...)

	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// ReadRecord reads one record from r. It returns (Record{}, false, nil)
// on a clean EOF. A CRC mismatch or truncated trailing record, the
// expected shape of a crash mid-write, is reported as (Record{}, false,
// nil) as well rather than an error: the caller should treat it as "no
// more valid records," mirroring the teacher's loadWALFile tolerance for
// a torn tail write.
func ReadRecord(r io.Reader) (Record, bool, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("journal: read record header: %w", err)
	}

	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != recordMagic {
		return Record{}, false, nil
	}
	payloadLen := binary.LittleEndian.Uint32(header[4:8])
	if payloadLen > 1<<20 {
		return Record{}, false, fmt.Errorf("journal: record payload too large: %d bytes", payloadLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Record{}, false, nil
	}

	var crcBytes [4]byte
	if _, err := io.ReadFull(r, crcBytes[:]); err != nil {
		return Record{}, false, nil
	}
	if crc32.ChecksumIEEE(payload) != binary.LittleEndian.Uint32(crcBytes[:]) {
		return Record{}, false, nil
	}

	rec, err := decodePayload(payload)
	if err != nil {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func decodePayload(payload []byte) (Record, error) {
	if len(payload) < 8+2 {
		return Record{}, fmt.Errorf("journal: payload too short: %d bytes", len(payload))
	}
	offset := 0

	ts := int64(binary.LittleEndian.Uint64(payload[offset : offset+8]))
	offset += 8

	kLen := int(binary.LittleEndian.Uint16(payload[offset : offset+2]))
	offset += 2
	if offset+kLen+4 > len(payload) {
		return Record{}, fmt.Errorf("journal: key/value overflow payload")
	}
	key := string(payload[offset : offset+kLen])
	offset += kLen

	bits := binary.LittleEndian.Uint32(payload[offset : offset+4])
	value := schema.Float(math.Float32frombits(bits))

	return Record{Key: key, Timestamp: ts, Value: value}, nil
}

// Recover replays every journal file in dir whose name ends with
// "."+ext, in directory-listing order, returning the valid records it
// could read. It mirrors the teacher's FromCheckpoint restart path:
// load what is valid, stop silently at the first corrupt or truncated
// record in a file (the expected shape of a crash mid-write).
func Recover(dir, ext string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &IOError{Op: "readdir", Path: dir, Err: err}
	}

	suffix := "." + ext
	var records []Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != suffix {
			continue
		}
		path := filepath.Join(dir, e.Name())
		recs, err := recoverFile(path)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}
	return records, nil
}

func recoverFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var records []Record
	for {
		rec, ok, err := ReadRecord(br)
		if err != nil {
			return nil, &IOError{Op: "recover", Path: path, Err: err}
		}
		if !ok {
			break
		}
		records = append(records, rec)
	}
	return records, nil
}
