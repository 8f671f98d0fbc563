package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/hkexingest/core"
)

// Key prefixes for different data types
const (
	filingPrefix       = "filing"
	filingStatusPrefix = "fstat"
	edgePrefix         = "edge"
)

// statusCode maps a document status to a single index byte. The empty
// status (document not yet attempted) gets its own code.
func statusCode(status core.DocStatus) byte {
	switch status {
	case core.DocStatusProcessed:
		return 'p'
	case core.DocStatusSkipped:
		return 's'
	case core.DocStatusFailed:
		return 'f'
	default:
		return 'n'
	}
}

// makeFilingKey generates a key for a filing record by ID.
func makeFilingKey(filingID string) []byte {
	return []byte(filingPrefix + ":" + filingID)
}

// makeStatusKey generates a composite key for the document-status index.
// Format: prefix:statusCode:timestamp:filingID
// The timestamp is written BigEndian so lexicographic order equals
// chronological order; reverse iteration yields newest first.
func makeStatusKey(status core.DocStatus, filingDate time.Time, filingID string) []byte {
	prefix := makeStatusPrefix(status)
	buf := make([]byte, len(prefix)+8+1+len(filingID))
	offset := copy(buf, prefix)
	micros := filingDate.UnixMicro()
	if micros < 0 {
		micros = 0
	}
	binary.BigEndian.PutUint64(buf[offset:], uint64(micros))
	offset += 8
	buf[offset] = ':'
	offset++
	copy(buf[offset:], filingID)
	return buf
}

// makeStatusPrefix generates the scan prefix for one status bucket.
func makeStatusPrefix(status core.DocStatus) []byte {
	return []byte{filingStatusPrefix[0], filingStatusPrefix[1], filingStatusPrefix[2],
		filingStatusPrefix[3], filingStatusPrefix[4], ':', statusCode(status), ':'}
}

// makeEdgeKey generates a key for an edge by its identity triple.
// Format: prefix:relation:from:to
func makeEdgeKey(relation, from, to string) []byte {
	return []byte(edgePrefix + ":" + relation + ":" + from + ":" + to)
}

// makeEdgePrefix generates the scan prefix for one relation.
func makeEdgePrefix(relation string) []byte {
	return []byte(edgePrefix + ":" + relation + ":")
}

// makeCompanyKey generates a key for a company record in the configured
// company table.
func makeCompanyKey(table, recordID string) []byte {
	return []byte(table + ":" + recordID)
}

// makeCompanyPrefix generates the scan prefix for the company table.
func makeCompanyPrefix(table string) []byte {
	return []byte(table + ":")
}
