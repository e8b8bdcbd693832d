// Package cas provides content-addressing utilities: BLAKE3 hashing and
// canonical JSON serialization with stable key ordering.
package cas

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"sort"

	"lukechampine.com/blake3"
)

// CanonicalJSON converts a value to canonical JSON: all object keys sorted
// ascending at every depth, no insignificant whitespace, default number
// formatting. Two structurally equal values always serialize to identical
// bytes.
func CanonicalJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var obj interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}

	return canonicalMarshal(obj)
}

func canonicalMarshal(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		return marshalSortedMap(val)
	case []interface{}:
		return marshalArray(val)
	default:
		return json.Marshal(v)
	}
}

func marshalSortedMap(m map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := canonicalMarshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalArray(arr []interface{}) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, v := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		valBytes, err := canonicalMarshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Blake3Hash computes a BLAKE3 hash of the input and returns it as bytes.
func Blake3Hash(data []byte) []byte {
	hash := blake3.Sum256(data)
	return hash[:]
}

// Blake3HashHex computes a BLAKE3 hash and returns it as a hex string.
func Blake3HashHex(data []byte) string {
	return hex.EncodeToString(Blake3Hash(data))
}

// NewBlake3Hasher returns a new streaming BLAKE3 hasher.
func NewBlake3Hasher() *blake3.Hasher {
	return blake3.New(32, nil)
}

// DigestHex computes the content-addressed digest of a value:
// blake3(kind + "\n" + canonicalJSON(payload)), hex-encoded.
func DigestHex(kind string, payload interface{}) (string, error) {
	canonicalPayload, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}

	data := append([]byte(kind+"\n"), canonicalPayload...)
	return Blake3HashHex(data), nil
}
