// Package fixture serializes complete analysis inputs for byte-exact
// replay. A fixture pack is a zstd-compressed container holding one
// digest-verified JSON payload.
package fixture

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"

	"arcsight/attribute"
	"arcsight/cas"
	"arcsight/config"
	"arcsight/engine"
	"arcsight/snapshot"
)

// Pack format:
// [4 bytes: header length (big-endian)]
// [header JSON: packHeader]
// [fixture JSON payload]
//
// The whole container is zstd-compressed. The header carries the payload
// digest, verified on read.

const (
	headerLengthSize = 4
	maxHeaderSize    = 1 * 1024 * 1024
)

type packHeader struct {
	Digest string `json:"digest"`
	Length int64  `json:"length"`
}

// Fixture is a replayable analysis input. Snapshots are stored as raw
// file lists so canonicalization runs again on replay.
type Fixture struct {
	Identity         map[string]string    `json:"identity"`
	ConfigYAML       string               `json:"config_yaml"`
	Head             []snapshot.File      `json:"head"`
	Base             []snapshot.File      `json:"base"`
	HasDiff          bool                 `json:"has_diff"`
	ChangedFiles     []string             `json:"changed_files"`
	AddedImportLines []attribute.LineRef  `json:"added_import_lines"`
	Prior            []attribute.Reported `json:"prior"`
}

// Input converts the fixture into an analysis input, parsing the
// embedded config.
func (f *Fixture) Input() (engine.Input, error) {
	cfg, err := config.Load([]byte(f.ConfigYAML))
	if err != nil {
		return engine.Input{}, fmt.Errorf("fixture config: %w", err)
	}

	in := engine.Input{
		Identity: f.Identity,
		Config:   cfg,
		Head:     f.Head,
		Base:     f.Base,
		Prior:    f.Prior,
	}

	if f.HasDiff {
		diff := &attribute.PRDiff{
			ChangedFiles:     make(map[string]bool, len(f.ChangedFiles)),
			AddedImportLines: make(map[attribute.LineRef]bool, len(f.AddedImportLines)),
		}
		for _, p := range f.ChangedFiles {
			diff.ChangedFiles[p] = true
		}
		for _, ref := range f.AddedImportLines {
			diff.AddedImportLines[ref] = true
		}
		in.Diff = diff
	}

	return in, nil
}

// FromInput builds a fixture from an analysis input and the raw config
// document it was loaded from. Diff maps are flattened to sorted lists
// so two fixtures built from the same input encode identically.
func FromInput(in engine.Input, configYAML string) *Fixture {
	f := &Fixture{
		Identity:   in.Identity,
		ConfigYAML: configYAML,
		Head:       in.Head,
		Base:       in.Base,
		Prior:      in.Prior,
	}

	if in.Diff != nil {
		f.HasDiff = true
		for p := range in.Diff.ChangedFiles {
			f.ChangedFiles = append(f.ChangedFiles, p)
		}
		for ref := range in.Diff.AddedImportLines {
			f.AddedImportLines = append(f.AddedImportLines, ref)
		}
		sort.Strings(f.ChangedFiles)
		sort.Slice(f.AddedImportLines, func(i, j int) bool {
			a, b := f.AddedImportLines[i], f.AddedImportLines[j]
			if a.Path != b.Path {
				return a.Path < b.Path
			}
			return a.Line < b.Line
		})
	}

	return f
}

// Encode serializes the fixture into a compressed pack.
func Encode(f *Fixture) ([]byte, error) {
	payload, err := cas.CanonicalJSON(f)
	if err != nil {
		return nil, fmt.Errorf("serializing fixture: %w", err)
	}

	headerJSON, err := json.Marshal(packHeader{
		Digest: cas.Blake3HashHex(payload),
		Length: int64(len(payload)),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	var pack bytes.Buffer
	headerLen := make([]byte, headerLengthSize)
	binary.BigEndian.PutUint32(headerLen, uint32(len(headerJSON)))
	pack.Write(headerLen)
	pack.Write(headerJSON)
	pack.Write(payload)

	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(pack.Bytes()); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	return compressed.Bytes(), nil
}

// Decode reads a pack produced by Encode, verifying the payload digest.
func Decode(r io.Reader) (*Fixture, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	decompressed, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}

	if len(decompressed) < headerLengthSize {
		return nil, fmt.Errorf("pack too small: %d bytes", len(decompressed))
	}

	headerLen := binary.BigEndian.Uint32(decompressed[:headerLengthSize])
	if headerLen > maxHeaderSize {
		return nil, fmt.Errorf("header too large: %d bytes", headerLen)
	}
	if int(headerLengthSize+headerLen) > len(decompressed) {
		return nil, fmt.Errorf("header length exceeds pack size")
	}

	var header packHeader
	if err := json.Unmarshal(decompressed[headerLengthSize:headerLengthSize+headerLen], &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}

	payload := decompressed[headerLengthSize+headerLen:]
	if int64(len(payload)) != header.Length {
		return nil, fmt.Errorf("payload length %d does not match header %d", len(payload), header.Length)
	}
	if digest := cas.Blake3HashHex(payload); digest != header.Digest {
		return nil, fmt.Errorf("payload digest mismatch")
	}

	var f Fixture
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

// WriteFile encodes the fixture to a pack file.
func WriteFile(path string, f *Fixture) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile decodes a pack file.
func ReadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return Decode(bytes.NewReader(data))
}
