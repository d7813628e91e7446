package cas

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/zerr"
	"google.golang.org/protobuf/encoding/protowire"
)

// Every blob is framed as
//
//	magic | kind | format version (varint) | records | xxhash64 of everything before (8 bytes LE)
//
// Records use the protobuf wire format, so unknown fields are skipped on read.
const (
	magic         = "STALE"
	formatVersion = 1
	checksumSize  = 8
)

type blobKind byte

const (
	kindHeader   blobKind = 'H'
	kindMetadata blobKind = 'M'
	kindStubs    blobKind = 'S'
	kindFragment blobKind = 'F'
	kindModule   blobKind = 'X'
)

const hashSize = 16

func seal(kind blobKind, body []byte) []byte {
	out := make([]byte, 0, len(magic)+1+1+len(body)+checksumSize)
	out = append(out, magic...)
	out = append(out, byte(kind))
	out = protowire.AppendVarint(out, formatVersion)
	out = append(out, body...)
	return binary.LittleEndian.AppendUint64(out, xxhash.Sum64(out))
}

// unseal verifies the frame of data and returns its records.
func unseal(kind blobKind, data []byte) ([]byte, error) {
	body, err := openPrefix(kind, data)
	if err != nil {
		return nil, err
	}
	if len(body) < checksumSize {
		return nil, corrupt("truncated blob")
	}
	split := len(data) - checksumSize
	if binary.LittleEndian.Uint64(data[split:]) != xxhash.Sum64(data[:split]) {
		return nil, corrupt("checksum mismatch")
	}
	return body[:len(body)-checksumSize], nil
}

// openPrefix checks magic, kind and version, returning everything after them.
func openPrefix(kind blobKind, data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(magic)) {
		return nil, corrupt("bad magic")
	}
	data = data[len(magic):]
	if len(data) == 0 || blobKind(data[0]) != kind {
		return nil, corrupt("unexpected blob kind")
	}
	data = data[1:]
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, corrupt("bad format version")
	}
	if v != formatVersion {
		return nil, corrupt("unsupported format version")
	}
	return data[n:], nil
}

func corrupt(reason string) error {
	return zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "failed to decode cache blob"), "reason", reason)
}

type field struct {
	num protowire.Number
	typ protowire.Type
	raw []byte
}

func (f field) str() string { return string(f.raw) }

// walk visits every length-delimited record of b. Records of other wire types are skipped.
func walk(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return corrupt(protowire.ParseError(n).Error())
		}
		b = b[n:]
		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return corrupt(protowire.ParseError(n).Error())
			}
			b = b[n:]
			continue
		}
		v, m := protowire.ConsumeBytes(b)
		if m < 0 {
			return corrupt(protowire.ParseError(m).Error())
		}
		b = b[m:]
		if err := visit(field{num: num, typ: typ, raw: v}); err != nil {
			return err
		}
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, p []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, p)
}

func appendHash(b []byte, num protowire.Number, h domain.Hash) []byte {
	var raw [hashSize]byte
	binary.LittleEndian.PutUint64(raw[:8], h.Lo)
	binary.LittleEndian.PutUint64(raw[8:], h.Hi)
	return appendBytes(b, num, raw[:])
}

func decodeHash(raw []byte) (domain.Hash, error) {
	if len(raw) != hashSize {
		return domain.Hash{}, corrupt("bad hash length")
	}
	return domain.Hash{
		Lo: binary.LittleEndian.Uint64(raw[:8]),
		Hi: binary.LittleEndian.Uint64(raw[8:]),
	}, nil
}

// Header records.
const (
	headerPath        protowire.Number = 1
	headerName        protowire.Number = 2
	headerFingerprint protowire.Number = 3
	headerFile        protowire.Number = 4

	fileSource      protowire.Number = 1
	fileFingerprint protowire.Number = 2
)

// EncodeHeader serializes a library header.
func EncodeHeader(h domain.LibraryHeader) []byte {
	var b []byte
	b = appendString(b, headerPath, h.Path.String())
	b = appendString(b, headerName, h.Name)
	b = appendHash(b, headerFingerprint, h.Fingerprint)
	for _, f := range h.Files {
		var rec []byte
		rec = appendString(rec, fileSource, f.Source.String())
		rec = appendHash(rec, fileFingerprint, f.Fingerprint)
		b = appendBytes(b, headerFile, rec)
	}
	return seal(kindHeader, b)
}

// DecodeHeader parses a blob written by EncodeHeader.
func DecodeHeader(data []byte) (domain.LibraryHeader, error) {
	var h domain.LibraryHeader
	body, err := unseal(kindHeader, data)
	if err != nil {
		return h, err
	}
	err = walk(body, func(f field) error {
		switch f.num {
		case headerPath:
			h.Path = domain.NewLibraryPath(f.str())
		case headerName:
			h.Name = f.str()
		case headerFingerprint:
			h.Fingerprint, err = decodeHash(f.raw)
			return err
		case headerFile:
			var ff domain.FileFingerprint
			err := walk(f.raw, func(g field) error {
				switch g.num {
				case fileSource:
					ff.Source = domain.NewSourcePath(g.str())
				case fileFingerprint:
					var err error
					ff.Fingerprint, err = decodeHash(g.raw)
					return err
				}
				return nil
			})
			if err != nil {
				return err
			}
			h.Files = append(h.Files, ff)
		}
		return nil
	})
	return h, err
}

// Metadata records. The owning file comes first so that DecodeSource can stop early.
const (
	metaLibrary protowire.Number = 1
	metaSource  protowire.Number = 2
	metaDirect  protowire.Number = 3
	metaInverse protowire.Number = 4

	edgeLibrary protowire.Number = 1
	edgeSource  protowire.Number = 2
	edgeEntry   protowire.Number = 3
	edgeSig     protowire.Number = 4

	entrySig  protowire.Number = 1
	entryHash protowire.Number = 2
)

func appendEdgeKey(b []byte, key domain.FileKey) []byte {
	b = appendString(b, edgeLibrary, key.Library.String())
	return appendString(b, edgeSource, key.Source.String())
}

// EncodeMetadata serializes the metadata of key. FileIDs are resolved through table, and
// edges are written in key order so equal metadata always encodes to equal bytes.
func EncodeMetadata(key domain.FileKey, md *domain.SourceFileMetadata, table *domain.FileTable) []byte {
	var b []byte
	b = appendString(b, metaLibrary, key.Library.String())
	b = appendString(b, metaSource, key.Source.String())

	for _, id := range sortedByKey(md.Direct, table) {
		var edge []byte
		edge = appendEdgeKey(edge, table.Key(id))
		sigs := md.Direct[id]
		for _, sig := range sigs.Sorted() {
			var entry []byte
			entry = appendString(entry, entrySig, sig.String())
			entry = appendHash(entry, entryHash, sigs[sig])
			edge = appendBytes(edge, edgeEntry, entry)
		}
		b = appendBytes(b, metaDirect, edge)
	}

	for _, id := range sortedByKey(md.Inverse, table) {
		var edge []byte
		edge = appendEdgeKey(edge, table.Key(id))
		for _, sig := range md.Inverse[id].Sorted() {
			edge = appendString(edge, edgeSig, sig.String())
		}
		b = appendBytes(b, metaInverse, edge)
	}
	return seal(kindMetadata, b)
}

func sortedByKey[V any](edges map[domain.FileID]V, table *domain.FileTable) []domain.FileID {
	ids := domain.SortedIDs(edges)
	slices.SortFunc(ids, func(a, b domain.FileID) int {
		return table.Key(a).Compare(table.Key(b))
	})
	return ids
}

// DecodeMetadata parses a blob written by EncodeMetadata, interning referenced files into
// table. It returns the owning file recorded in the blob.
func DecodeMetadata(data []byte, table *domain.FileTable) (domain.FileKey, *domain.SourceFileMetadata, error) {
	var (
		owner    ownerKey
		md       = domain.NewSourceFileMetadata()
		edgeKey  ownerKey
		decodeFn func(g field) error
	)
	body, err := unseal(kindMetadata, data)
	if err != nil {
		return domain.FileKey{}, nil, err
	}

	err = walk(body, func(f field) error {
		switch f.num {
		case metaLibrary, metaSource:
			owner.set(f)
		case metaDirect:
			edgeKey = ownerKey{}
			hashes := make(domain.SignatureHashes)
			decodeFn = func(g field) error {
				switch g.num {
				case edgeLibrary, edgeSource:
					edgeKey.set(g)
				case edgeEntry:
					var (
						sig domain.Signature
						h   domain.Hash
					)
					err := walk(g.raw, func(e field) error {
						switch e.num {
						case entrySig:
							sig = domain.NewSignature(e.str())
						case entryHash:
							var err error
							h, err = decodeHash(e.raw)
							return err
						}
						return nil
					})
					if err != nil {
						return err
					}
					hashes[sig] = h
				}
				return nil
			}
			if err := walk(f.raw, decodeFn); err != nil {
				return err
			}
			key, err := edgeKey.key()
			if err != nil {
				return err
			}
			md.Direct[table.Intern(key)] = hashes
		case metaInverse:
			edgeKey = ownerKey{}
			sigs := make(domain.SignatureSet)
			decodeFn = func(g field) error {
				switch g.num {
				case edgeLibrary, edgeSource:
					edgeKey.set(g)
				case edgeSig:
					sigs.Add(domain.NewSignature(g.str()))
				}
				return nil
			}
			if err := walk(f.raw, decodeFn); err != nil {
				return err
			}
			key, err := edgeKey.key()
			if err != nil {
				return err
			}
			md.Inverse[table.Intern(key)] = sigs
		}
		return nil
	})
	if err != nil {
		return domain.FileKey{}, nil, err
	}
	key, err := owner.key()
	if err != nil {
		return domain.FileKey{}, nil, err
	}
	return key, md, nil
}

// DecodeSource reads only the owning file of a metadata blob. data may be a prefix of the
// blob; the checksum is not verified.
func DecodeSource(data []byte) (domain.FileKey, error) {
	body, err := openPrefix(kindMetadata, data)
	if err != nil {
		return domain.FileKey{}, err
	}
	var owner ownerKey
	for len(body) > 0 && !owner.complete() {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 || typ != protowire.BytesType || (num != metaLibrary && num != metaSource) {
			break
		}
		v, m := protowire.ConsumeBytes(body[n:])
		if m < 0 {
			break
		}
		owner.set(field{num: num, typ: typ, raw: v})
		body = body[n+m:]
	}
	return owner.key()
}

// ownerKey assembles a FileKey from a library record (1) and a source record (2).
type ownerKey struct {
	lib, src       string
	hasLib, hasSrc bool
}

func (o *ownerKey) set(f field) {
	if f.num == 1 {
		o.lib, o.hasLib = f.str(), true
		return
	}
	o.src, o.hasSrc = f.str(), true
}

func (o *ownerKey) complete() bool { return o.hasLib && o.hasSrc }

func (o *ownerKey) key() (domain.FileKey, error) {
	if !o.complete() {
		return domain.FileKey{}, corrupt("missing file key")
	}
	return domain.NewFileKey(o.lib, o.src), nil
}

// Stub records.
const (
	stubFile protowire.Number = 1

	stubSource protowire.Number = 1
	stubSig    protowire.Number = 2
)

// EncodeStubs serializes the stubbed signatures of each file of a library.
func EncodeStubs(stubs map[domain.SourcePath]domain.SignatureSet) []byte {
	var b []byte
	srcs := make([]domain.SourcePath, 0, len(stubs))
	for src := range stubs {
		srcs = append(srcs, src)
	}
	slices.SortFunc(srcs, domain.SourcePath.Compare)
	for _, src := range srcs {
		var rec []byte
		rec = appendString(rec, stubSource, src.String())
		for _, sig := range stubs[src].Sorted() {
			rec = appendString(rec, stubSig, sig.String())
		}
		b = appendBytes(b, stubFile, rec)
	}
	return seal(kindStubs, b)
}

// DecodeStubs parses a blob written by EncodeStubs.
func DecodeStubs(data []byte) (map[domain.SourcePath]domain.SignatureSet, error) {
	body, err := unseal(kindStubs, data)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.SourcePath]domain.SignatureSet)
	err = walk(body, func(f field) error {
		if f.num != stubFile {
			return nil
		}
		var src domain.SourcePath
		sigs := make(domain.SignatureSet)
		if err := walk(f.raw, func(g field) error {
			switch g.num {
			case stubSource:
				src = domain.NewSourcePath(g.str())
			case stubSig:
				sigs.Add(domain.NewSignature(g.str()))
			}
			return nil
		}); err != nil {
			return err
		}
		out[src] = sigs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Fragment records.
const (
	fragmentSymbol protowire.Number = 1
	fragmentBytes  protowire.Number = 2
)

// EncodeFragment serializes a compiled artifact.
func EncodeFragment(a *domain.CacheArtifact) []byte {
	var b []byte
	for _, sig := range a.Symbols {
		b = appendString(b, fragmentSymbol, sig.String())
	}
	b = appendBytes(b, fragmentBytes, a.Fragment)
	return seal(kindFragment, b)
}

// DecodeFragment parses a blob written by EncodeFragment.
func DecodeFragment(data []byte) (*domain.CacheArtifact, error) {
	body, err := unseal(kindFragment, data)
	if err != nil {
		return nil, err
	}
	a := &domain.CacheArtifact{}
	err = walk(body, func(f field) error {
		switch f.num {
		case fragmentSymbol:
			a.Symbols = append(a.Symbols, domain.NewSignature(f.str()))
		case fragmentBytes:
			a.Fragment = bytes.Clone(f.raw)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Module records.
const (
	moduleHash protowire.Number = 1
	moduleFile protowire.Number = 2
)

// EncodeModule serializes the cross-module record of a library.
func EncodeModule(m domain.ModuleRecord) []byte {
	var b []byte
	b = appendHash(b, moduleHash, m.CrossModuleHash)
	for _, src := range m.Files {
		b = appendString(b, moduleFile, src.String())
	}
	return seal(kindModule, b)
}

// DecodeModule parses a blob written by EncodeModule.
func DecodeModule(data []byte) (domain.ModuleRecord, error) {
	var m domain.ModuleRecord
	body, err := unseal(kindModule, data)
	if err != nil {
		return m, err
	}
	err = walk(body, func(f field) error {
		switch f.num {
		case moduleHash:
			var err error
			m.CrossModuleHash, err = decodeHash(f.raw)
			return err
		case moduleFile:
			m.Files = append(m.Files, domain.NewSourcePath(f.str()))
		}
		return nil
	})
	return m, err
}
