package dict

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/aleksaelezovic/oxifuj/internal/kvstore"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// Dictionary implements the term <-> TID bijection of §4.1 over the
// id2term column family.
type Dictionary struct{}

func New() *Dictionary { return &Dictionary{} }

// EncodeForInsert returns term's TID, total over all well-formed terms.
// For interned terms it writes id2term if the term is new to the store;
// this is a write operation and txn must be writable.
func (d *Dictionary) EncodeForInsert(txn kvstore.Transaction, term rdf.Term) (TID, error) {
	if tid, ok := Encodable(term); ok {
		return tid, nil
	}

	canonical, err := encodeCanonical(term)
	if err != nil {
		return TID{}, err
	}

	tid := internedSeed(canonicalKey(term))
	for probe := 0; ; probe++ {
		existing, err := txn.Get(kvstore.TableID2Term, tid.Bytes())
		if err == kvstore.ErrNotFound {
			if err := txn.Set(kvstore.TableID2Term, tid.Bytes(), canonical); err != nil {
				return TID{}, err
			}
			return tid, nil
		}
		if err != nil {
			return TID{}, qerror.Storage(err, "dictionary lookup failed")
		}
		if bytes.Equal(existing, canonical) {
			return tid, nil
		}
		next, ok := nextProbe(tid)
		if !ok {
			return TID{}, qerror.Corrupted(fmt.Sprintf("hash collision probe depth exceeded for %s", term))
		}
		tid = next
	}
}

// EncodeForRead is pure: it never writes. It returns ok=false when term is
// not inlinable and is not already present in the dictionary, so pattern
// matching can short-circuit an impossible pattern without a write
// transaction.
func (d *Dictionary) EncodeForRead(txn kvstore.Transaction, term rdf.Term) (TID, bool, error) {
	if tid, ok := Encodable(term); ok {
		return tid, true, nil
	}

	canonical, err := encodeCanonical(term)
	if err != nil {
		return TID{}, false, err
	}

	tid := internedSeed(canonicalKey(term))
	for {
		existing, err := txn.Get(kvstore.TableID2Term, tid.Bytes())
		if err == kvstore.ErrNotFound {
			return TID{}, false, nil
		}
		if err != nil {
			return TID{}, false, qerror.Storage(err, "dictionary lookup failed")
		}
		if bytes.Equal(existing, canonical) {
			return tid, true, nil
		}
		next, ok := nextProbe(tid)
		if !ok {
			return TID{}, false, nil
		}
		tid = next
	}
}

// Decode resolves a TID back into a term. Inline decoding is infallible;
// interned decoding fails with CorruptedStorage if the TID is absent from
// id2term, which violates the dictionary's bijection invariant.
func (d *Dictionary) Decode(txn kvstore.Transaction, tid TID) (rdf.Term, error) {
	if tid.IsInline() {
		return DecodeInline(tid)
	}
	raw, err := txn.Get(kvstore.TableID2Term, tid.Bytes())
	if err == kvstore.ErrNotFound {
		return nil, qerror.Corrupted(fmt.Sprintf("interned TID %s missing from id2term", tid))
	}
	if err != nil {
		return nil, qerror.Storage(err, "dictionary decode failed")
	}
	return decodeCanonical(raw)
}

// canonical term encoding for id2term values and collision comparison.

const (
	canNamedNode byte = iota + 1
	canBlankNode
	canStringLiteral
	canLangLiteral
	canTypedLiteral
	canTripleTerm
)

// canonicalKey returns the string xxh3 hashes to seed an interned TID.
// It must be a lossless, unambiguous rendering of the term (distinct
// terms never share a canonical key).
func canonicalKey(term rdf.Term) string {
	switch t := term.(type) {
	case *rdf.NamedNode:
		return "I" + t.IRI
	case *rdf.BlankNode:
		return "B" + t.ID
	case *rdf.Literal:
		if t.Datatype != nil {
			return "T" + t.Datatype.IRI + "\x00" + t.Value
		}
		if t.Language != "" {
			return "L" + t.Language + "\x00" + t.Value
		}
		return "S" + t.Value
	case *rdf.TripleTerm:
		return "Q" + canonicalKey(t.Subject) + "\x00" + canonicalKey(t.Predicate) + "\x00" + canonicalKey(t.Object)
	default:
		return fmt.Sprintf("?%v", term)
	}
}

func encodeCanonical(term rdf.Term) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, term); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, term rdf.Term) error {
	switch t := term.(type) {
	case *rdf.NamedNode:
		buf.WriteByte(canNamedNode)
		writeLenString(buf, t.IRI)
	case *rdf.BlankNode:
		buf.WriteByte(canBlankNode)
		writeLenString(buf, t.ID)
	case *rdf.Literal:
		switch {
		case t.Datatype != nil:
			buf.WriteByte(canTypedLiteral)
			writeLenString(buf, t.Datatype.IRI)
			writeLenString(buf, t.Value)
		case t.Language != "":
			buf.WriteByte(canLangLiteral)
			writeLenString(buf, t.Language)
			writeLenString(buf, t.Value)
		default:
			buf.WriteByte(canStringLiteral)
			writeLenString(buf, t.Value)
		}
	case *rdf.TripleTerm:
		buf.WriteByte(canTripleTerm)
		if err := writeCanonical(buf, t.Subject); err != nil {
			return err
		}
		if err := writeCanonical(buf, t.Predicate); err != nil {
			return err
		}
		if err := writeCanonical(buf, t.Object); err != nil {
			return err
		}
	default:
		return fmt.Errorf("dict: unsupported term type %T", term)
	}
	return nil
}

func writeLenString(buf *bytes.Buffer, s string) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func readLenString(r *bytes.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeCanonical(raw []byte) (rdf.Term, error) {
	r := bytes.NewReader(raw)
	return readCanonical(r)
}

func readCanonical(r *bytes.Reader) (rdf.Term, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, qerror.Corrupted("truncated canonical term encoding")
	}
	switch tag {
	case canNamedNode:
		iri, err := readLenString(r)
		if err != nil {
			return nil, qerror.Corrupted("truncated named node")
		}
		return rdf.NewNamedNode(iri), nil
	case canBlankNode:
		id, err := readLenString(r)
		if err != nil {
			return nil, qerror.Corrupted("truncated blank node")
		}
		return rdf.NewBlankNode(id), nil
	case canStringLiteral:
		v, err := readLenString(r)
		if err != nil {
			return nil, qerror.Corrupted("truncated string literal")
		}
		return rdf.NewLiteral(v), nil
	case canLangLiteral:
		lang, err := readLenString(r)
		if err != nil {
			return nil, qerror.Corrupted("truncated lang literal")
		}
		v, err := readLenString(r)
		if err != nil {
			return nil, qerror.Corrupted("truncated lang literal")
		}
		return rdf.NewLiteralWithLanguage(v, lang), nil
	case canTypedLiteral:
		dt, err := readLenString(r)
		if err != nil {
			return nil, qerror.Corrupted("truncated typed literal")
		}
		v, err := readLenString(r)
		if err != nil {
			return nil, qerror.Corrupted("truncated typed literal")
		}
		return rdf.NewLiteralWithDatatype(v, rdf.NewNamedNode(dt)), nil
	case canTripleTerm:
		s, err := readCanonical(r)
		if err != nil {
			return nil, err
		}
		p, err := readCanonical(r)
		if err != nil {
			return nil, err
		}
		o, err := readCanonical(r)
		if err != nil {
			return nil, err
		}
		return rdf.NewTripleTerm(s, p, o)
	default:
		return nil, qerror.Corrupted(fmt.Sprintf("unknown canonical term tag %d", tag))
	}
}
