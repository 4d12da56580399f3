// Package dict implements the term dictionary of §4.1: a bijection between
// RDF terms and fixed-width 128-bit term identifiers (TIDs), with two
// encodings — inline (bit-exact, no storage lookup) and interned (a
// 120-bit hash resolved through the id2term column family, with bounded
// collision probing).
//
// Grounded in the teacher's internal/encoding/encoder.go (17-byte
// type-tag + 16-byte payload layout, xxh3 128-bit hashing, inline
// numeric/boolean/short-string encoding), generalized to a true 128-bit
// TID with an explicit inline/interned discriminator bit as §4.1 requires,
// plus the hash-collision displacement counter and bounded probe depth
// §4.1 specifies (the teacher never needed these since it never resolves
// hash collisions explicitly).
package dict

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/rdf"
)

// TID is a 128-bit opaque term identifier. The high bit of byte 0
// distinguishes inline (1) from interned (0) encodings; it is fully
// determined by the term so two independent encodes of the same term
// always agree without consulting the dictionary.
type TID [16]byte

const inlineBit = 0x80

// IsInline reports whether t is a self-contained inline encoding.
func (t TID) IsInline() bool { return t[0]&inlineBit != 0 }

// typeTag returns the 7-bit type discriminator carried in byte 0.
func (t TID) typeTag() byte { return t[0] &^ inlineBit }

// displacement returns the collision-probe counter carried in the
// reserved low 7 bits of an interned TID's first byte.
func (t TID) displacement() byte { return t[0] &^ inlineBit }

func (t TID) withDisplacement(d byte) TID {
	t[0] = d &^ inlineBit
	return t
}

// Bytes returns the TID's 16-byte on-disk representation.
func (t TID) Bytes() []byte { return t[:] }

func FromBytes(b []byte) (TID, error) {
	var t TID
	if len(b) != 16 {
		return t, fmt.Errorf("invalid TID length %d", len(b))
	}
	copy(t[:], b)
	return t, nil
}

func (t TID) String() string { return fmt.Sprintf("%x", t[:]) }

// inline type tags (7 bits each, namespaced separately from rdf.TermType
// since a given rdf.TermType can have multiple inline shapes).
const (
	tagBlankNodeCounter byte = iota + 1
	tagInteger
	tagDecimal
	tagDouble
	tagBoolean
	tagDateTime
	tagShortString
	tagDefaultGraph
)

// interned type tags. internedGeneric is the only one and is not written
// into interned TIDs, whose reserved byte carries only the probe
// displacement, so an interned term's kind is known only after lookup.
const (
	internedGeneric byte = iota
)

// MaxInlineStringSize bounds untyped, language-free literals that are
// inlined directly into the TID instead of being interned.
const MaxInlineStringSize = 14

// MaxProbeDepth bounds hash-collision resolution (§4.1); exceeding it is
// CorruptedStorage.
const MaxProbeDepth = 16

// Encodable reports whether term has a fixed bit-exact inline encoding,
// i.e. encoding never needs to consult storage.
func Encodable(term rdf.Term) (TID, bool) {
	switch v := term.(type) {
	case *rdf.DefaultGraph:
		return inlineTID(tagDefaultGraph, nil), true
	case *rdf.BlankNode:
		if n, err := strconv.ParseUint(v.ID, 10, 63); err == nil && strconv.FormatUint(n, 10) == v.ID {
			var payload [8]byte
			binary.BigEndian.PutUint64(payload[:], n)
			return inlineTID(tagBlankNodeCounter, payload[:]), true
		}
		return TID{}, false
	case *rdf.Literal:
		tid, ok := inlineLiteral(v)
		if !ok {
			return TID{}, false
		}
		// Only forms DecodeInline reproduces exactly are inlined; any
		// other lexical form (e.g. "+5", "1.50") is interned instead.
		if back, err := DecodeInline(tid); err != nil || !back.Equals(v) {
			return TID{}, false
		}
		return tid, true
	default:
		return TID{}, false
	}
}

func inlineLiteral(lit *rdf.Literal) (TID, bool) {
	if lit.Datatype == nil {
		if lit.Language != "" {
			return TID{}, false
		}
		if len(lit.Value) <= MaxInlineStringSize {
			return inlineTID(tagShortString, []byte(lit.Value)), true
		}
		return TID{}, false
	}
	switch lit.Datatype.IRI {
	case rdf.XSDInteger.IRI:
		n, err := strconv.ParseInt(lit.Value, 10, 64)
		if err != nil {
			return TID{}, false
		}
		var payload [8]byte
		// Flip the sign bit so big-endian byte order preserves numeric
		// order across negative and positive values, matching §4.1's
		// requirement that inline numeric ordering push down to index
		// seeks on predicate-object pairs.
		binary.BigEndian.PutUint64(payload[:], uint64(n)^(1<<63))
		return inlineTID(tagInteger, payload[:]), true
	case rdf.XSDDecimal.IRI:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return TID{}, false
		}
		return inlineTID(tagDecimal, orderedFloatBytes(f)), true
	case rdf.XSDDouble.IRI, rdf.XSDFloat.IRI:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return TID{}, false
		}
		return inlineTID(tagDouble, orderedFloatBytes(f)), true
	case rdf.XSDBoolean.IRI:
		b, err := strconv.ParseBool(lit.Value)
		if err != nil {
			return TID{}, false
		}
		v := byte(0)
		if b {
			v = 1
		}
		return inlineTID(tagBoolean, []byte{v}), true
	case rdf.XSDDateTime.IRI:
		t, err := parseDateTime(lit.Value)
		if err != nil {
			return TID{}, false
		}
		var payload [8]byte
		binary.BigEndian.PutUint64(payload[:], uint64(t.UnixNano())^(1<<63))
		return inlineTID(tagDateTime, payload[:]), true
	default:
		return TID{}, false
	}
}

func parseDateTime(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// orderedFloatBytes maps a float64 to an 8-byte big-endian encoding under
// which byte-lexicographic order matches numeric order (flip the sign bit
// for positive numbers, invert all bits for negative numbers).
func orderedFloatBytes(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	return buf[:]
}

func orderedFloatFromBytes(buf []byte) float64 {
	bits := binary.BigEndian.Uint64(buf)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

func inlineTID(tag byte, payload []byte) TID {
	var t TID
	t[0] = inlineBit | tag
	copy(t[1:], payload)
	return t
}

// DecodeInline decodes an inline TID back into a term. It never fails:
// inline decoding is total by construction.
func DecodeInline(t TID) (rdf.Term, error) {
	if !t.IsInline() {
		return nil, fmt.Errorf("dict: DecodeInline called on interned TID")
	}
	payload := t[1:]
	switch t.typeTag() {
	case tagDefaultGraph:
		return rdf.NewDefaultGraph(), nil
	case tagBlankNodeCounter:
		n := binary.BigEndian.Uint64(payload[:8])
		return rdf.NewBlankNode(strconv.FormatUint(n, 10)), nil
	case tagInteger:
		n := int64(binary.BigEndian.Uint64(payload[:8]) ^ (1 << 63))
		return rdf.NewIntegerLiteral(n), nil
	case tagDecimal:
		return rdf.NewDecimalLiteral(orderedFloatFromBytes(payload[:8])), nil
	case tagDouble:
		return rdf.NewDoubleLiteral(orderedFloatFromBytes(payload[:8])), nil
	case tagBoolean:
		return rdf.NewBooleanLiteral(payload[0] != 0), nil
	case tagDateTime:
		nanos := int64(binary.BigEndian.Uint64(payload[:8]) ^ (1 << 63))
		t := time.Unix(0, nanos).UTC()
		return rdf.NewLiteralWithDatatype(t.Format(time.RFC3339), rdf.XSDDateTime), nil
	case tagShortString:
		return rdf.NewLiteral(trimShortString(payload)), nil
	default:
		return nil, qerror.Corrupted(fmt.Sprintf("unknown inline TID tag %d", t.typeTag()))
	}
}

func trimShortString(payload []byte) string {
	// Short strings are zero-padded; a literal containing an embedded NUL
	// is never inlined (ParseLiteral-level literals from codecs never
	// carry raw NULs in the supported formats), so trimming trailing
	// zero bytes recovers the exact original value.
	end := len(payload)
	for end > 0 && payload[end-1] == 0 {
		end--
	}
	return string(payload[:end])
}

// Hash128 computes the 128-bit xxh3 hash used to seed interned TIDs.
func Hash128(s string) [16]byte {
	h := xxh3.Hash128([]byte(s))
	var out [16]byte
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

// internedSeed returns the initial (zero-displacement) TID for an
// interned term's canonical string form.
func internedSeed(canonical string) TID {
	h := Hash128(canonical)
	var t TID
	// 120 bits of hash in bytes 1..15; byte 0 is flag(0)+displacement(0).
	copy(t[1:], h[:15])
	return t
}

// nextProbe returns the TID to try after a collision, by incrementing the
// displacement counter carried in the reserved bits.
func nextProbe(t TID) (TID, bool) {
	d := t.displacement()
	if d >= MaxProbeDepth {
		return TID{}, false
	}
	return t.withDisplacement(d + 1), true
}
