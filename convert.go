package oxifuj

import (
	"bufio"
	"io"

	"github.com/aleksaelezovic/oxifuj/internal/codec"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
)

// ConvertNQuads implements §6.6's `convert` command for the one codec
// this module carries a full parser/serializer for (§1's codec
// matrix names N-Quads/N-Triples as in-scope for the bulk loader path;
// Turtle/TriG/RDF-XML/JSON-LD are out of §1's CORE scope and are not
// wired here, per the codec interface contract of §6.3). It streams
// r through the N-Quads decoder and re-serializes to w, which by
// itself is a no-op transform but exercises the same parse→validate→
// serialize path `load`/`dump` use, and is the natural hook a second
// codec would plug into.
func ConvertNQuads(r io.Reader, w io.Writer) error {
	dec := codec.NewNQuadsDecoder(bufio.NewReader(r))
	enc := codec.NewNQuadsEncoder(w)
	for {
		q, err := dec.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return qerror.Parse(err.Error(), "")
		}
		if err := enc.Encode(q); err != nil {
			return qerror.Storage(err, "convert write failed")
		}
	}
}
