package gtree

import (
	"encoding"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// formatTag and formatVersion identify the wire format written by
// WriteWithTag so ReadWithTag can refuse to load a file it cannot interpret. This is the
// enabled counterpart of original_source/include/guiding/guiding.h's
// writeType/readType scaffolding, which tags a block with a type name and
// warns (but does not reject) on mismatch; here a mismatch is a hard error
// rather than a warning, since there is no renderer process around this
// code to keep running after a corrupt load.
const (
	formatTag     uint32 = 0x62747233 // "btr3"
	formatVersion uint32 = 1
)

// WriteTo serializes the tree's node pool: a little-endian uint64 node
// count, followed per node by density (float64), the Value's encoded
// length and bytes, weight (float64), and arity child indices (int32) —
// spec.md §6's binary persistence format.
//
// V must implement encoding.BinaryMarshaler for the value field to
// serialize; Float64 does. A Value type that doesn't implement it makes
// WriteTo fail with an error rather than silently dropping data.
func (t *Tree[V]) WriteTo(w io.Writer) (int64, error) {
	var written int64

	if err := binary.Write(w, binary.LittleEndian, uint64(len(t.nodes))); err != nil {
		return written, errors.Wrap(err, "gtree: write node count")
	}
	written += 8

	for i, n := range t.nodes {
		nw, err := writeNode(w, n)
		written += nw
		if err != nil {
			return written, errors.Wrapf(err, "gtree: write node %d", i)
		}
	}

	return written, nil
}

func writeNode[V Accumulator[V]](w io.Writer, n *node[V]) (int64, error) {
	var written int64

	if err := binary.Write(w, binary.LittleEndian, n.density.load()); err != nil {
		return written, errors.Wrap(err, "write density")
	}
	written += 8

	value := n.value.load()
	marshaler, ok := any(value).(encoding.BinaryMarshaler)
	if !ok {
		return written, errors.Errorf("gtree: value type %T does not implement encoding.BinaryMarshaler", value)
	}
	payload, err := marshaler.MarshalBinary()
	if err != nil {
		return written, errors.Wrap(err, "marshal value")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return written, errors.Wrap(err, "write value length")
	}
	written += 4
	nw, err := w.Write(payload)
	written += int64(nw)
	if err != nil {
		return written, errors.Wrap(err, "write value payload")
	}

	if err := binary.Write(w, binary.LittleEndian, n.weight.load()); err != nil {
		return written, errors.Wrap(err, "write weight")
	}
	written += 8

	for _, c := range n.children {
		if err := binary.Write(w, binary.LittleEndian, c); err != nil {
			return written, errors.Wrap(err, "write child index")
		}
		written += 4
	}

	return written, nil
}

// ReadFrom replaces the tree's node pool with one read back from r, in the
// format written by WriteTo. The tree's dimension/arity/target/settings are
// left as constructed; only the pool is replaced.
func (t *Tree[V]) ReadFrom(r io.Reader) (int64, error) {
	var read int64

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return read, errors.Wrap(err, "gtree: read node count")
	}
	read += 8

	nodes := make([]*node[V], 0, count)
	for i := uint64(0); i < count; i++ {
		n, nr, err := readNode[V](r, t.arity)
		read += nr
		if err != nil {
			return read, errors.Wrapf(err, "gtree: read node %d", i)
		}
		nodes = append(nodes, n)
	}

	t.nodes = nodes
	return read, nil
}

func readNode[V Accumulator[V]](r io.Reader, arity int) (*node[V], int64, error) {
	n := newNode[V](arity)
	var read int64

	var density float64
	if err := binary.Read(r, binary.LittleEndian, &density); err != nil {
		return nil, read, errors.Wrap(err, "read density")
	}
	read += 8

	var payloadLen uint32
	if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return nil, read, errors.Wrap(err, "read value length")
	}
	read += 4

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, read, errors.Wrap(err, "read value payload")
	}
	read += int64(payloadLen)

	var value V
	unmarshaler, ok := any(&value).(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, read, errors.Errorf("gtree: value type %T does not implement encoding.BinaryUnmarshaler", value)
	}
	if err := unmarshaler.UnmarshalBinary(payload); err != nil {
		return nil, read, errors.Wrap(err, "unmarshal value")
	}

	var weight float64
	if err := binary.Read(r, binary.LittleEndian, &weight); err != nil {
		return nil, read, errors.Wrap(err, "read weight")
	}
	read += 8

	for i := range n.children {
		var c int32
		if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
			return nil, read, errors.Wrap(err, "read child index")
		}
		read += 4
		n.children[i] = c
	}

	n.density.store(density)
	n.weight.store(weight)
	n.value.store(value)

	return &n, read, nil
}

// WriteWithTag writes a format tag and version ahead of WriteTo's payload,
// so ReadWithTag can reject a file from an incompatible writer outright
// instead of failing deep inside node decoding.
func (t *Tree[V]) WriteWithTag(w io.Writer) (int64, error) {
	var written int64
	if err := binary.Write(w, binary.LittleEndian, formatTag); err != nil {
		return written, errors.Wrap(err, "gtree: write format tag")
	}
	written += 4
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return written, errors.Wrap(err, "gtree: write format version")
	}
	written += 4

	nw, err := t.WriteTo(w)
	written += nw
	return written, err
}

// ReadWithTag validates the format tag/version written by WriteWithTag
// before delegating to ReadFrom.
func (t *Tree[V]) ReadWithTag(r io.Reader) (int64, error) {
	var read int64

	var tag, version uint32
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return read, errors.Wrap(err, "gtree: read format tag")
	}
	read += 4
	if tag != formatTag {
		return read, errors.Errorf("gtree: unrecognized format tag %#x", tag)
	}

	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return read, errors.Wrap(err, "gtree: read format version")
	}
	read += 4
	if version != formatVersion {
		return read, errors.Errorf("gtree: unsupported format version %d", version)
	}

	nr, err := t.ReadFrom(r)
	read += nr
	return read, err
}
