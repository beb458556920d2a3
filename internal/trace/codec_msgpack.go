package trace

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

func newMsgpackEncoder(w io.Writer) encoder {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	return enc
}

func newMsgpackDecoder(r io.Reader) decoder { return msgpack.NewDecoder(r) }
