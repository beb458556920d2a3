package trace

import (
	"io"

	"github.com/goccy/go-json"
)

func newJSONEncoder(w io.Writer) encoder { return json.NewEncoder(w) }

func newJSONDecoder(r io.Reader) decoder { return json.NewDecoder(r) }
