package store

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic("store: cbor enc mode: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("store: cbor dec mode: " + err.Error())
	}
}

func encode(v any) ([]byte, error) { return encMode.Marshal(v) }

func decode(b []byte, v any) error { return decMode.Unmarshal(b, v) }
