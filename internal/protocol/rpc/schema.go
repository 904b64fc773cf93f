package rpc

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const envelopeSchemaURL = "https://walletlink.local/schemas/jsonrpc-envelope.json"

const envelopeSchemaSource = `{
  "type": "object",
  "required": ["id", "jsonrpc"],
  "properties": {
    "id": {"type": "integer", "minimum": 0},
    "jsonrpc": {"const": "2.0"},
    "method": {"type": "string", "minLength": 1},
    "error": {
      "type": "object",
      "required": ["code", "message"],
      "properties": {
        "code": {"type": "integer"},
        "message": {"type": "string"}
      }
    }
  },
  "oneOf": [
    {"required": ["method", "params"]},
    {"required": ["result"], "not": {"anyOf": [{"required": ["method"]}, {"required": ["error"]}]}},
    {"required": ["error"], "not": {"anyOf": [{"required": ["method"]}, {"required": ["result"]}]}}
  ]
}`

var (
	envelopeOnce     sync.Once
	envelopeCompiled *jsonschema.Schema
)

func envelopeSchema() *jsonschema.Schema {
	envelopeOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(envelopeSchemaURL, strings.NewReader(envelopeSchemaSource)); err != nil {
			panic("rpc: load envelope schema: " + err.Error())
		}
		envelopeCompiled = c.MustCompile(envelopeSchemaURL)
	})
	return envelopeCompiled
}
