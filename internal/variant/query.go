package variant

import (
	"github.com/PaesslerAG/jsonpath"
)

// Query evaluates a JSONPath expression against the dictionary's JSON
// projection, the ADDED Dictionary.Query operation for tooling and the
// admin surface that wants to pull a nested value without a script
// engine in the loop.
func (d *Dictionary) Query(path string) (any, error) {
	return jsonpath.Get(path, d.toJSONValue())
}
