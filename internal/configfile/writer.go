package configfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vmrealm/agentrt/internal/variant"
)

// Write serializes dict back to the brace grammar , with one
// pair per line and two-space indentation per nesting level. Parse reads
// the output back to an equal Dictionary when every key is a string key;
// integer-keyed entries (from name[] / name[i] keys or numeric
// sequences) are written with a bare integer as the key, which Parse
// does not accept. Kinds other than string/char/bool/float/double/
// dictionary are written as an integer.
func Write(dict *variant.Dictionary) string {
	var b strings.Builder
	writeMapBody(&b, dict, 0, false)
	return b.String()
}

func writeMapBody(b *strings.Builder, dict *variant.Dictionary, indent int, braced bool) {
	pad := strings.Repeat("  ", indent)
	if braced {
		b.WriteString(pad)
		b.WriteString("{\n")
	}
	innerPad := pad
	if braced {
		innerPad = strings.Repeat("  ", indent+1)
	}
	dict.IterateInsertionOrder(func(key variant.Key, value variant.Variant) bool {
		b.WriteString(innerPad)
		b.WriteString(key.String())
		b.WriteString(" ")
		writeValue(b, value, indent+1)
		b.WriteString("\n")
		return true
	})
	if braced {
		b.WriteString(pad)
		b.WriteString("}\n")
	}
}

func writeValue(b *strings.Builder, v variant.Variant, indent int) {
	switch v.Kind() {
	case variant.KindString, variant.KindChar:
		fmt.Fprintf(b, "%q", v.AsString())
	case variant.KindBool:
		b.WriteString(strconv.FormatBool(v.AsBool()))
	case variant.KindFloat, variant.KindDouble:
		b.WriteString(strconv.FormatFloat(v.AsFloat64(), 'f', -1, 64))
	case variant.KindDictionary:
		b.WriteString("{\n")
		writeMapBody(b, v.AsDictionary(), indent, false)
		b.WriteString(strings.Repeat("  ", indent))
		b.WriteString("}")
	default:
		b.WriteString(strconv.FormatInt(v.AsInt64(), 10))
	}
}
