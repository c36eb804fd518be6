package configfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vmrealm/agentrt/internal/variant"
)

// Parse parses a brace-grouped config document grammar
// sketch into a Dictionary. The document itself is an implicit
// top-level map: '{' and '}' are optional around the whole file.
func Parse(src string) (*variant.Dictionary, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	implicitBraces := p.tok.kind != tokLBrace
	dict, err := p.parseMapBody(!implicitBraces)
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("configfile: unexpected trailing token at line %d", p.tok.line)
	}
	return dict, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// parseMapBody parses pair* optionally delimited by braces; closeBraces
// indicates the caller already consumed an opening '{' and expects a
// matching '}'.
func (p *parser) parseMapBody(closeBraces bool) (*variant.Dictionary, error) {
	if closeBraces {
		if p.tok.kind != tokLBrace {
			return nil, fmt.Errorf("configfile: expected '{' at line %d", p.tok.line)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	dict := variant.NewDictionary()
	for {
		if closeBraces && p.tok.kind == tokRBrace {
			return dict, p.advance()
		}
		if !closeBraces && p.tok.kind == tokEOF {
			return dict, nil
		}
		if err := p.parsePair(dict); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parsePair(dict *variant.Dictionary) error {
	if p.tok.kind != tokIdent {
		return fmt.Errorf("configfile: expected key at line %d, got token kind %d", p.tok.line, p.tok.kind)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return err
	}

	arrayIndex, isArrayKey, err := p.parseKeySuffix()
	if err != nil {
		return err
	}

	value, err := p.parseValue()
	if err != nil {
		return err
	}

	if !isArrayKey {
		dict.Set(variant.StringKey(name), value)
		return nil
	}

	nested := dict.Get(variant.StringKey(name), variant.Nil())
	var nestedDict *variant.Dictionary
	if nested.IsDictionary() {
		nestedDict = nested.AsDictionary()
	} else {
		nestedDict = variant.NewDictionary()
		dict.Set(variant.StringKey(name), variant.FromDictionary(nestedDict))
	}

	if arrayIndex < 0 {
		nestedDict.Append(value)
	} else {
		nestedDict.Set(variant.IntKey(arrayIndex), value)
		if arrayIndex+1 > nestedDict.GetNextArrayIndex() {
			nestedDict.SetNextArrayIndex(arrayIndex + 1)
		}
	}
	return nil
}

// parseKeySuffix consumes an optional '[' integer? ']' suffix. Returns
// (-1, true) for 'name[]' (append), (i, true) for 'name[i]', and
// (0, false) for a plain key.
func (p *parser) parseKeySuffix() (int64, bool, error) {
	if p.tok.kind != tokLBracket {
		return 0, false, nil
	}
	if err := p.advance(); err != nil {
		return 0, false, err
	}
	if p.tok.kind == tokRBracket {
		return -1, true, p.advance()
	}
	if p.tok.kind != tokNumber {
		return 0, false, fmt.Errorf("configfile: expected integer index at line %d", p.tok.line)
	}
	idx, err := strconv.ParseInt(p.tok.text, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("configfile: invalid array index %q at line %d", p.tok.text, p.tok.line)
	}
	if err := p.advance(); err != nil {
		return 0, false, err
	}
	if p.tok.kind != tokRBracket {
		return 0, false, fmt.Errorf("configfile: expected ']' at line %d", p.tok.line)
	}
	return idx, true, p.advance()
}

func (p *parser) parseValue() (variant.Variant, error) {
	switch p.tok.kind {
	case tokString:
		s := p.tok.text
		return variant.String(s), p.advance()
	case tokBool:
		b := p.tok.text == "true"
		return variant.Bool(b), p.advance()
	case tokLBrace:
		dict, err := p.parseMapBody(true)
		if err != nil {
			return variant.Nil(), err
		}
		return variant.FromDictionary(dict), nil
	case tokLParen:
		return p.parseRawParenBlob()
	case tokNumber:
		return p.parseNumberSequence()
	default:
		return variant.Nil(), fmt.Errorf("configfile: unexpected value token at line %d", p.tok.line)
	}
}

// parseRawParenBlob captures '(' ... ')' verbatim as a string, for
// host-specific expression forms the grammar leaves open-ended.
func (p *parser) parseRawParenBlob() (variant.Variant, error) {
	var b strings.Builder
	depth := 1
	if err := p.advance(); err != nil {
		return variant.Nil(), err
	}
	for depth > 0 {
		switch p.tok.kind {
		case tokEOF:
			return variant.Nil(), fmt.Errorf("configfile: unterminated '(' block")
		case tokLParen:
			depth++
			b.WriteString("(")
		case tokRParen:
			depth--
			if depth > 0 {
				b.WriteString(")")
			}
		default:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(p.tok.text)
		}
		if err := p.advance(); err != nil {
			return variant.Nil(), err
		}
	}
	return variant.String(b.String()), nil
}

// parseNumberSequence implements "number+": consecutive
// number tokens on one value become a sequence, promoted to double if
// any element has a fractional part.
func (p *parser) parseNumberSequence() (variant.Variant, error) {
	var raw []string
	for p.tok.kind == tokNumber {
		raw = append(raw, p.tok.text)
		if err := p.advance(); err != nil {
			return variant.Nil(), err
		}
	}

	anyFractional := false
	for _, r := range raw {
		if strings.Contains(r, ".") {
			anyFractional = true
			break
		}
	}

	toVariant := func(r string) (variant.Variant, error) {
		if anyFractional {
			f, err := strconv.ParseFloat(r, 64)
			if err != nil {
				return variant.Nil(), fmt.Errorf("configfile: invalid number %q: %w", r, err)
			}
			return variant.Double(f), nil
		}
		i, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			return variant.Nil(), fmt.Errorf("configfile: invalid number %q: %w", r, err)
		}
		return variant.Long(i), nil
	}

	if len(raw) == 1 {
		return toVariant(raw[0])
	}

	seq := variant.NewDictionary()
	for _, r := range raw {
		v, err := toVariant(r)
		if err != nil {
			return variant.Nil(), err
		}
		seq.Append(v)
	}
	return variant.FromDictionary(seq), nil
}
