package compile

import (
	"fmt"

	"noteforge/bytecode"
)

// Legacy grammar (the verbose JavaScript-method-chain surface, kept
// for backward compatibility per spec §4.3):
//
//	legacyExpr := atom postfix*
//	postfix    := '.' ('add'|'sub'|'mul'|'div'|'pow') '(' legacyExpr ')'
//	            | '.' 'neg' '(' ')'
//	atom       := 'new' 'Fraction' '(' number [',' number] ')'
//	            | 'module' '.' 'baseNote' '.' 'getVariable' '(' string ')'
//	            | 'module' '.' 'getNoteById' '(' number ')' '.' 'getVariable' '(' string ')'
//	            | 'module' '.' 'findTempo' '(' ref ')'
//	            | 'module' '.' 'findMeasureLength' '(' ref ')'
//	ref        := 'module' '.' 'baseNote' | 'module' '.' 'getNoteById' '(' number ')'
type legacyTokenKind int

const (
	ltEOF legacyTokenKind = iota
	ltIdent
	ltNumber
	ltString
	ltDot
	ltLParen
	ltRParen
	ltComma
	ltMinus
)

type legacyToken struct {
	kind legacyTokenKind
	text string
	pos  int
}

func lexLegacy(src string) ([]legacyToken, error) {
	var toks []legacyToken
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '.':
			toks = append(toks, legacyToken{ltDot, ".", i})
			i++
		case c == '(':
			toks = append(toks, legacyToken{ltLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, legacyToken{ltRParen, ")", i})
			i++
		case c == ',':
			toks = append(toks, legacyToken{ltComma, ",", i})
			i++
		case c == '-':
			toks = append(toks, legacyToken{ltMinus, "-", i})
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(src) && src[j] != quote {
				j++
			}
			if j >= len(src) {
				return nil, fmt.Errorf("compile: unterminated string literal at offset %d", i)
			}
			toks = append(toks, legacyToken{ltString, src[i+1 : j], i})
			i = j + 1
		case c >= '0' && c <= '9':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			toks = append(toks, legacyToken{ltNumber, src[i:j], i})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, legacyToken{ltIdent, src[i:j], i})
			i = j
		default:
			return nil, fmt.Errorf("compile: unexpected character %q at offset %d", c, i)
		}
	}
	toks = append(toks, legacyToken{ltEOF, "", i})
	return toks, nil
}

type legacyParser struct {
	toks []legacyToken
	pos  int
}

func parseLegacy(src string) (Node, error) {
	toks, err := lexLegacy(src)
	if err != nil {
		return nil, err
	}
	p := &legacyParser{toks: toks}
	node, err := p.parseChain()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != ltEOF {
		return nil, fmt.Errorf("compile: unexpected trailing input at offset %d", p.cur().pos)
	}
	return node, nil
}

func (p *legacyParser) cur() legacyToken { return p.toks[p.pos] }

func (p *legacyParser) advance() legacyToken {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *legacyParser) expect(kind legacyTokenKind, what string) (legacyToken, error) {
	if p.cur().kind != kind {
		return legacyToken{}, fmt.Errorf("compile: expected %s at offset %d, got %q", what, p.cur().pos, p.cur().text)
	}
	return p.advance(), nil
}

func (p *legacyParser) expectIdent(word string) error {
	if p.cur().kind != ltIdent || p.cur().text != word {
		return fmt.Errorf("compile: expected %q at offset %d, got %q", word, p.cur().pos, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *legacyParser) parseChain() (Node, error) {
	node, err := p.parseLegacyAtom()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == ltDot {
		p.advance()
		methodTok, err := p.expect(ltIdent, "method name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(ltLParen, "'('"); err != nil {
			return nil, err
		}
		switch methodTok.text {
		case "neg":
			if _, err := p.expect(ltRParen, "')'"); err != nil {
				return nil, err
			}
			node = NegNode{X: node}
		case "add", "sub", "mul", "div", "pow":
			arg, err := p.parseChain()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(ltRParen, "')'"); err != nil {
				return nil, err
			}
			if methodTok.text == "pow" {
				node = PowerNode{Base: node, Exp: arg}
			} else {
				op := map[string]byte{"add": '+', "sub": '-', "mul": '*', "div": '/'}[methodTok.text]
				node = BinaryNode{Op: op, Left: node, Right: arg}
			}
		default:
			return nil, fmt.Errorf("compile: unknown legacy method %q at offset %d", methodTok.text, methodTok.pos)
		}
	}
	return node, nil
}

func (p *legacyParser) parseLegacyAtom() (Node, error) {
	if p.cur().kind == ltMinus {
		p.advance()
		x, err := p.parseLegacyAtom()
		if err != nil {
			return nil, err
		}
		return NegNode{X: x}, nil
	}

	if p.cur().kind == ltNumber {
		tok := p.advance()
		return parseNumberLiteral(tok.text)
	}

	if p.cur().kind != ltIdent {
		return nil, fmt.Errorf("compile: unexpected token %q at offset %d", p.cur().text, p.cur().pos)
	}

	switch p.cur().text {
	case "new":
		p.advance()
		if err := p.expectIdent("Fraction"); err != nil {
			return nil, err
		}
		if _, err := p.expect(ltLParen, "'('"); err != nil {
			return nil, err
		}
		numTok, err := p.expect(ltNumber, "numerator")
		if err != nil {
			return nil, err
		}
		num, err := parseIntLiteral(numTok.text)
		if err != nil {
			return nil, err
		}
		den := int64(1)
		if p.cur().kind == ltComma {
			p.advance()
			denTok, err := p.expect(ltNumber, "denominator")
			if err != nil {
				return nil, err
			}
			den, err = parseIntLiteral(denTok.text)
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(ltRParen, "')'"); err != nil {
			return nil, err
		}
		return RatioLit{Num: int32(num), Den: int32(den)}, nil

	case "module":
		p.advance()
		if _, err := p.expect(ltDot, "'.'"); err != nil {
			return nil, err
		}
		selTok, err := p.expect(ltIdent, "baseNote, getNoteById, findTempo, or findMeasureLength")
		if err != nil {
			return nil, err
		}
		switch selTok.text {
		case "baseNote":
			if _, err := p.expect(ltDot, "'.'"); err != nil {
				return nil, err
			}
			return p.parseGetVariable(true, 0)

		case "getNoteById":
			note, err := p.parseNoteIDCall()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(ltDot, "'.'"); err != nil {
				return nil, err
			}
			return p.parseGetVariable(false, note)

		case "findTempo", "findMeasureLength":
			if _, err := p.expect(ltLParen, "'('"); err != nil {
				return nil, err
			}
			arg, err := p.parseRef()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(ltRParen, "')'"); err != nil {
				return nil, err
			}
			return FuncCall{Fn: selTok.text, Arg: arg}, nil

		default:
			return nil, fmt.Errorf("compile: unknown legacy selector %q at offset %d", selTok.text, selTok.pos)
		}

	default:
		return nil, fmt.Errorf("compile: unexpected identifier %q at offset %d", p.cur().text, p.cur().pos)
	}
}

// parseGetVariable parses the trailing `.getVariable('name')` after
// either `module.baseNote` or `module.getNoteById(N)` and returns the
// resulting BaseRef/NoteRef. isBase/note mirror which atom preceded it.
func (p *legacyParser) parseGetVariable(isBase bool, note bytecode.NoteID) (Node, error) {
	if err := p.expectIdent("getVariable"); err != nil {
		return nil, err
	}
	if _, err := p.expect(ltLParen, "'('"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(ltString, "property name string")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ltRParen, "')'"); err != nil {
		return nil, err
	}
	v, ok := lookupVar(nameTok.text)
	if !ok {
		return nil, fmt.Errorf("compile: unknown property %q", nameTok.text)
	}
	if isBase {
		return BaseRef{Var: v}, nil
	}
	return NoteRef{Note: note, Var: v}, nil
}

func (p *legacyParser) parseNoteIDCall() (bytecode.NoteID, error) {
	if _, err := p.expect(ltLParen, "'('"); err != nil {
		return 0, err
	}
	idTok, err := p.expect(ltNumber, "note id")
	if err != nil {
		return 0, err
	}
	n, err := parseIntLiteral(idTok.text)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(ltRParen, "')'"); err != nil {
		return 0, err
	}
	return bytecode.NoteID(n), nil
}

// parseRef parses the `ref` production used by findTempo/findMeasureLength:
// `module.baseNote` or `module.getNoteById(N)`.
func (p *legacyParser) parseRef() (NoteArg, error) {
	if err := p.expectIdent("module"); err != nil {
		return NoteArg{}, err
	}
	if _, err := p.expect(ltDot, "'.'"); err != nil {
		return NoteArg{}, err
	}
	selTok, err := p.expect(ltIdent, "baseNote or getNoteById")
	if err != nil {
		return NoteArg{}, err
	}
	switch selTok.text {
	case "baseNote":
		return NoteArg{IsBase: true}, nil
	case "getNoteById":
		note, err := p.parseNoteIDCall()
		if err != nil {
			return NoteArg{}, err
		}
		return NoteArg{Note: note}, nil
	default:
		return NoteArg{}, fmt.Errorf("compile: expected baseNote or getNoteById at offset %d", selTok.pos)
	}
}
