package typeexpr

import (
	"github.com/begriff-lang/begriff/internal/diagnostics"
	"github.com/begriff-lang/begriff/internal/symbols"
	"github.com/begriff-lang/begriff/internal/token"
	"github.com/begriff-lang/begriff/internal/typesystem"
)

// Parser is a small recursive descent parser over one expression.
// Grammar:
//
//	type     ::= primary ("[" "]")*
//	primary  ::= IDENT ("<" type ("," type)* ">")?
//	           | "(" type ("," type)+ ")"
//	           | "(" type ")"
//	ref      ::= IDENT ("<" type ("," type)* ">")?
//
// Identifiers listed in vars parse as type variables, everything else
// as named types.
type Parser struct {
	lex  *Lexer
	cur  token.Token
	peek token.Token
}

func newParser(src string) *Parser {
	p := &Parser{lex: NewLexer(src)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

// ParseType parses a complete type expression such as "int",
// "Pair<a, b>", "int[][]" or "(a, int)".
func ParseType(src string, vars typesystem.VarSet) (typesystem.Type, error) {
	p := newParser(src)
	t, err := p.parseType(vars)
	if err != nil {
		return nil, err
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseConceptRef parses a concept reference such as "Eq<int>" or
// "Bounded".
func ParseConceptRef(src string, vars typesystem.VarSet) (symbols.ConceptRef, error) {
	p := newParser(src)
	ref, err := p.parseConceptRef(vars)
	if err != nil {
		return symbols.ConceptRef{}, err
	}
	if err := p.expectEnd(); err != nil {
		return symbols.ConceptRef{}, err
	}
	return ref, nil
}

// ParseConceptRefs parses a comma-separated constraint list such as
// "Conv<int, str>, Eq<str>".
func ParseConceptRefs(src string, vars typesystem.VarSet) ([]symbols.ConceptRef, error) {
	p := newParser(src)
	var refs []symbols.ConceptRef
	for {
		ref, err := p.parseConceptRef(vars)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
		if p.cur.Type == token.COMMA {
			p.nextToken()
			continue
		}
		break
	}
	if err := p.expectEnd(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (p *Parser) parseConceptRef(vars typesystem.VarSet) (symbols.ConceptRef, error) {
	if p.cur.Type != token.IDENT {
		return symbols.ConceptRef{}, p.errUnexpected("concept name")
	}
	name := p.cur.Lexeme
	p.nextToken()
	args, err := p.parseTypeArgs(vars)
	if err != nil {
		return symbols.ConceptRef{}, err
	}
	return symbols.ConceptRef{Name: name, Args: args}, nil
}

func (p *Parser) parseType(vars typesystem.VarSet) (typesystem.Type, error) {
	t, err := p.parsePrimary(vars)
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.LBRACKET {
		if p.peek.Type != token.RBRACKET {
			return nil, diagnostics.NewErrorf(diagnostics.ErrP001, p.peek,
				"expected ']' to close array type, found %s", describe(p.peek))
		}
		p.nextToken()
		p.nextToken()
		t = typesystem.TArray{Elem: t}
	}
	return t, nil
}

func (p *Parser) parsePrimary(vars typesystem.VarSet) (typesystem.Type, error) {
	switch p.cur.Type {
	case token.IDENT:
		name := p.cur.Lexeme
		nameTok := p.cur
		p.nextToken()
		args, err := p.parseTypeArgs(vars)
		if err != nil {
			return nil, err
		}
		if vars.Has(name) {
			if len(args) > 0 {
				return nil, diagnostics.NewErrorf(diagnostics.ErrP001, nameTok,
					"type variable %s cannot take type arguments", name)
			}
			return typesystem.TVar{Name: name}, nil
		}
		return typesystem.TNamed{Name: name, Args: args}, nil

	case token.LPAREN:
		p.nextToken()
		first, err := p.parseType(vars)
		if err != nil {
			return nil, err
		}
		if p.cur.Type == token.RPAREN {
			p.nextToken()
			return first, nil
		}
		elems := []typesystem.Type{first}
		for p.cur.Type == token.COMMA {
			p.nextToken()
			next, err := p.parseType(vars)
			if err != nil {
				return nil, err
			}
			elems = append(elems, next)
		}
		if p.cur.Type != token.RPAREN {
			return nil, p.errUnexpected("')'")
		}
		p.nextToken()
		return typesystem.TTuple{Elems: elems}, nil

	default:
		return nil, p.errUnexpected("type expression")
	}
}

// parseTypeArgs parses an optional "<type, ...>" argument list.
func (p *Parser) parseTypeArgs(vars typesystem.VarSet) ([]typesystem.Type, error) {
	if p.cur.Type != token.LT {
		return nil, nil
	}
	p.nextToken()
	var args []typesystem.Type
	for {
		arg, err := p.parseType(vars)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type == token.COMMA {
			p.nextToken()
			continue
		}
		break
	}
	if p.cur.Type != token.GT {
		return nil, p.errUnexpected("'>'")
	}
	p.nextToken()
	return args, nil
}

func (p *Parser) expectEnd() error {
	if p.cur.Type != token.EOF {
		return diagnostics.NewErrorf(diagnostics.ErrP002, p.cur,
			"unexpected %s after expression", describe(p.cur))
	}
	return nil
}

func (p *Parser) errUnexpected(want string) error {
	return diagnostics.NewErrorf(diagnostics.ErrP001, p.cur,
		"expected %s, found %s", want, describe(p.cur))
}

func describe(tok token.Token) string {
	if tok.Type == token.EOF {
		return "end of input"
	}
	return "'" + tok.Lexeme + "'"
}
