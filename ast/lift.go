package ast

import (
	"errors"
	"iter"
	"math"
	"slices"

	"github.com/phanxgames/zoml/token"
)

// Tokenize runs the source tokenizer over src and lifts the result.
func Tokenize(src string) iter.Seq2[Token, error] {
	return Lift(token.Tokenize(src))
}

// All drains the AST stream of src into a slice.
func All(src string) []Result {
	var out []Result
	for tok, err := range Tokenize(src) {
		out = append(out, Result{Token: tok, Err: err})
	}
	return out
}

// Lift folds lexical tokens into AST tokens. Property/value pairs become one
// typed attribute token; a property without a value is UnusedPropertyType; a
// token error replaces the value it interrupted.
func Lift(src iter.Seq2[token.Token, error]) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		var pending *token.Token
		flush := func() bool {
			if pending == nil {
				return true
			}
			p := pending
			pending = nil
			return yield(Token{}, &Error{Kind: UnusedPropertyType, Pos: p.Pos, Property: p.Name})
		}
		for tok, err := range src {
			if err != nil {
				pending = nil
				if !yield(Token{}, &Error{Kind: SourceTokenError, Pos: tokenErrorPos(err), Err: err}) {
					return
				}
				continue
			}
			switch tok.Kind {
			case token.KindControl:
				if !flush() {
					return
				}
				k := ElementKind(tok.Name)
				out := Token{Kind: k, Pos: tok.Pos}
				if k == ControlImplementation {
					out.Str = tok.Name
				}
				if !yield(out, nil) {
					return
				}
			case token.KindEndControl:
				if !flush() {
					return
				}
				if !yield(Token{Kind: CompleteControl, Pos: tok.Pos}, nil) {
					return
				}
			case token.KindProperty:
				if !flush() {
					return
				}
				t := tok
				pending = &t
			case token.KindPropertyValue:
				if pending == nil {
					if !yield(Token{}, &Error{Kind: UnusedPropertyType, Pos: tok.Pos}) {
						return
					}
					continue
				}
				p := pending
				pending = nil
				attr, err := attribute(p.Name, p.Pos, tok.Value, tok.Pos)
				if !yield(attr, err) {
					return
				}
			}
		}
		flush()
	}
}

func tokenErrorPos(err error) int {
	var te *token.Error
	if errors.As(err, &te) {
		return te.Pos
	}
	return 0
}

// attributes maps property names to attribute kinds.
var attributes = map[string]Kind{
	"left":          Left,
	"top":           Top,
	"width":         Width,
	"height":        Height,
	"radius":        Radius,
	"stroke-width":  StrokeWidth,
	"corner-radii":  CornerRadii,
	"colour":        Colour,
	"stroke-colour": StrokeColour,
	"content":       Content,
	"font-size":     FontSize,
	"name":          Name,
	"path":          Path,
}

// AttributeKind returns the attribute kind for a property name.
func AttributeKind(name string) (Kind, bool) {
	k, ok := attributes[name]
	return k, ok
}

// attribute converts a property/value pair into a typed attribute token.
func attribute(name string, pos int, v token.Value, valuePos int) (Token, error) {
	kind, ok := attributes[name]
	if !ok {
		return Token{}, &Error{Kind: UnknownProperty, Pos: pos, Property: name}
	}
	unused := &Error{Kind: UnusedPropertyType, Pos: valuePos, Property: name}
	out := Token{Kind: kind, Pos: pos}
	switch kind {
	case Left, Top, Width, Height, Radius, StrokeWidth:
		if v.Kind != token.ValueUnsigned || v.Unsigned > math.MaxUint16 {
			return Token{}, unused
		}
		out.U16 = uint16(v.Unsigned)
	case FontSize:
		if v.Kind != token.ValueUnsigned || v.Unsigned > math.MaxUint8 {
			return Token{}, unused
		}
		out.U8 = uint8(v.Unsigned)
	case Content, Name, Path:
		if v.Kind != token.ValueString {
			return Token{}, unused
		}
		out.Str = v.Str
	case Colour, StrokeColour:
		if v.Kind != token.ValueTuple {
			return Token{}, unused
		}
		bad := BadColourValue
		if kind == StrokeColour {
			bad = BadStrokeColourValue
		}
		c, err := colour(v.Str)
		if err != nil {
			return Token{}, &Error{Kind: bad, Pos: valuePos, Property: name, Err: err}
		}
		out.Colour = c
	case CornerRadii:
		if v.Kind != token.ValueTuple {
			return Token{}, unused
		}
		tup, err := token.ParseTuple(v.Str)
		if err != nil {
			return Token{}, &Error{Kind: BadCornerRadiiValue, Pos: valuePos, Property: name, Err: err}
		}
		radii := slices.Collect(tup.Uint16s())
		if len(tup) != 4 || len(radii) != 4 {
			return Token{}, &Error{Kind: BadCornerRadiiValue, Pos: valuePos, Property: name}
		}
		copy(out.Radii[:], radii)
	}
	return out, nil
}

var errColourShape = errors.New("colour needs four channels in [0, 1]")

// colour parses a four-float tuple with channels in [0, 1] and stores it
// with 8-bit precision.
func colour(raw string) (RGBA, error) {
	tup, err := token.ParseTuple(raw)
	if err != nil {
		return RGBA{}, err
	}
	fs := slices.Collect(tup.Floats())
	if len(tup) != 4 || len(fs) != 4 {
		return RGBA{}, errColourShape
	}
	var ch [4]uint8
	for i, f := range fs {
		if f < 0 || f > 1 || math.IsNaN(f) {
			return RGBA{}, errColourShape
		}
		ch[i] = uint8(math.Round(f * 255))
	}
	return RGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}
