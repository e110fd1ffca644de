package ast

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/phanxgames/zoml/token"
)

// kinds renders a stream as debug strings, with errors shown as "!" plus the
// error kind.
func kinds(t *testing.T, src string) []string {
	t.Helper()
	var out []string
	for _, r := range All(src) {
		if r.Err != nil {
			var e *Error
			if !errors.As(r.Err, &e) {
				t.Fatalf("%q: error %v is not *Error", src, r.Err)
			}
			out = append(out, "!"+e.Kind.Error())
			continue
		}
		out = append(out, r.Token.String())
	}
	return out
}

func assertKinds(t *testing.T, src string, want []string) {
	t.Helper()
	if diff := cmp.Diff(want, kinds(t, src)); diff != "" {
		t.Errorf("%q mismatch (-want +got):\n%s", src, diff)
	}
}

// --- Well-formed sources ---

func TestCircleRadius(t *testing.T) {
	assertKinds(t, "<circle radius=1 />", []string{"Circle", "Radius(1)", "CompleteControl"})
}

func TestElementKinds(t *testing.T) {
	src := `<root><control/><import name="a" path="b"/><canvas/><horizontal-stack/>` +
		`<vertical-stack/><rect/><text/><big-control/></root>`
	assertKinds(t, src, []string{
		"Root",
		"Control", "CompleteControl",
		"Import", `Name("a")`, `Path("b")`, "CompleteControl",
		"Canvas", "CompleteControl",
		"HorizontalStack", "CompleteControl",
		"VerticalStack", "CompleteControl",
		"Rect", "CompleteControl",
		"Text", "CompleteControl",
		`ControlImplementation("big-control")`, "CompleteControl",
		"CompleteControl",
	})
}

func TestAttributes(t *testing.T) {
	src := `<rect left=1 top=2 width=3 height=4 stroke-width=5 corner-radii=(1,2,3,4) ` +
		`colour=(0.4, 0.4, 0.4, 0.1) stroke-colour=(1,1,1,1)/>`
	assertKinds(t, src, []string{
		"Rect",
		"Left(1)", "Top(2)", "Width(3)", "Height(4)", "StrokeWidth(5)",
		"CornerRadii(1,2,3,4)",
		"Colour(102,102,102,26)",
		"StrokeColour(255,255,255,255)",
		"CompleteControl",
	})
}

func TestTextAttributes(t *testing.T) {
	assertKinds(t, `<text content="hello" font-size=14/>`, []string{
		"Text", `Content("hello")`, "FontSize(14)", "CompleteControl",
	})
}

func TestPositionsFollowSource(t *testing.T) {
	var got []int
	for tok, err := range Tokenize("<circle radius=1 />") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, tok.Pos)
	}
	if diff := cmp.Diff([]int{1, 8, 17}, got); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}

// --- Errors ---

func TestUnknownPropertyContinues(t *testing.T) {
	assertKinds(t, "<circle wobble=1 radius=2/>", []string{
		"Circle", "!unknown property", "Radius(2)", "CompleteControl",
	})
}

func TestUnusedPropertyType(t *testing.T) {
	tests := []string{
		`<rect width="wide"/>`,
		"<rect width=-1/>",
		"<rect width=70000/>",
		"<rect width=1.5/>",
		"<text font-size=300/>",
		"<text content=12/>",
		"<rect colour=1/>",
		`<rect corner-radii="round"/>`,
	}
	for _, src := range tests {
		got := kinds(t, src)
		if len(got) != 3 || got[1] != "!unused property type" {
			t.Errorf("%q = %v, want one unused property type error", src, got)
		}
	}
}

func TestBadTupleValues(t *testing.T) {
	tests := []struct {
		src  string
		kind ErrorKind
	}{
		{"<rect colour=(1,1,1)/>", BadColourValue},
		{"<rect colour=(1,1,1,2)/>", BadColourValue},
		{"<rect colour=(1,1,1,-0.5)/>", BadColourValue},
		{`<rect colour=(1,1,1,"x")/>`, BadColourValue},
		{"<rect colour=()/>", BadColourValue},
		{"<rect stroke-colour=(1,1)/>", BadStrokeColourValue},
		{"<rect corner-radii=(1,2,3)/>", BadCornerRadiiValue},
		{"<rect corner-radii=(1,2,3,0.5)/>", BadCornerRadiiValue},
		{"<rect corner-radii=(1,2,3,70000)/>", BadCornerRadiiValue},
		{"<rect corner-radii=(1 2 3 4)/>", BadCornerRadiiValue},
	}
	for _, tt := range tests {
		var found bool
		for _, r := range All(tt.src) {
			if r.Err == nil {
				continue
			}
			if !errors.Is(r.Err, tt.kind) {
				t.Errorf("%q: error %v, want %v", tt.src, r.Err, tt.kind)
			}
			found = true
		}
		if !found {
			t.Errorf("%q: no error, want %v", tt.src, tt.kind)
		}
	}
}

func TestSourceTokenErrorReplacesValue(t *testing.T) {
	src := "<root><circle radius=x/></root>"
	assertKinds(t, src, []string{
		"Root", "Circle", "!source token error", "CompleteControl", "CompleteControl",
	})
	for _, r := range All(src) {
		if r.Err == nil {
			continue
		}
		if !errors.Is(r.Err, token.CouldNotParseNumberValue) {
			t.Errorf("error %v should wrap the token error", r.Err)
		}
		var e *Error
		errors.As(r.Err, &e)
		if e.Pos != 21 {
			t.Errorf("error pos = %d, want 21", e.Pos)
		}
	}
}

func TestPropertyWithoutValue(t *testing.T) {
	toks := func(yield func(token.Token, error) bool) {
		_ = yield(token.Token{Kind: token.KindControl, Name: "rect", Pos: 1}, nil) &&
			yield(token.Token{Kind: token.KindProperty, Name: "width", Pos: 6}, nil) &&
			yield(token.Token{Kind: token.KindEndControl, Name: "rect", Pos: 12}, nil)
	}
	var got []string
	for tok, err := range Lift(toks) {
		if err != nil {
			got = append(got, "!"+err.Error())
			continue
		}
		got = append(got, tok.String())
	}
	want := []string{"Rect", "!unused property type width at offset 6", "CompleteControl"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLiftStopsWhenConsumerStops(t *testing.T) {
	n := 0
	for range Tokenize("<root><rect/><rect/><rect/></root>") {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
}

func TestRGBAFloats(t *testing.T) {
	got := RGBA{R: 255, G: 0, B: 51, A: 255}.Floats()
	want := [4]float32{1, 0, 0.2, 1}
	if got != want {
		t.Errorf("Floats = %v, want %v", got, want)
	}
}
