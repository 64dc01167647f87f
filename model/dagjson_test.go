package model

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/ipld"
)

func TestDAGJSON_RoundTrip(t *testing.T) {
	id, err := cidutil.Sum([]byte("leaf"), cidutil.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	values := []ipld.Value{
		ipld.Null{},
		ipld.Bool(false),
		ipld.NewInt(-7),
		ipld.NewUint(math.MaxUint64),
		ipld.NewNegative(math.MaxUint64),
		ipld.Float(1),
		ipld.Float(-2.5e-10),
		ipld.String("text"),
		ipld.Bytes{0, 1, 2, 0xff},
		ipld.Bytes{},
		ipld.NewLink(id),
		ipld.List{ipld.NewInt(1), ipld.List{}},
		ipld.MapOf("a", ipld.MapOf("b", ipld.NewLink(id)), "z", ipld.Bytes("x")),
	}
	for _, v := range values {
		b, err := MarshalJSON(v)
		if err != nil {
			t.Fatalf("MarshalJSON(%v): %v", v, err)
		}
		got, err := ParseJSON(b)
		if err != nil {
			t.Fatalf("ParseJSON(%s): %v", b, err)
		}
		if !ipld.Equal(got, v) {
			t.Fatalf("round trip: got %v want %v (json %s)", got, v, b)
		}
	}
}

func TestToJSON_Shapes(t *testing.T) {
	id, err := cidutil.Sum([]byte("leaf"), cidutil.DefaultHash)
	if err != nil {
		t.Fatal(err)
	}
	j, err := ToJSON(ipld.MapOf("l", ipld.NewLink(id), "b", ipld.Bytes("hi"), "f", ipld.Float(2)))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(j)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"b":{"/":{"bytes":"aGk"}},"f":2.0,"l":{"/":"` + id.String() + `"}}`
	if string(b) != want {
		t.Fatalf("got %s want %s", b, want)
	}
}

func TestToJSON_Unrepresentable(t *testing.T) {
	if _, err := ToJSON(ipld.Float(math.NaN())); !errors.Is(err, ErrNonFiniteFloat) {
		t.Fatalf("NaN: got %v", err)
	}
	if _, err := ToJSON(ipld.List{ipld.MapOf("/", ipld.String("x"))}); !errors.Is(err, ErrReservedKey) {
		t.Fatalf(`{"/":...}: got %v`, err)
	}
}

func TestParseJSON_Comments(t *testing.T) {
	v, err := ParseJSON([]byte(`{
		// answer
		"n": 42, /* block */
		"list": [1, 2,],
	}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	want := ipld.MapOf("n", ipld.NewInt(42), "list", ipld.List{ipld.NewInt(1), ipld.NewInt(2)})
	if !ipld.Equal(v, want) {
		t.Fatalf("got %v want %v", v, want)
	}
}

func TestParseJSON_Errors(t *testing.T) {
	cases := []string{
		`{"/": "not-a-cid"}`,
		`{"/": {"bytes": "!!"}}`,
		`{"/": 1}`,
		`18446744073709551616`,
		`-18446744073709551617`,
		`1 2`,
		`{`,
	}
	for _, c := range cases {
		if _, err := ParseJSON([]byte(c)); err == nil {
			t.Fatalf("ParseJSON(%s): expected error", c)
		}
	}
	v, err := ParseJSON([]byte(`-18446744073709551616`))
	if err != nil || !ipld.Equal(v, ipld.NewNegative(math.MaxUint64)) {
		t.Fatalf("min integer: got %v, %v", v, err)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewError(ErrInvalidRequest, "bad")); got != ErrInvalidRequest {
		t.Fatalf("CodedError: got %s", got)
	}
	if got := CodeOf(errors.New("boom")); got != ErrInternal {
		t.Fatalf("plain error: got %s", got)
	}
	if !strings.HasPrefix(FromError(errors.New("boom")).Error(), "INTERNAL: ") {
		t.Fatalf("FromError should carry the code")
	}
}
