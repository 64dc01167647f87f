package model

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/tidwall/jsonc"

	"xdao.co/ipld/ipld"
)

// linkKey is the reserved DAG-JSON key for links and bytes.
const linkKey = "/"

var (
	ErrNonFiniteFloat = errors.New("model: NaN and infinite floats have no JSON form")
	ErrReservedKey    = errors.New(`model: map with the single key "/" has no JSON form`)
)

// ToJSON projects v onto JSON-marshalable data in DAG-JSON form: links as
// {"/": "<cid>"}, bytes as {"/": {"bytes": "<unpadded base64>"}}, integers
// as json.Number and floats as json.Number always carrying a fraction or
// exponent so they parse back as floats.
func ToJSON(v ipld.Value) (any, error) {
	switch x := v.(type) {
	case nil, ipld.Null:
		return nil, nil
	case ipld.Bool:
		return bool(x), nil
	case ipld.Integer:
		return json.Number(x.String()), nil
	case ipld.Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, ErrNonFiniteFloat
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return json.Number(s), nil
	case ipld.String:
		return string(x), nil
	case ipld.Bytes:
		return map[string]any{linkKey: map[string]any{"bytes": base64.RawStdEncoding.EncodeToString(x)}}, nil
	case ipld.Link:
		if !x.Cid.Defined() {
			return nil, fmt.Errorf("model: undefined link")
		}
		return map[string]any{linkKey: x.Cid.String()}, nil
	case ipld.List:
		out := make([]any, 0, len(x))
		for i, e := range x {
			j, err := ToJSON(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, j)
		}
		return out, nil
	case *ipld.Map:
		if x.Len() == 1 {
			if _, ok := x.Get(linkKey); ok {
				return nil, ErrReservedKey
			}
		}
		out := make(map[string]any, x.Len())
		var err error
		x.Range(func(k string, e ipld.Value) bool {
			var j any
			j, err = ToJSON(e)
			if err != nil {
				err = fmt.Errorf("%q: %w", k, err)
				return false
			}
			out[k] = j
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("model: unsupported value %T", v)
	}
}

// MarshalJSON renders v as indented DAG-JSON. Map keys are sorted.
func MarshalJSON(v ipld.Value) ([]byte, error) {
	j, err := ToJSON(v)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(j, "", "  ")
}

// ParseJSON is the inverse of ToJSON. Comments and trailing commas are
// accepted. Numbers without a fraction or exponent become integers and must
// fit in [-2^64, 2^64-1]. Duplicate keys keep the last value.
func ParseJSON(data []byte) (ipld.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("model: parse json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("model: parse json: trailing data")
	}
	return fromJSON(raw)
}

func fromJSON(raw any) (ipld.Value, error) {
	switch x := raw.(type) {
	case nil:
		return ipld.Null{}, nil
	case bool:
		return ipld.Bool(x), nil
	case json.Number:
		return parseNumber(string(x))
	case string:
		return ipld.String(x), nil
	case []any:
		out := make(ipld.List, 0, len(x))
		for i, e := range x {
			v, err := fromJSON(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case map[string]any:
		if inner, ok := x[linkKey]; ok && len(x) == 1 {
			return parseReserved(inner)
		}
		m := ipld.NewMap(len(x))
		for k, e := range x {
			v, err := fromJSON(e)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			m.Set(k, v)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("model: unexpected json value %T", raw)
	}
}

func parseReserved(inner any) (ipld.Value, error) {
	switch x := inner.(type) {
	case string:
		id, err := cid.Decode(x)
		if err != nil {
			return nil, fmt.Errorf("model: link %q: %w", x, err)
		}
		return ipld.NewLink(id), nil
	case map[string]any:
		s, ok := x["bytes"].(string)
		if !ok || len(x) != 1 {
			break
		}
		b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("model: bytes: %w", err)
		}
		return ipld.Bytes(b), nil
	}
	return nil, ErrReservedKey
}

func parseNumber(s string) (ipld.Value, error) {
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("model: number %s: %w", s, err)
		}
		return ipld.Float(f), nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("model: invalid integer %s", s)
	}
	i, ok := ipld.IntegerFromBig(b)
	if !ok {
		return nil, fmt.Errorf("model: integer %s out of range", s)
	}
	return i, nil
}
