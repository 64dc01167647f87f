package model

import (
	"xdao.co/ipld/dag"
)

// PutResult reports a stored block.
type PutResult struct {
	CID  string `json:"cid"`
	Hash string `json:"hash"`
	Size int    `json:"size"`
}

// ResolveResult is the JSON boundary DTO for dag.Resolution.
//
// Value holds the DAG-JSON projection and is omitted when not found.
// Remaining lists the unresolved segments when not found.
type ResolveResult struct {
	Root      string   `json:"root"`
	Path      string   `json:"path"`
	Found     bool     `json:"found"`
	Block     string   `json:"block"`
	Blocks    int      `json:"blocks"`
	Remaining []string `json:"remaining,omitempty"`
	Value     any      `json:"value,omitempty"`
}

// NewResolveResult projects res, the outcome of resolving p.
func NewResolveResult(p dag.DagPath, res dag.Resolution) (ResolveResult, error) {
	out := ResolveResult{
		Root:   p.Root.String(),
		Path:   p.Path.String(),
		Found:  res.Found,
		Block:  res.Block.String(),
		Blocks: res.Blocks,
	}
	if len(res.Remaining) > 0 {
		out.Remaining = []string(res.Remaining)
	}
	if res.Found {
		v, err := ToJSON(res.Value)
		if err != nil {
			return ResolveResult{}, err
		}
		out.Value = v
	}
	return out, nil
}

// ImportResult reports the blocks a bundle import wrote.
type ImportResult struct {
	Blocks []string          `json:"blocks"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Backend describes a registered storage backend.
type Backend struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
