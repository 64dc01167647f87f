package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"xdao.co/ipld/cidutil"
	"xdao.co/ipld/codec/dagcbor"
	"xdao.co/ipld/dag"
	"xdao.co/ipld/ipld"
	"xdao.co/ipld/model"
	"xdao.co/ipld/storage"
	"xdao.co/ipld/storage/bundle"
	"xdao.co/ipld/storage/registry"
)

// readInput reads a named file, or stdin for "-".
func (a *app) readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(a.in)
	}
	return os.ReadFile(name)
}

func (a *app) writeJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func (a *app) newDag(store storage.Blockstore, maxBlocks int) *dag.Dag {
	return dag.New(store, dag.WithLogger(logrus.NewEntry(a.log)), dag.WithMaxBlocks(maxBlocks))
}

func parseCID(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, model.NewError(model.ErrInvalidCID, fmt.Sprintf("%q: %v", s, err))
	}
	return id, nil
}

func (a *app) putCommand() *cobra.Command {
	var (
		hashName string
		format   string
	)
	cmd := &cobra.Command{
		Use:   "put <file|->",
		Short: "Encode a DAG-JSON document (or check a DAG-CBOR one) and store it as a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mhType, err := cidutil.ParseHash(hashName)
			if err != nil {
				return failure(model.NewError(model.ErrUnsupportedHash, err.Error()))
			}
			data, err := a.readInput(args[0])
			if err != nil {
				return failure(err)
			}

			var block []byte
			switch format {
			case "json":
				v, err := model.ParseJSON(data)
				if err != nil {
					return failure(model.NewError(model.ErrInvalidRequest, err.Error()))
				}
				if block, err = dagcbor.Marshal(v); err != nil {
					return failure(err)
				}
			case "cbor":
				if _, err := dagcbor.Unmarshal(data); err != nil {
					return failure(err)
				}
				block = data
			default:
				return fmt.Errorf("unknown --input-format %q", format)
			}

			return a.withStore(cmd, func(store storage.Blockstore) error {
				id, err := store.Put(block, mhType)
				if err != nil {
					return failure(err)
				}
				a.log.WithFields(logrus.Fields{"cid": id.String(), "size": len(block)}).Info("stored block")
				return a.writeJSON(model.PutResult{CID: id.String(), Hash: cidutil.HashName(mhType), Size: len(block)})
			})
		},
	}
	cmd.Flags().StringVar(&hashName, "hash", cidutil.HashName(cidutil.DefaultHash), "Multihash function for the block CID")
	cmd.Flags().StringVar(&format, "input-format", "json", "Input format: json (DAG-JSON, comments allowed) or cbor")
	return cmd
}

func (a *app) getCommand() *cobra.Command {
	var maxBlocks int
	cmd := &cobra.Command{
		Use:   "get <cid>[/path]",
		Short: "Print the value at a path as DAG-JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := dag.ParsePath(args[0])
			if err != nil {
				return failure(model.NewError(model.ErrInvalidCID, err.Error()))
			}
			return a.withStore(cmd, func(store storage.Blockstore) error {
				v, ok, err := a.newDag(store, maxBlocks).Get(p)
				if err != nil {
					return failure(err)
				}
				if !ok {
					return &exitError{code: exitNotFound, err: model.NewError(model.ErrNotFound, p.String())}
				}
				b, err := model.MarshalJSON(v)
				if err != nil {
					return failure(err)
				}
				_, err = fmt.Fprintln(a.out, string(b))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&maxBlocks, "max-blocks", 0, "Fail after loading this many blocks (0 = no limit)")
	return cmd
}

func (a *app) resolveCommand() *cobra.Command {
	var maxBlocks int
	cmd := &cobra.Command{
		Use:   "resolve <cid>/<path>",
		Short: "Resolve a path and report the value, the last block visited and any unresolved segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := dag.ParsePath(args[0])
			if err != nil {
				return failure(model.NewError(model.ErrInvalidCID, err.Error()))
			}
			return a.withStore(cmd, func(store storage.Blockstore) error {
				res, err := a.newDag(store, maxBlocks).Resolve(p)
				if err != nil {
					return failure(err)
				}
				out, err := model.NewResolveResult(p, res)
				if err != nil {
					return failure(err)
				}
				return a.writeJSON(out)
			})
		},
	}
	cmd.Flags().IntVar(&maxBlocks, "max-blocks", 0, "Fail after loading this many blocks (0 = no limit)")
	return cmd
}

func (a *app) catCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <cid>",
		Short: "Write the raw bytes of a block to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCID(args[0])
			if err != nil {
				return failure(err)
			}
			return a.withStore(cmd, func(store storage.Blockstore) error {
				b, err := store.Get(id)
				if err != nil {
					return failure(err)
				}
				_, err = a.out.Write(b)
				return err
			})
		},
	}
}

func (a *app) diagCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diag <cid>",
		Short: "Print a block in CBOR diagnostic notation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCID(args[0])
			if err != nil {
				return failure(err)
			}
			return a.withStore(cmd, func(store storage.Blockstore) error {
				b, err := store.Get(id)
				if err != nil {
					return failure(err)
				}
				s, err := dagcbor.Diagnose(b)
				if err != nil {
					return failure(err)
				}
				_, err = fmt.Fprintln(a.out, s)
				return err
			})
		},
	}
}

func (a *app) exportCommand() *cobra.Command {
	var (
		roots     []string
		outPath   string
		maxBlocks int
		noIndex   bool
		compress  bool
	)
	cmd := &cobra.Command{
		Use:   "export --root <cid> [--root <cid>...]",
		Short: "Write every block reachable from the roots to a TAR bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(roots) == 0 {
				return fmt.Errorf("at least one --root is required")
			}
			ids := make([]cid.Cid, 0, len(roots))
			for _, r := range roots {
				id, err := parseCID(r)
				if err != nil {
					return failure(err)
				}
				ids = append(ids, id)
			}
			return a.withStore(cmd, func(store storage.Blockstore) error {
				d := a.newDag(store, maxBlocks)
				var blocks []cid.Cid
				labels := make(map[string]cid.Cid, len(ids))
				for i, root := range ids {
					labels[fmt.Sprintf("root-%d", i)] = root
					err := d.Walk(root, func(id cid.Cid, _ ipld.Value) error {
						blocks = append(blocks, id)
						return nil
					})
					if err != nil {
						return failure(err)
					}
				}

				var buf bytes.Buffer
				opts := bundle.ExportOptions{IncludeIndex: !noIndex, Labels: labels, Compress: compress}
				if err := bundle.Export(&buf, store, blocks, opts); err != nil {
					return failure(err)
				}
				a.log.WithFields(logrus.Fields{"blocks": len(blocks), "roots": len(ids)}).Info("exported bundle")
				if outPath == "" || outPath == "-" {
					_, err := a.out.Write(buf.Bytes())
					return err
				}
				if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
					return failure(err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&roots, "root", nil, "Root CID to export (repeatable)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().IntVar(&maxBlocks, "max-blocks", 0, "Fail after loading this many blocks per root (0 = no limit)")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "Omit index.json")
	cmd.Flags().BoolVar(&compress, "zstd", false, "Compress the bundle with zstd (import detects it)")
	return cmd
}

func (a *app) importCommand() *cobra.Command {
	var ignoreUnknown bool
	cmd := &cobra.Command{
		Use:   "import <bundle|->",
		Short: "Verify and store every block in a TAR bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(args[0])
			if err != nil {
				return failure(err)
			}
			return a.withStore(cmd, func(store storage.Blockstore) error {
				res, err := bundle.ImportWithOptions(bytes.NewReader(data), store, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
				if err != nil {
					return failure(err)
				}
				out := model.ImportResult{Blocks: make([]string, 0, len(res.Blocks))}
				for _, id := range res.Blocks {
					out.Blocks = append(out.Blocks, id.String())
				}
				if len(res.Labels) > 0 {
					out.Labels = make(map[string]string, len(res.Labels))
					for k, v := range res.Labels {
						out.Labels[k] = v.String()
					}
				}
				return a.writeJSON(out)
			})
		},
	}
	cmd.Flags().BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip unknown bundle entries instead of failing")
	return cmd
}

func (a *app) backendsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List the storage backends built into this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := registry.List(registry.UsageCLI)
			if asJSON {
				out := make([]model.Backend, 0, len(list))
				for _, b := range list {
					out = append(out, model.Backend{Name: b.Name, Description: b.Description})
				}
				return a.writeJSON(out)
			}
			for _, b := range list {
				if b.Description == "" {
					fmt.Fprintln(a.out, b.Name)
					continue
				}
				fmt.Fprintf(a.out, "%s\t%s\n", b.Name, b.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
