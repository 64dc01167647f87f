// Command xdao-ipld stores DAG-CBOR blocks and resolves paths through them.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"xdao.co/ipld/model"
	"xdao.co/ipld/storage"
	"xdao.co/ipld/storage/registry"
	"xdao.co/ipld/storage/storeconfig"

	_ "xdao.co/ipld/storage/dsstore"
	_ "xdao.co/ipld/storage/grpcstore"
	_ "xdao.co/ipld/storage/ipfs"
	_ "xdao.co/ipld/storage/localfs"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitNotFound = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// exitError carries a process exit code out of a cobra RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func failure(err error) error { return &exitError{code: exitFailure, err: err} }

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(errOut, model.FromError(ee.err))
		}
		return ee.code
	}
	fmt.Fprintf(errOut, "Error: %v\n", err)
	return exitUsage
}

type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	backend    string
	configPath string
	logLevel   string
	logFormat  string

	log *logrus.Logger
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "xdao-ipld",
		Short:         "Store DAG-CBOR blocks and resolve paths through them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogging()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.backend, "backend", "localfs", "Storage backend name (see 'backends')")
	pf.StringVar(&a.configPath, "config", "", "YAML store config; --backend then picks the write backend")
	pf.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "text", "Log format (text or json)")
	registry.RegisterFlags(pf, registry.UsageCLI)

	root.AddCommand(
		a.putCommand(),
		a.getCommand(),
		a.resolveCommand(),
		a.catCommand(),
		a.diagCommand(),
		a.exportCommand(),
		a.importCommand(),
		a.backendsCommand(),
	)
	return root
}

func (a *app) setupLogging() error {
	level, err := logrus.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	a.log = logrus.New()
	a.log.SetOutput(a.errOut)
	a.log.SetLevel(level)
	switch a.logFormat {
	case "text":
		a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		a.log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown --log-format %q", a.logFormat)
	}
	return nil
}

// openStore opens the configured store. With --config, --backend only
// reorders the configured backends when given explicitly.
func (a *app) openStore(cmd *cobra.Command) (storage.Blockstore, func() error, error) {
	if a.configPath != "" {
		cfg, err := storeconfig.LoadFile(a.configPath)
		if err != nil {
			return nil, nil, err
		}
		preferred := ""
		if cmd.Flags().Changed("backend") {
			preferred = a.backend
		}
		a.log.WithFields(logrus.Fields{"config": a.configPath, "backend": preferred}).Debug("opening configured stores")
		return cfg.Open(registry.UsageCLI, preferred)
	}
	a.log.WithField("backend", a.backend).Debug("opening store")
	return registry.Open(a.backend, registry.UsageCLI)
}

func (a *app) withStore(cmd *cobra.Command, fn func(storage.Blockstore) error) error {
	store, closeFn, err := a.openStore(cmd)
	if err != nil {
		return failure(err)
	}
	if closeFn != nil {
		defer func() {
			if err := closeFn(); err != nil {
				a.log.WithError(err).Warn("closing store")
			}
		}()
	}
	return fn(store)
}
