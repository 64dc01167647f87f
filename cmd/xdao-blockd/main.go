// Command xdao-blockd serves a registry backend over the Blockstore gRPC service.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"xdao.co/ipld/storage"
	"xdao.co/ipld/storage/grpcstore"
	"xdao.co/ipld/storage/registry"
	"xdao.co/ipld/storage/storeconfig"

	_ "xdao.co/ipld/storage/dsstore"
	_ "xdao.co/ipld/storage/ipfs"
	_ "xdao.co/ipld/storage/localfs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil))
}

type options struct {
	listen       string
	backend      string
	configPath   string
	listBackends bool
	logLevel     string
	logFormat    string
	maxMsgBytes  int
}

// run parses args and serves until ctx is done. When ready is non-nil it
// receives the bound listen address once the server is accepting.
func run(ctx context.Context, args []string, out io.Writer, errOut io.Writer, ready chan<- net.Addr) int {
	var opts options
	fs := pflag.NewFlagSet("xdao-blockd", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&opts.listen, "listen", "127.0.0.1:7777", "Listen address")
	fs.StringVar(&opts.backend, "backend", "localfs", "Storage backend name")
	fs.StringVar(&opts.configPath, "config", "", "YAML store config; --backend then picks the write backend")
	fs.BoolVar(&opts.listBackends, "list-backends", false, "List supported backends and exit")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.logFormat, "log-format", "text", "Log format (text or json)")
	fs.IntVar(&opts.maxMsgBytes, "max-msg-bytes", 0, "Max gRPC message size in bytes (send+recv); 0 uses grpc defaults")
	registry.RegisterFlags(fs, registry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.listBackends {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	log, err := newLogger(errOut, opts.logLevel, opts.logFormat)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	store, closeFn, err := openStore(opts, fs.Changed("backend"))
	if err != nil {
		log.WithError(err).WithField("backend", opts.backend).Error("open store")
		return 2
	}
	if closeFn != nil {
		defer func() {
			if err := closeFn(); err != nil {
				log.WithError(err).Warn("close store")
			}
		}()
	}

	lis, err := net.Listen("tcp", opts.listen)
	if err != nil {
		log.WithError(err).Error("listen")
		return 1
	}

	serverOpts := []grpc.ServerOption{
		grpc.UnaryInterceptor(grpcstore.LoggingInterceptor(log.WithField("component", "grpc"))),
	}
	if opts.maxMsgBytes > 0 {
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(opts.maxMsgBytes), grpc.MaxSendMsgSize(opts.maxMsgBytes))
	}
	s := grpc.NewServer(serverOpts...)
	grpcstore.RegisterBlockstoreServer(s, &grpcstore.Server{Store: store})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		s.GracefulStop()
	}()

	log.WithFields(logrus.Fields{"addr": lis.Addr().String(), "backend": opts.backend, "config": opts.configPath}).Info("xdao-blockd listening")
	if ready != nil {
		ready <- lis.Addr()
	}
	if err := s.Serve(lis); err != nil {
		log.WithError(err).Error("serve")
		return 1
	}
	return 0
}

func openStore(opts options, preferBackend bool) (storage.Blockstore, func() error, error) {
	if opts.configPath == "" {
		return registry.Open(opts.backend, registry.UsageDaemon)
	}
	cfg, err := storeconfig.LoadFile(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	preferred := ""
	if preferBackend {
		preferred = opts.backend
	}
	return cfg.Open(registry.UsageDaemon, preferred)
}

func newLogger(w io.Writer, level, format string) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	switch format {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown --log-format %q", format)
	}
	return logrus.NewEntry(l).WithField("service", "xdao-blockd"), nil
}
