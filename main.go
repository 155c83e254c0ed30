package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antibyte/pixelbasic/pkg/basic"
	"github.com/antibyte/pixelbasic/pkg/configuration"
	"github.com/antibyte/pixelbasic/pkg/console"
	"github.com/antibyte/pixelbasic/pkg/logger"
	"github.com/antibyte/pixelbasic/pkg/resources"
	"github.com/antibyte/pixelbasic/pkg/store"
	"github.com/antibyte/pixelbasic/pkg/terminal"
	tlsmanager "github.com/antibyte/pixelbasic/pkg/tls"
)

type options struct {
	configPath string
	runFile    string
	storeName  string
	serve      bool
	headless   bool
	frames     int
	saveFile   string
	saveName   string
	list       bool
	genCert    string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "settings.cfg", "configuration file")
	flag.StringVar(&o.runFile, "run", "", "run a BASIC program from a file")
	flag.StringVar(&o.storeName, "store", "", "run a program from the program store")
	flag.BoolVar(&o.serve, "serve", false, "start the play server")
	flag.BoolVar(&o.headless, "headless", false, "run without a terminal, printing only PRINT output")
	flag.IntVar(&o.frames, "frames", 0, "stop after this many frames (0 = until the program ends)")
	flag.StringVar(&o.saveFile, "save", "", "save a BASIC file into the program store")
	flag.StringVar(&o.saveName, "name", "", "program name for -save")
	flag.BoolVar(&o.list, "list", false, "list stored programs")
	flag.StringVar(&o.genCert, "gencert", "", "write a self-signed certificate for this host")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	if err := configuration.Initialize(o.configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.Info(logger.AreaConfig, "configuration loaded from: %s", o.configPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch {
	case o.genCert != "":
		err = generateCert(o.genCert)
	case o.list:
		err = listPrograms()
	case o.saveFile != "":
		err = saveProgram(o.saveFile, o.saveName)
	case o.serve:
		err = serve(ctx)
	case o.runFile != "" || o.storeName != "":
		err = runProgram(ctx, o)
	default:
		flag.Usage()
		return
	}
	if err != nil {
		logger.Error(logger.AreaGeneral, "%v", err)
		fmt.Fprintln(os.Stderr, err)
		logger.Close()
		os.Exit(1)
	}
}

func generateCert(host string) error {
	tm, err := tlsmanager.NewTLSManager(tlsmanager.TLSConfig{
		CertFile: configuration.GetString("TLS", "cert_file", "certs/server.crt"),
		KeyFile:  configuration.GetString("TLS", "key_file", "certs/server.key"),
	})
	if err != nil {
		return err
	}
	return tm.GenerateSelfSignedCert(host, 365*24*time.Hour)
}

func listPrograms() error {
	st, err := store.OpenFromConfig()
	if err != nil {
		return err
	}
	defer st.Close()
	programs, err := st.List()
	if err != nil {
		return err
	}
	for _, p := range programs {
		fmt.Printf("%-24s %5d lines  %s  %s\n", p.Name, p.Lines, p.Checksum, p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func saveProgram(path, name string) error {
	if name == "" {
		return errors.New("-save needs -name")
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	st, err := store.OpenFromConfig()
	if err != nil {
		return err
	}
	defer st.Close()
	written, err := st.Save(name, string(source))
	if err != nil {
		return err
	}
	if written {
		fmt.Printf("saved %s\n", name)
	} else {
		fmt.Printf("%s unchanged\n", name)
	}
	return nil
}

func loadSource(o options) (string, error) {
	if o.runFile != "" {
		data, err := os.ReadFile(o.runFile)
		return string(data), err
	}
	st, err := store.OpenFromConfig()
	if err != nil {
		return "", err
	}
	defer st.Close()
	p, err := st.Load(o.storeName)
	if err != nil {
		return "", err
	}
	return p.Source, nil
}

func runProgram(ctx context.Context, o options) error {
	source, err := loadSource(o)
	if err != nil {
		return err
	}
	opts := basic.OptionsFromConfig()
	runOpts := console.RunOptions{
		FrameRate: configuration.GetInt("Console", "frame_rate", 30),
		MaxFrames: o.frames,
		Hooks:     []uint16{opts.InitLine, opts.TickLine, opts.DrawLine, opts.DrawLateLine},
	}

	if o.headless {
		// ohne Frame-Begrenzung würden Programme mit Hooks ewig laufen
		if runOpts.MaxFrames == 0 {
			runOpts.Hooks = nil
		}
		rec := basic.NewRecordingBackend()
		opts.Output = os.Stdout
		bridge := basic.NewBridge(rec, opts)
		if err := bridge.LoadProgram(source); err != nil {
			return err
		}
		runOpts.FrameRate = 1000
		err := console.Run(ctx, bridge, nil, runOpts)
		fmt.Fprintf(os.Stderr, "%d draw calls\n", len(rec.Commands()))
		return err
	}

	t, err := console.OpenTerminal()
	if err != nil {
		return err
	}
	defer t.Restore()

	width, height := console.Size()
	con := console.New(os.Stdout, width, height)
	opts.Output = con.TextWriter()
	bridge := basic.NewBridge(con, opts)
	if err := bridge.LoadProgram(source); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go con.ReadKeys(os.Stdin, cancel)

	con.Clear()
	err = console.Run(ctx, bridge, con, runOpts)
	fmt.Print("\x1b[0m\r\n")
	return err
}

func serve(ctx context.Context) error {
	st, err := store.OpenFromConfig()
	if err != nil {
		return err
	}
	defer st.Close()

	sessions := resources.NewSessionManager(resources.LimitsFromConfig())
	go sessions.Run(ctx)

	server := terminal.NewServer(sessions, st)
	mux := http.NewServeMux()
	routes := server.Routes()
	mux.Handle("/api/", routes)
	mux.Handle("/ws", routes)
	mux.Handle("/", http.FileServer(http.Dir("web")))

	tm, err := tlsmanager.NewTLSManager(tlsmanager.ConfigFromSettings())
	if err != nil {
		return err
	}
	addr := configuration.GetString("Server", "listen_address", ":8080")
	srv := &http.Server{Addr: addr, Handler: mux}

	if h := tm.HTTPHandler(); h != nil {
		go func() {
			logger.Info(logger.AreaSecurity, "starting HTTP server for ACME challenges/redirects on :80")
			if err := http.ListenAndServe(":80", h); err != nil {
				logger.Error(logger.AreaSecurity, "HTTP server error: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(logger.AreaGeneral, "play server listening on %s (TLS: %v)", addr, tm.IsEnabled())
		errCh <- tm.ListenAndServe(srv)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(logger.AreaGeneral, "shutting down")
	server.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
