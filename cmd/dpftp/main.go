// dpftp — a concurrent UDP file-transfer client/server.
//
// USAGE: dpftp [-p port] [-f fname] [-a svr_addr] [-s] [-c] [-h]
//
// WHERE:
//
//	[-c] runs in client mode, [-s] runs in server mode; DEFAULT = client mode
//	[-a svr_addr] specifies the server's IP address; DEFAULT = 127.0.0.1
//	[-p portnum] specifies the port number; DEFAULT = 2080
//	[-f fname] specifies the file to send (client mode); DEFAULT = test.c
//	[-h] displays this help
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"dpftp/internal/config"
	"dpftp/internal/receiver"
	"dpftp/internal/sender"
	"dpftp/internal/util"
)

var version = "dev"

func main() {
	clientMode := flag.Bool("c", false, "run in client mode (default)")
	_ = clientMode
	serverMode := flag.Bool("s", false, "run in server mode")
	addr := flag.String("a", config.DefaultAddr, "server IP address (client mode)")
	port := flag.Int("p", config.DefaultPort, "port number")
	fname := flag.String("f", config.DefaultFileName, "file to send (client mode)")
	debug := flag.Bool("d", false, "enable debug logging")
	flag.Usage = printUsage
	flag.Parse()

	if *debug {
		util.EnableDebug()
	}

	cfg := config.Config{
		Role:     config.RoleClient,
		Addr:     *addr,
		Port:     *port,
		FileName: *fname,
		Debug:    *debug,
	}
	if *serverMode {
		cfg.Role = config.RoleServer
	}

	pterm.Info.Println(fmt.Sprintf("dpftp — v%s", version))
	pterm.Println()
	util.LogInfo("mode %s, port %d, file %q", cfg.Role, cfg.Port, cfg.FileName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cfg.Role {
	case config.RoleServer:
		err = runServer(ctx, cfg)
	default:
		err = runClient(cfg)
	}

	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	srv, err := receiver.Listen("", cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer srv.Close()

	util.StartStatsReporter(ctx)
	return srv.Serve(ctx)
}

func runClient(cfg config.Config) error {
	return sender.Send(cfg.Addr, cfg.Port, cfg.FileName)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "USAGE: %s [-p port] [-f fname] [-a svr_addr] [-s] [-c] [-h]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "WHERE:")
	fmt.Fprintln(os.Stderr, "\t[-c] runs in client mode, [-s] runs in server mode; DEFAULT = client mode")
	fmt.Fprintf(os.Stderr, "\t[-a svr_addr] specifies the server's IP address; DEFAULT = %s\n", config.DefaultAddr)
	fmt.Fprintf(os.Stderr, "\t[-p portnum] specifies the port number; DEFAULT = %d\n", config.DefaultPort)
	fmt.Fprintf(os.Stderr, "\t[-f fname] specifies the file to send (client mode); DEFAULT = %s\n", config.DefaultFileName)
	fmt.Fprintln(os.Stderr, "\t[-h] displays this help")
}
