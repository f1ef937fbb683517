package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/crypto/bcrypt"

	"dirserve/internal/auth"
	"dirserve/internal/config"
	"dirserve/internal/httpserver"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if len(os.Args) > 1 && os.Args[1] == "passwd" {
		passwdCmd(os.Args[2:])
		return
	}

	var (
		addr    = flag.String("addr", "", "listen address (default "+config.DefaultAddr+")")
		root    = flag.String("root", "", "directory to serve (default: working directory)")
		cfgPath = flag.String("config", "", "path to config file: .json, .toml or .yaml (optional)")
		noColor = flag.Bool("no-color", false, "disable colored access log")
	)
	flag.Parse()

	var cfg config.Config
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("read config: %v", err)
		}
	}
	// flags win over the file
	if strings.TrimSpace(*addr) != "" {
		cfg.Addr = *addr
	}
	if strings.TrimSpace(*root) != "" {
		cfg.Root = *root
	}
	if *noColor {
		cfg.NoColor = true
	}
	if cfg.NoColor {
		color.NoColor = true
	}
	if err := cfg.Normalize(); err != nil {
		log.Fatalf("config: %v", err)
	}

	srv, err := httpserver.New(httpserver.Options{Config: cfg})
	if err != nil {
		log.Fatalf("server init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("dirserve listening on http://%s (root=%s)", cfg.Addr, cfg.Root)
	if auth.HasAuth(cfg) {
		log.Printf("basic auth enabled for %d user(s), optional=%v", len(cfg.Users), cfg.AuthOptional)
	}
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Printf("dirserve stopped")
}

func passwdCmd(args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	var (
		password = fs.String("p", "", "password (required)")
		cost     = fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	)
	_ = fs.Parse(args)
	if *password == "" {
		fmt.Fprintln(os.Stderr, "usage: dirserve passwd -p <password>")
		os.Exit(2)
	}
	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "invalid cost %d (min=%d max=%d)\n", *cost, bcrypt.MinCost, bcrypt.MaxCost)
		os.Exit(2)
	}
	h, err := auth.HashPassword(*password, *cost)
	if err != nil {
		log.Fatalf("bcrypt: %v", err)
	}
	fmt.Println(h)
}
