package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"sadx-decompiler/internal/cexport"
	"sadx-decompiler/internal/config"
	"sadx-decompiler/internal/decompile"
	"sadx-decompiler/internal/peimage"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	image := flag.String("image", "", "Path to the source module (32-bit PE DLL)")
	module := flag.String("module", "", "Path to the module description XML")
	outputDir := flag.String("out", "", "Output directory (default: <image>-src next to the image)")
	layout := flag.String("layout", "", "Output layout: files or unit (default: files)")
	noManifest := flag.Bool("no-manifest", false, "Do not write manifest.json")
	verbose := flag.Bool("v", false, "Log every written file")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Environment and CLI flags override config file
	cfg.Resolve(config.Flags{
		Image:      *image,
		Module:     *module,
		OutputDir:  *outputDir,
		Layout:     *layout,
		NoManifest: *noManifest,
		Verbose:    *verbose,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("SADX DLL decompiler\n")
	fmt.Printf("Image:  %s\n", cfg.Image)
	fmt.Printf("Module: %s\n", cfg.Module)
	fmt.Printf("Output: %s (%s)\n", cfg.OutputDir, cfg.Layout)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()
	res, err := decompile.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		stop()
		os.Exit(1)
	}

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", time.Since(start).Seconds())
	fmt.Printf("Entities: %d, Files: %d\n", res.Entities, len(res.Files))
	if res.Manifest != "" {
		fmt.Printf("Manifest: %s\n", res.Manifest)
	}
}

// describe turns a run failure into the message shown to the user.
func describe(err error) string {
	var ue *decompile.UserError
	var ve *cexport.ValidationError
	switch {
	case errors.As(err, &ue):
		return ue.Error()
	case errors.Is(err, peimage.ErrFormat):
		return "invalid source module: " + err.Error()
	case errors.As(err, &ve):
		return "cannot generate C source: " + ve.Error()
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return err.Error()
}
