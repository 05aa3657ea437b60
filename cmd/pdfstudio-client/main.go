// Command pdfstudio-client fills the generator form from flags, submits it
// to a pdfstudio server (or renders in process with --local) and saves the
// resulting PDF.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"pdfstudio/internal/assets"
	"pdfstudio/internal/client"
	"pdfstudio/internal/domain"
	"pdfstudio/internal/infra/logging"
	"pdfstudio/internal/render"
)

type options struct {
	server      string
	apiKey      string
	title       string
	content     string
	contentFile string
	logo        string
	images      []string
	out         string
	timeout     time.Duration
	local       bool
	verbose     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("pdfstudio-client", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.server, "server", "s", "http://localhost:8080", "pdfstudio base URL")
	fs.StringVar(&o.apiKey, "api-key", os.Getenv("PDFSTUDIO_API_KEY"), "API key sent as X-API-Key")
	fs.StringVarP(&o.title, "title", "t", "", "Document title")
	fs.StringVarP(&o.content, "content", "c", "", "Document content (HTML)")
	fs.StringVar(&o.contentFile, "content-file", "", "Read content from file")
	fs.StringVar(&o.logo, "logo", "", "Logo image path")
	fs.StringArrayVarP(&o.images, "image", "i", nil, "Image path (repeatable)")
	fs.StringVarP(&o.out, "out", "o", "", "Output path (default: <title>.pdf)")
	fs.DurationVar(&o.timeout, "timeout", time.Minute, "Request timeout")
	fs.BoolVar(&o.local, "local", false, "Render in process with the fpdf engine")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.content != "" && o.contentFile != "" {
		return o, errors.New("--content and --content-file are mutually exclusive")
	}
	return o, nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logging.InitConsole(stderr, level)

	if o.contentFile != "" {
		b, err := os.ReadFile(o.contentFile)
		if err != nil {
			return fmt.Errorf("read content: %w", err)
		}
		o.content = string(b)
	}

	gen := client.NewGenerator(newTransport(o))
	gen.SetTitle(o.title)
	gen.SetContent(o.content)
	if o.logo != "" {
		gen.SetLogo(assets.FileAsset(o.logo))
	}
	for _, p := range o.images {
		gen.AddImages(assets.FileAsset(p))
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	doc, err := gen.Generate(ctx)
	if err != nil {
		return err
	}

	out := o.out
	if out == "" {
		out = doc.Name
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := doc.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logging.Info("Saved document", "file", out, "bytes", len(doc.Data))
	fmt.Fprintln(stdout, out)
	return nil
}

func newTransport(o options) client.Transport {
	if !o.local {
		return client.NewHTTPTransport(o.server, o.apiKey, o.timeout)
	}
	r := render.NewTreeRenderer()
	return client.LocalTransport{Generate: func(ctx context.Context, req domain.GenerationRequest) (domain.Document, error) {
		data, err := r.Render(ctx, req)
		if err != nil {
			return domain.Document{}, err
		}
		doc := domain.NewDocument(req.Title, data)
		doc.Pages, err = render.Verify(data)
		return doc, err
	}}
}
