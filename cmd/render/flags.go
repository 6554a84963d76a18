package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

// 输出格式。
const (
	formatPDF    = "pdf"
	formatViewer = "viewer"
	formatHTML   = "html"
	formatPrint  = "print"
	formatDebug  = "debug"
)

var (
	ErrUsage  = errors.New("usage")
	ErrNoFile = errors.New("no input file")
)

// renderFlags 命令行参数。
type renderFlags struct {
	format   string
	out      string
	font     string
	assetDir string
	timeout  time.Duration
	verbose  bool
	input    string
}

func parseFlags(args []string, stderr io.Writer) (*renderFlags, error) {
	f := &renderFlags{}
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&f.format, "format", "f", formatPDF, "output format: pdf, viewer, html, print, debug")
	fs.StringVarP(&f.out, "out", "o", "", "output path (default: derived from the resume title)")
	fs.StringVar(&f.font, "font", "", "CJK capable font file for the document renderer")
	fs.StringVar(&f.assetDir, "asset-dir", "", "directory local avatar paths are resolved against (default: input directory)")
	fs.DurationVar(&f.timeout, "timeout", 90*time.Second, "headless browser timeout for --format print")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log renderer warnings")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: render [flags] <resume.yaml|resume.json>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, ErrNoFile
	}
	f.input = fs.Arg(0)

	f.format = strings.ToLower(strings.TrimSpace(f.format))
	switch f.format {
	case formatPDF, formatViewer, formatHTML, formatPrint, formatDebug:
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrUsage, f.format)
	}
	if f.assetDir == "" {
		f.assetDir = filepath.Dir(f.input)
	}
	return f, nil
}

// outputPath 未指定 --out 时由标题生成文件名，与输入文件放在同一目录。
func (f *renderFlags) outputPath(fileName string) string {
	if f.out != "" {
		return f.out
	}
	base := strings.TrimSuffix(fileName, ".pdf")
	switch f.format {
	case formatViewer, formatHTML:
		base += ".html"
	case formatDebug:
		base += ".json"
	default:
		base += ".pdf"
	}
	return filepath.Join(filepath.Dir(f.input), base)
}
