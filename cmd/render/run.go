package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"phResumeRender/internal/docrender"
	"phResumeRender/internal/htmlrender"
	"phResumeRender/internal/icon"
	"phResumeRender/internal/layout"
	"phResumeRender/internal/pdf"
	"phResumeRender/internal/resume"
	"phResumeRender/internal/richtext"
)

var (
	ErrReadResume = errors.New("read resume")
	ErrWrite      = errors.New("write output")
	ErrRender     = errors.New("render")
)

// Exit codes，遵循 0=成功、1=一般错误、2=用法错误 的约定。
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitUsage   = 2
	ExitIO      = 3
	ExitBrowser = 4
)

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrUsage), errors.Is(err, ErrNoFile):
		return ExitUsage
	case errors.Is(err, ErrReadResume), errors.Is(err, ErrWrite), errors.Is(err, os.ErrNotExist):
		return ExitIO
	case errors.Is(err, pdf.ErrBrowserConnect), errors.Is(err, pdf.ErrRenderSignal):
		return ExitBrowser
	}
	return ExitGeneral
}

func run(args []string, stdout, stderr io.Writer) error {
	flags, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	level := slog.LevelError
	if flags.verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	rec, err := resume.LoadFile(flags.input)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadResume, err)
	}
	plan := layout.Resolve(rec)
	rich := richtext.New()
	icons := icon.NewBuiltin()
	fileName := resume.FileName(plan.Title)
	out := flags.outputPath(fileName)

	var data []byte
	switch flags.format {
	case formatHTML, formatPrint:
		mode := htmlrender.ModePreview
		if flags.format == formatPrint {
			mode = htmlrender.ModePrint
		}
		data, err = htmlrender.New(rich, icons).WithLogger(logger).Page(plan, htmlrender.PageOptions{Mode: mode, FileName: fileName})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		if flags.format == formatPrint {
			ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
			defer cancel()
			printer := pdf.NewPrinter(logger, flags.timeout)
			defer printer.Close()
			data, err = printer.PrintHTML(ctx, data)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrRender, err)
			}
		}

	default:
		fonts := docrender.NewFonts(logger, flags.font)
		if err := fonts.Register(); err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		renderer := docrender.NewRenderer(fonts)
		doc, err := renderer.Build(plan, docrender.Assets{
			Images: docrender.LocalImages{BaseDir: flags.assetDir},
			Icons:  icons,
			Text:   rich,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		for _, w := range doc.Warnings {
			logger.Warn("layout warning", slog.String("warning", w))
		}

		switch flags.format {
		case formatDebug:
			if err := docrender.WriteDebugJSON(doc, out); err != nil {
				return fmt.Errorf("%w: %w", ErrWrite, err)
			}
			fmt.Fprintln(stdout, out)
			return nil
		case formatViewer:
			data, err = renderer.Viewer(doc)
		default:
			data, err = renderer.PDF(doc)
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	fmt.Fprintln(stdout, out)
	return nil
}
