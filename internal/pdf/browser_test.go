package pdf

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPDFRequestIsBorderlessA4(t *testing.T) {
	req := pdfRequest()
	if *req.PaperWidth != 8.27 || *req.PaperHeight != 11.69 {
		t.Fatalf("unexpected paper size %vx%v", *req.PaperWidth, *req.PaperHeight)
	}
	for name, margin := range map[string]*float64{
		"top":    req.MarginTop,
		"bottom": req.MarginBottom,
		"left":   req.MarginLeft,
		"right":  req.MarginRight,
	} {
		if *margin != 0 {
			t.Fatalf("%s margin = %v", name, *margin)
		}
	}
	if !req.PrintBackground || !req.PreferCSSPageSize {
		t.Fatal("print request must keep backgrounds and honour @page")
	}
}

func TestPrinterDefaults(t *testing.T) {
	p := NewPrinter(nil, 0)
	if p.timeout != defaultTimeout || p.logger == nil {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("closing an unused printer: %v", err)
	}
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	p := NewPrinter(nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.PrintHTML(ctx, []byte("<html></html>")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.browser != nil {
		t.Fatal("cancelled render must not launch a browser")
	}
}
