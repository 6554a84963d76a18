// Package pdf 通过无头 Chromium 打印 HTML 打印页，得到浏览器打印版 PDF 与页面截图。
package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ReadyMarker 打印页渲染完成后出现的元素。
const ReadyMarker = "#pdf-render-ready"

// PageSelector A4 页面容器。
const PageSelector = "#a4-container"

const (
	defaultTimeout = 90 * time.Second
	signalTimeout  = 30 * time.Second
	fontsTimeout   = 5 * time.Second
	idleTimeout    = 5 * time.Second

	// A4，单位英寸
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
)

var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load print page")
	ErrRenderSignal   = errors.New("print page never signalled ready")
	ErrPDFGeneration  = errors.New("pdf generation failed")
	ErrScreenshot     = errors.New("screenshot failed")
)

// Printer 载入打印页 HTML 并导出 PDF 或截图。
// 浏览器进程在首次使用时启动并被后续调用复用，每次渲染使用独立的隐身上下文。
type Printer struct {
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	launch  *launcher.Launcher
	browser *rod.Browser
}

// NewPrinter 创建打印器，timeout <= 0 时使用 90 秒。
func NewPrinter(logger *slog.Logger, timeout time.Duration) *Printer {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Printer{logger: logger, timeout: timeout}
}

// PrintHTML 载入打印页 HTML 并导出 A4 PDF。
func (p *Printer) PrintHTML(ctx context.Context, html []byte) ([]byte, error) {
	return p.render(ctx, html, exportPDF)
}

// ScreenshotHTML 载入打印页 HTML 并截取 A4 容器，输出 JPEG。
func (p *Printer) ScreenshotHTML(ctx context.Context, html []byte, quality int) ([]byte, error) {
	return p.render(ctx, html, func(page *rod.Page) ([]byte, error) {
		return captureScreenshot(page, quality)
	})
}

// Close 关闭浏览器进程，之后的调用会重新启动浏览器。
func (p *Printer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Printer) closeLocked() error {
	var err error
	if p.browser != nil {
		err = p.browser.Close()
		p.browser = nil
	}
	if p.launch != nil {
		p.launch.Kill()
		p.launch.Cleanup()
		p.launch = nil
	}
	return err
}

func (p *Printer) ensureBrowser() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		return p.browser, nil
	}

	l := launcher.New().Headless(true).NoSandbox(true)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	p.launch = l
	p.browser = browser
	p.logger.Info("headless browser started")
	return browser, nil
}

func (p *Printer) render(ctx context.Context, html []byte, capture func(*rod.Page) ([]byte, error)) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := p.ensureBrowser()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	incognito, err := browser.Incognito()
	if err != nil {
		// 浏览器多半已退出，下次调用重新启动
		p.mu.Lock()
		_ = p.closeLocked()
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	defer func() {
		_ = incognito.Close()
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	page = page.Context(ctx)
	defer func() {
		_ = page.Close()
	}()

	if err := p.prepare(page, html); err != nil {
		return nil, err
	}
	return capture(page)
}

// prepare 载入 HTML，等待就绪标记与字体，并切换到打印媒体样式。
func (p *Printer) prepare(page *rod.Page, html []byte) error {
	if err := page.SetDocumentContent(string(html)); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if _, err := page.Timeout(signalTimeout).Element(ReadyMarker); err != nil {
		return fmt.Errorf("%w: %v", ErrRenderSignal, err)
	}

	// 字体未就绪时文本会按回退字体排版
	if _, err := page.Timeout(fontsTimeout).Eval(`() => document.fonts ? document.fonts.ready.then(() => true) : true`); err != nil {
		p.logger.Warn("wait for fonts failed, continue", slog.Any("error", err))
	}

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return fmt.Errorf("%w: emulate print media: %v", ErrPageLoad, err)
	}
	if err := page.AddStyleTag("", printCSS); err != nil {
		return fmt.Errorf("%w: inject print css: %v", ErrPageLoad, err)
	}
	if err := page.WaitIdle(idleTimeout); err != nil {
		p.logger.Warn("wait idle failed, continue", slog.Any("error", err))
	}
	return nil
}

const printCSS = `
  .no-print, .preview-toolbar { display: none !important; }
  html, body { margin: 0 !important; padding: 0 !important; background: white !important; }
  #a4-container { box-shadow: none !important; margin: 0 auto !important; }
  @media print {
    * { -webkit-print-color-adjust: exact !important; print-color-adjust: exact !important; }
    @page { size: A4; margin: 0; }
  }
`

func pdfRequest() *proto.PagePrintToPDF {
	zero := 0.0
	width, height := paperWidthInches, paperHeightInches
	return &proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        &width,
		PaperHeight:       &height,
		MarginTop:         &zero,
		MarginBottom:      &zero,
		MarginLeft:        &zero,
		MarginRight:       &zero,
		PreferCSSPageSize: true,
	}
}

func exportPDF(page *rod.Page) ([]byte, error) {
	reader, err := page.PDF(pdfRequest())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: read stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

// captureScreenshot 优先截取 A4 容器，找不到时退回整页截图。
func captureScreenshot(page *rod.Page, quality int) ([]byte, error) {
	if element, err := page.Timeout(idleTimeout).Element(PageSelector); err == nil {
		if data, err := element.Screenshot(proto.PageCaptureScreenshotFormatJpeg, quality); err == nil {
			return data, nil
		}
	}

	data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &quality,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScreenshot, err)
	}
	return data, nil
}
