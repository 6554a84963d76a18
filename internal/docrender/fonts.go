package docrender

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Fonts 字体注册表。默认字体来自外部字体文件（需覆盖中文字形），
// 同一文件同时注册为常规、粗体、斜体与粗斜体；拉丁字体固定使用内置 Go 字体。
type Fonts struct {
	once     sync.Once
	logger   *slog.Logger
	path     string
	err      error
	degraded bool

	defaultFamily *canvas.FontFamily
	latinFamily   *canvas.FontFamily
}

// NewFonts 创建字体注册表，path 为空时直接使用内置字体。
func NewFonts(logger *slog.Logger, path string) *Fonts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fonts{logger: logger, path: path}
}

// Register 注册字体，多次调用只生效一次。
// 字体文件缺失或无法解析时退回内置字体并记录警告，此时中文字形可能无法显示。
func (f *Fonts) Register() error {
	f.once.Do(func() {
		latin, err := goFamily("latin")
		if err != nil {
			f.err = fmt.Errorf("register latin font: %w", err)
			return
		}
		f.latinFamily = latin

		if f.path != "" {
			family, err := fileFamily(f.path)
			if err == nil {
				f.defaultFamily = family
				return
			}
			f.logger.Warn("加载默认字体失败，使用内置字体", "path", f.path, "error", err)
		} else {
			f.logger.Warn("未配置默认字体，使用内置字体，中文可能无法显示")
		}
		f.degraded = true
		f.defaultFamily, f.err = goFamily("default")
	})
	return f.err
}

// Degraded 默认字体是否退回了内置字体。
func (f *Fonts) Degraded() bool {
	_ = f.Register()
	return f.degraded
}

func (f *Fonts) family(role FontRole) (*canvas.FontFamily, error) {
	if err := f.Register(); err != nil {
		return nil, err
	}
	if role == RoleLatin {
		return f.latinFamily, nil
	}
	return f.defaultFamily, nil
}

var fontStyles = []canvas.FontStyle{
	canvas.FontRegular,
	canvas.FontBold,
	canvas.FontItalic,
	canvas.FontBold | canvas.FontItalic,
}

func fileFamily(path string) (*canvas.FontFamily, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("resume-default")
	for _, style := range fontStyles {
		if err := family.LoadFont(data, 0, style); err != nil {
			return nil, fmt.Errorf("load font %s: %w", path, err)
		}
	}
	return family, nil
}

func goFamily(name string) (*canvas.FontFamily, error) {
	family := canvas.NewFontFamily("resume-" + name)
	blobs := [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF}
	for i, style := range fontStyles {
		if err := family.LoadFont(blobs[i], 0, style); err != nil {
			return nil, err
		}
	}
	return family, nil
}

func styleOf(font Font) canvas.FontStyle {
	style := canvas.FontRegular
	if font.Bold {
		style |= canvas.FontBold
	}
	if font.Italic {
		style |= canvas.FontItalic
	}
	return style
}
