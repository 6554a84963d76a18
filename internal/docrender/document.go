// Package docrender 将渲染计划排版为分页的绘图树，并输出 PDF 或分页查看器。
//
// 绘图树只包含文本行、图片、矢量路径和直线四类图元，坐标与尺寸统一使用毫米，
// 原点位于页面左上角。
package docrender

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
)

// 单位换算。
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// A4 纸张尺寸（mm）。
const (
	A4Width  = 210.0
	A4Height = 297.0
)

// FontRole 区分默认（中文）字体与拉丁字体。
type FontRole string

const (
	RoleDefault FontRole = "default"
	RoleLatin   FontRole = "latin"
)

// Font 描述文本使用的字体。Size 以 pt 为单位。
type Font struct {
	Role   FontRole `json:"role"`
	Size   float64  `json:"size"`
	Bold   bool     `json:"bold,omitempty"`
	Italic bool     `json:"italic,omitempty"`
}

// Document 绘图树根节点。
type Document struct {
	Title string `json:"title"`
	Pages []Page `json:"pages"`
	// Warnings 记录排版过程中被跳过的资源，例如无法解码的头像。
	Warnings []string `json:"warnings,omitempty"`
}

// Page 一页中的全部图元。
type Page struct {
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Texts  []TextRun   `json:"texts"`
	Images []ImageNode `json:"images,omitempty"`
	Paths  []PathNode  `json:"paths,omitempty"`
	Lines  []Rule      `json:"lines,omitempty"`
}

// TextRun 单行文本。Y 为行框顶部，LineHeight 为行框高度，渲染器在行框内垂直居中绘制。
type TextRun struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	LineHeight float64 `json:"lineHeight"`
	Font       Font    `json:"font"`
	Color      string  `json:"color"`
}

// ImageNode 位图。Data 不参与调试输出。
type ImageNode struct {
	Ref    string      `json:"ref"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Data   image.Image `json:"-"`
}

// PathNode 以 SVG 路径语法描述的填充图形，绘制时按 Scale 缩放后平移到 (X, Y)。
type PathNode struct {
	D     string  `json:"d"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
	Fill  string  `json:"fill"`
}

// Rule 直线。
type Rule struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

// WriteDebugJSON 将绘图树输出为 JSON，便于调试或可视化。
func WriteDebugJSON(doc *Document, path string) error {
	if doc == nil {
		return nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
