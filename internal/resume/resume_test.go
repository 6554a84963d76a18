package resume

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func sampleRecord() *Record {
	return &Record{
		Title:       "张三的简历",
		Avatar:      "data:image/png;base64,iVBORw0KGgo=",
		CenterTitle: true,
		JobIntentionSection: &JobIntentionSection{
			Enabled: true,
			Items: []JobIntentionItem{
				{ID: "j1", Label: "城市", Value: "上海", Order: 0},
				{ID: "j2", Label: "薪资", Order: 1, Type: JobIntentionSalary, SalaryRange: &SalaryRange{Min: floatPtr(20), Max: floatPtr(30)}},
			},
		},
		PersonalInfoSection: &PersonalInfoSection{
			PersonalInfo: []PersonalInfoItem{
				{ID: "p1", Label: "邮箱", Icon: "mdi:email", Value: PersonalInfoValue{Type: ValueText, Content: "john@example.com"}},
				{ID: "p2", Label: "主页", Value: PersonalInfoValue{Type: ValueLink, Content: "https://example.com", Title: "主页"}},
			},
			ShowPersonalInfoLabels: boolPtr(false),
			Layout:                 &PersonalInfoLayout{Mode: LayoutGrid, ItemsPerRow: 3},
		},
		Modules: []Module{
			{
				ID: "m1", Title: "教育经历", Subtitle: "某大学", TimeRange: "2018-2022", Order: 2,
				Rows: []Row{{ID: "r1", Columns: 2, Order: 0, Elements: []Element{
					{ID: "e1", Content: json.RawMessage(`"计算机科学"`)},
					{ID: "e2", Content: json.RawMessage(`{"type":"doc","content":[]}`)},
				}}},
			},
		},
	}
}

func TestPrintParamRoundTrip(t *testing.T) {
	rec := sampleRecord()

	param, err := EncodePrintParam(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodePrintParam(param)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(rec, got) {
		t.Fatalf("round trip mismatch\nwant %#v\ngot  %#v", rec, got)
	}
}

func TestDecodePrintParamAcceptsEscapedAndURLAlphabet(t *testing.T) {
	rec := sampleRecord()
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	cases := map[string]string{
		"query escaped": url.QueryEscape(base64.StdEncoding.EncodeToString(raw)),
		"url alphabet":  base64.URLEncoding.EncodeToString(raw),
		"raw std":       base64.RawStdEncoding.EncodeToString(raw),
	}
	for name, param := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := DecodePrintParam(param)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Title != rec.Title {
				t.Fatalf("expected title %q got %q", rec.Title, got.Title)
			}
		})
	}
}

func TestDecodePrintParamInvalid(t *testing.T) {
	inputs := []string{
		"",
		"%%%not-base64%%%",
		base64.StdEncoding.EncodeToString([]byte("{not json")),
	}
	for _, in := range inputs {
		if _, err := DecodePrintParam(in); !errors.Is(err, ErrInvalidPrintParam) {
			t.Fatalf("input %q: expected ErrInvalidPrintParam, got %v", in, err)
		}
	}
}

func TestShapePrefersExplicitMode(t *testing.T) {
	section := &PersonalInfoSection{
		Layout:             &PersonalInfoLayout{Mode: LayoutGrid, ItemsPerRow: 4},
		PersonalInfoInline: boolPtr(true),
	}
	shape, ok := section.Shape().(CurrentLayout)
	if !ok {
		t.Fatalf("expected CurrentLayout, got %T", section.Shape())
	}
	if shape.Mode != LayoutGrid || shape.ItemsPerRow != 4 {
		t.Fatalf("unexpected shape %+v", shape)
	}
}

func TestShapeFallsBackToLegacyFlag(t *testing.T) {
	section := &PersonalInfoSection{
		Layout:             &PersonalInfoLayout{ItemsPerRow: 3},
		PersonalInfoInline: boolPtr(true),
	}
	shape, ok := section.Shape().(LegacyLayout)
	if !ok {
		t.Fatalf("expected LegacyLayout, got %T", section.Shape())
	}
	if !shape.Inline || shape.ItemsPerRow != 3 {
		t.Fatalf("unexpected shape %+v", shape)
	}

	var nilSection *PersonalInfoSection
	if got := nilSection.Shape(); got != (LegacyLayout{}) {
		t.Fatalf("nil section shape = %+v", got)
	}
}

func TestLabelsVisibleDefaultsTrue(t *testing.T) {
	if !(&PersonalInfoSection{}).LabelsVisible() {
		t.Fatal("labels should default to visible")
	}
	if (&PersonalInfoSection{ShowPersonalInfoLabels: boolPtr(false)}).LabelsVisible() {
		t.Fatal("explicit false should hide labels")
	}
}

func TestDecodeYAMLKeepsRichContent(t *testing.T) {
	input := `
title: Jane Doe
modules:
  - id: m1
    title: Skills
    order: 1
    rows:
      - id: r1
        columns: 1
        order: 0
        elements:
          - id: e1
            content: "**Go** and SQL"
          - id: e2
            content:
              type: doc
              content:
                - type: paragraph
`
	rec, err := Decode([]byte(input), FormatYAML)
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if rec.Title != "Jane Doe" || len(rec.Modules) != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
	elements := rec.Modules[0].Rows[0].Elements
	if string(elements[0].Content) != `"**Go** and SQL"` {
		t.Fatalf("unexpected string content %s", elements[0].Content)
	}
	if !strings.Contains(string(elements[1].Content), `"paragraph"`) {
		t.Fatalf("unexpected node content %s", elements[1].Content)
	}
}

func TestDecodeRejectsEmpty(t *testing.T) {
	if _, err := Decode([]byte("  \n"), FormatJSON); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	if DetectFormat("a.yml", nil) != FormatYAML {
		t.Fatal("yml should be yaml")
	}
	if DetectFormat("stdin", []byte(` {"title":"x"}`)) != FormatJSON {
		t.Fatal("brace should be json")
	}
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"":             "resume.pdf",
		"   ":          "resume.pdf",
		"张三 / 后端":   "张三 _ 后端.pdf",
		"Jane's CV":    "Jane's CV.pdf",
		"a:b*c?":       "a_b_c.pdf",
	}
	for in, want := range cases {
		if got := FileName(in); got != want {
			t.Fatalf("FileName(%q) = %q want %q", in, got, want)
		}
	}
}
