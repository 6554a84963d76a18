package layout

import (
	"encoding/json"
	"reflect"
	"testing"

	"phResumeRender/internal/resume"
)

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func moduleIDs(plan Plan) []string {
	ids := make([]string, 0, len(plan.Modules))
	for _, m := range plan.Modules {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestResolveSortsModulesStable(t *testing.T) {
	rec := &resume.Record{
		Modules: []resume.Module{
			{ID: "c", Order: 3},
			{ID: "a", Order: 1},
			{ID: "b1", Order: 2},
			{ID: "b2", Order: 2},
			{ID: "z", Order: -5},
		},
	}
	plan := Resolve(rec)

	want := []string{"z", "a", "b1", "b2", "c"}
	if got := moduleIDs(plan); !reflect.DeepEqual(got, want) {
		t.Fatalf("module order = %v want %v", got, want)
	}
	if rec.Modules[0].ID != "c" {
		t.Fatal("input modules must not be reordered")
	}
	if plan.Placeholder != nil {
		t.Fatal("placeholder must be absent when modules exist")
	}
}

func TestResolveSortsRowsKeepsElementSequence(t *testing.T) {
	rec := &resume.Record{
		Modules: []resume.Module{{
			ID: "m",
			Rows: []resume.Row{
				{ID: "r2", Columns: 2, Order: 2, Elements: []resume.Element{{ID: "e3"}, {ID: "e1"}}},
				{ID: "r1", Columns: 1, Order: 1, Elements: []resume.Element{{ID: "e0"}}},
			},
		}},
	}
	rows := Resolve(rec).Modules[0].Rows
	if rows[0].ID != "r1" || rows[1].ID != "r2" {
		t.Fatalf("rows not sorted: %+v", rows)
	}
	if rows[1].Cells[0].ID != "e3" || rows[1].Cells[1].ID != "e1" {
		t.Fatalf("elements must keep stored order: %+v", rows[1].Cells)
	}
	if rows[1].Mismatch {
		t.Fatal("matching row flagged as mismatch")
	}
}

func TestResolveRowMismatch(t *testing.T) {
	cases := []struct {
		name      string
		row       resume.Row
		columns   int
		cells     int
		fillers   int
		lineCount int
	}{
		{"short row padded", resume.Row{Columns: 3, Elements: []resume.Element{{ID: "a"}}}, 3, 3, 2, 1},
		{"overflow wraps", resume.Row{Columns: 2, Elements: []resume.Element{{ID: "a"}, {ID: "b"}, {ID: "c"}}}, 2, 4, 1, 2},
		{"zero columns", resume.Row{Columns: 0, Elements: []resume.Element{{ID: "a"}, {ID: "b"}}}, 2, 2, 0, 1},
		{"empty row", resume.Row{Columns: 0}, 1, 1, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := resolveRow(tc.row)
			if !row.Mismatch {
				t.Fatal("expected mismatch flag")
			}
			if row.Columns != tc.columns || len(row.Cells) != tc.cells {
				t.Fatalf("columns=%d cells=%d", row.Columns, len(row.Cells))
			}
			fillers := 0
			for _, c := range row.Cells {
				if c.Filler {
					fillers++
				}
			}
			if fillers != tc.fillers {
				t.Fatalf("fillers=%d want %d", fillers, tc.fillers)
			}
			if got := len(row.Lines()); got != tc.lineCount {
				t.Fatalf("lines=%d want %d", got, tc.lineCount)
			}
		})
	}
}

func TestJobIntentionDropsEmptySalary(t *testing.T) {
	section := &resume.JobIntentionSection{
		Enabled: true,
		Items: []resume.JobIntentionItem{
			{Label: "City", Value: "Remote", Order: 0},
			{Label: "Salary", Value: "", Order: 1, Type: resume.JobIntentionSalary, SalaryRange: &resume.SalaryRange{}},
		},
	}
	if got := JobIntentionLine(section); got != "City：Remote" {
		t.Fatalf("job intention = %q", got)
	}
}

func TestJobIntentionOrderingAndSalaryRange(t *testing.T) {
	section := &resume.JobIntentionSection{
		Enabled: true,
		Items: []resume.JobIntentionItem{
			{Label: "薪资", Order: 2, Type: resume.JobIntentionSalary, SalaryRange: &resume.SalaryRange{Min: floatPtr(15), Max: floatPtr(25.5)}},
			{Label: "职位", Value: "  后端工程师 ", Order: 1},
			{Label: "城市", Value: "   ", Order: 0},
			{Label: "下限", Order: 3, Type: resume.JobIntentionSalary, SalaryRange: &resume.SalaryRange{Min: floatPtr(10)}},
			{Label: "上限", Order: 4, Type: resume.JobIntentionSalary, SalaryRange: &resume.SalaryRange{Max: floatPtr(40)}},
		},
	}
	want := "职位：后端工程师 ｜ 薪资：15-25.5 ｜ 下限：10以上 ｜ 上限：40以下"
	if got := JobIntentionLine(section); got != want {
		t.Fatalf("job intention = %q want %q", got, want)
	}
}

func TestJobIntentionAbsent(t *testing.T) {
	cases := map[string]*resume.JobIntentionSection{
		"nil":      nil,
		"disabled": {Enabled: false, Items: []resume.JobIntentionItem{{Label: "a", Value: "b"}}},
		"no items": {Enabled: true},
		"all empty": {Enabled: true, Items: []resume.JobIntentionItem{
			{Label: "a"},
			{Label: "s", Type: resume.JobIntentionSalary},
		}},
	}
	for name, section := range cases {
		if got := JobIntentionLine(section); got != "" {
			t.Fatalf("%s: expected absent, got %q", name, got)
		}
	}
	plan := Resolve(&resume.Record{JobIntentionSection: cases["disabled"]})
	if plan.HasJobIntention() {
		t.Fatal("plan should not carry job intention")
	}
}

func TestLegacyInlineMatchesExplicitInline(t *testing.T) {
	items := []resume.PersonalInfoItem{
		{ID: "p1", Label: "电话", Value: resume.PersonalInfoValue{Type: resume.ValueText, Content: "13800000000"}},
		{ID: "p2", Label: "邮箱", Value: resume.PersonalInfoValue{Type: resume.ValueText}},
	}
	legacy := Resolve(&resume.Record{PersonalInfoSection: &resume.PersonalInfoSection{
		PersonalInfo:       items,
		PersonalInfoInline: boolPtr(true),
	}})
	current := Resolve(&resume.Record{PersonalInfoSection: &resume.PersonalInfoSection{
		PersonalInfo: items,
		Layout:       &resume.PersonalInfoLayout{Mode: resume.LayoutInline},
	}})

	if !legacy.PersonalInfo.Inline() {
		t.Fatal("legacy flag should resolve to inline")
	}
	if !reflect.DeepEqual(legacy.PersonalInfo, current.PersonalInfo) {
		t.Fatalf("legacy %+v\ncurrent %+v", legacy.PersonalInfo, current.PersonalInfo)
	}
}

func TestModeResolution(t *testing.T) {
	cases := []struct {
		name    string
		section *resume.PersonalInfoSection
		mode    resume.LayoutMode
		perRow  int
	}{
		{"nil section", nil, resume.LayoutGrid, 2},
		{"explicit grid beats legacy", &resume.PersonalInfoSection{
			Layout: &resume.PersonalInfoLayout{Mode: resume.LayoutGrid, ItemsPerRow: 3}, PersonalInfoInline: boolPtr(true),
		}, resume.LayoutGrid, 3},
		{"unknown mode is grid", &resume.PersonalInfoSection{
			Layout: &resume.PersonalInfoLayout{Mode: "columns"},
		}, resume.LayoutGrid, 2},
		{"legacy false", &resume.PersonalInfoSection{PersonalInfoInline: boolPtr(false)}, resume.LayoutGrid, 2},
		{"negative per row", &resume.PersonalInfoSection{
			Layout: &resume.PersonalInfoLayout{Mode: resume.LayoutGrid, ItemsPerRow: -1},
		}, resume.LayoutGrid, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := Resolve(&resume.Record{PersonalInfoSection: tc.section}).PersonalInfo
			if info.Mode != tc.mode || info.ItemsPerRow != tc.perRow {
				t.Fatalf("mode=%s perRow=%d", info.Mode, info.ItemsPerRow)
			}
		})
	}
}

func TestGridRowsLeaveShortFinalRow(t *testing.T) {
	section := &resume.PersonalInfoSection{
		Layout: &resume.PersonalInfoLayout{Mode: resume.LayoutGrid, ItemsPerRow: 2},
	}
	for _, id := range []string{"a", "b", "c"} {
		section.PersonalInfo = append(section.PersonalInfo, resume.PersonalInfoItem{ID: id})
	}
	rows := Resolve(&resume.Record{PersonalInfoSection: section}).PersonalInfo.Rows
	if len(rows) != 2 || len(rows[0]) != 2 || len(rows[1]) != 1 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestInfoItemRendering(t *testing.T) {
	section := &resume.PersonalInfoSection{
		ShowPersonalInfoLabels: boolPtr(false),
		PersonalInfo: []resume.PersonalInfoItem{
			{ID: "link-titled", Order: 3, Value: resume.PersonalInfoValue{Type: resume.ValueLink, Content: "https://github.com/x", Title: "GitHub"}},
			{ID: "link-untitled", Order: 2, Value: resume.PersonalInfoValue{Type: resume.ValueLink, Content: "https://x.dev"}},
			{ID: "link-empty", Order: 1, Value: resume.PersonalInfoValue{Type: resume.ValueLink}},
			{ID: "name", Order: 0, Label: "姓名", Value: resume.PersonalInfoValue{Type: resume.ValueText, Content: "张三"}},
		},
	}
	items := Resolve(&resume.Record{PersonalInfoSection: section}).PersonalInfo.Items

	if items[0].ID != "name" || items[3].ID != "link-titled" {
		t.Fatalf("items not sorted by order: %+v", items)
	}
	if items[0].ShowLabel {
		t.Fatal("labels hidden globally")
	}
	if items[0].Script != ScriptDefault || items[0].Text != "张三" {
		t.Fatalf("unexpected name item %+v", items[0])
	}
	if items[1].IsLink() || items[1].Text != ValuePlaceholder || !items[1].Placeholder {
		t.Fatalf("empty link should fall back to not-filled: %+v", items[1])
	}
	if !items[2].IsLink() || items[2].Text != LinkPlaceholder || items[2].Script != ScriptLatin {
		t.Fatalf("untitled link: %+v", items[2])
	}
	if items[3].Text != "GitHub" || items[3].Href != "https://github.com/x" {
		t.Fatalf("titled link: %+v", items[3])
	}
}

func TestScriptOf(t *testing.T) {
	if ScriptOf("John Doe") != ScriptLatin {
		t.Fatal("ascii should be latin")
	}
	if ScriptOf("张三") != ScriptDefault {
		t.Fatal("cjk should be default")
	}
	if ScriptOf("John 张") != ScriptDefault {
		t.Fatal("mixed should be default")
	}
	if ScriptOf("") != ScriptDefault {
		t.Fatal("empty should be default")
	}
}

func TestEmptyModulesPlaceholder(t *testing.T) {
	plan := Resolve(&resume.Record{Modules: []resume.Module{}})
	if plan.Placeholder == nil || len(plan.Modules) != 0 {
		t.Fatalf("expected placeholder only, got %+v", plan)
	}
	if plan.Placeholder.Message != PlaceholderMessage || plan.Placeholder.Icon != PlaceholderIcon {
		t.Fatalf("unexpected placeholder %+v", plan.Placeholder)
	}
}

func TestResolveNilRecord(t *testing.T) {
	plan := Resolve(nil)
	if plan.Title != DefaultTitle || plan.Placeholder == nil {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if plan.PersonalInfo.Inline() || plan.PersonalInfo.ItemsPerRow != DefaultItemsPerRow || !plan.PersonalInfo.ShowLabels {
		t.Fatalf("unexpected personal info defaults %+v", plan.PersonalInfo)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	rec := &resume.Record{
		Title: "Jane",
		Modules: []resume.Module{
			{ID: "b", Order: 1, Rows: []resume.Row{{ID: "r", Columns: 1, Elements: []resume.Element{{ID: "e", Content: json.RawMessage(`"x"`)}}}}},
			{ID: "a", Order: 0},
		},
	}
	if !reflect.DeepEqual(Resolve(rec), Resolve(rec)) {
		t.Fatal("resolve must be deterministic")
	}
}
