package htmlrender

// fragmentTemplate 是简历主体的模板，预览与打印共用同一份输出。
const fragmentTemplate = `{{define "fragment"}}<div class="resume-preview resume-content">
<div class="resume-header{{if .CenterTitle}} resume-header--center{{end}}">
<div class="resume-header-main">
<h1 class="resume-title">{{.Title}}</h1>
{{- if .JobIntention}}
<div class="job-intention-line">{{.JobIntention}}</div>
{{- end}}
{{- if .Info.Inline}}
<div class="personal-info personal-info-inline">
{{- range $i, $item := .Info.Items}}
{{- if $i}}<span class="personal-info-separator">{{$.Info.Separator}}</span>{{end}}
{{template "info-item" $item}}
{{- end}}
</div>
{{- else if .Info.Items}}
<div class="personal-info personal-info-grid" style="grid-template-columns: repeat({{.Info.Columns}}, max-content)">
{{- range .Info.Items}}
{{template "info-item" .}}
{{- end}}
</div>
{{- end}}
</div>
{{- if .Avatar}}
<div class="resume-avatar-wrap">
<img class="resume-avatar" src="{{.Avatar}}" alt="头像">
</div>
{{- end}}
</div>
<div class="resume-modules">
{{- range .Modules}}
<section class="resume-module" data-module-id="{{.ID}}">
<div class="module-title">
{{- if .Icon}}<svg class="module-icon" width="20" height="20" viewBox="0 0 24 24" fill="black">{{.Icon}}</svg>{{end}}
<span>{{.Title}}</span>
</div>
{{- if .HasHeader}}
<div class="module-header">
<span class="module-subtitle">{{.Subtitle}}</span>
<span class="module-time-range">{{.TimeRange}}</span>
</div>
{{- end}}
{{- if .Content}}
<div class="module-content">{{.Content}}</div>
{{- end}}
<div class="module-rows">
{{- range .Rows}}
<div class="module-row{{if .Mismatch}} module-row--mismatch{{end}}" style="grid-template-columns: repeat({{.Columns}}, 1fr)">
{{- range .Cells}}
<div class="module-cell">{{.}}</div>
{{- end}}
</div>
{{- end}}
</div>
</section>
{{- end}}
</div>
{{- with .Placeholder}}
<div class="resume-empty no-print">
<svg class="resume-empty-icon" width="48" height="48" viewBox="0 0 24 24" fill="currentColor">{{.Icon}}</svg>
<p>{{.Message}}</p>
</div>
{{- end}}
</div>{{end}}

{{define "info-item"}}<div class="personal-info-item">
{{- if .Icon}}<svg class="resume-icon" viewBox="0 0 24 24" fill="black">{{.Icon}}</svg>{{end}}
{{- if .ShowLabel}}<span class="personal-info-label">{{.Label}}</span>{{end}}
{{- if .Href}}<a class="personal-info-value personal-info-link{{if .Latin}} font-latin{{end}}" href="{{.Href}}" target="_blank" rel="noopener noreferrer">{{.Text}}</a>
{{- else}}<span class="personal-info-value{{if .Latin}} font-latin{{end}}{{if .Placeholder}} is-placeholder{{end}}">{{.Text}}</span>{{end -}}
</div>{{end}}`

// pageTemplate 是完整 HTML 文档的模板。
const pageTemplate = `{{define "page"}}<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.DocumentTitle}}</title>
<style>{{.CSS}}</style>
</head>
<body class="mode-{{.Mode}}">
{{- if .Chrome}}
<div class="preview-toolbar no-print">
<button type="button" onclick="window.close()">关闭</button>
<button type="button" onclick="window.print()">打印</button>
</div>
{{- end}}
<div id="a4-container" class="a4-page">
{{.Body}}
</div>
{{- if .Ready}}
<div id="pdf-render-ready" style="display:none"></div>
{{- end}}
{{- if .ChannelURL}}
<script>
{{template "channel-script" .}}
</script>
{{- end}}
</body>
</html>{{end}}

{{define "status"}}<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.DocumentTitle}}</title>
<style>{{.CSS}}</style>
</head>
<body class="mode-{{.Mode}}">
<div class="status-screen">
<p class="status-message">{{.Message}}</p>
</div>
{{- if .ChannelURL}}
<script>
{{template "channel-script" .}}
</script>
{{- end}}
</body>
</html>{{end}}

{{define "channel-script"}}(function () {
  var url = {{.ChannelURL}};
  var socket;
  try {
    socket = new WebSocket(url);
  } catch (e) {
    return;
  }
  socket.addEventListener("open", function () {
    socket.send(JSON.stringify({ type: "ready" }));
  });
  socket.addEventListener("message", function (event) {
    var msg;
    try {
      msg = JSON.parse(event.data);
    } catch (e) {
      return;
    }
    if (msg && msg.type === "resumeData") {
      window.location.reload();
    }
  });
  window.addEventListener("beforeunload", function () {
    socket.close();
  });
})();{{end}}`

// pageCSS 预览与打印共用的样式。
const pageCSS = `
*, *::before, *::after { box-sizing: border-box; }
html, body { margin: 0; padding: 0; }
body {
  font-family: "Noto Sans SC", "PingFang SC", "Microsoft YaHei", sans-serif;
  font-size: 14px;
  color: #1f2328;
  background: #f0f0f0;
}
.font-latin { font-family: "Inter", "Helvetica Neue", Arial, sans-serif; }
.a4-page {
  width: 794px;
  min-height: 1122px;
  margin: 24px auto;
  padding: 40px;
  background: white;
  box-shadow: 0 2px 12px rgba(0, 0, 0, 0.12);
}
.preview-toolbar {
  position: sticky;
  top: 0;
  display: flex;
  justify-content: flex-end;
  gap: 8px;
  padding: 8px 16px;
  background: white;
  border-bottom: 1px solid #e5e7eb;
  z-index: 10;
}
.preview-toolbar button {
  padding: 4px 12px;
  border: 1px solid #d0d7de;
  border-radius: 4px;
  background: white;
  cursor: pointer;
}
.resume-header { display: flex; align-items: flex-start; justify-content: space-between; margin-bottom: 1.5rem; }
.resume-header--center { flex-direction: column; align-items: center; }
.resume-header-main { flex: 1; }
.resume-header--center .resume-header-main { width: 100%; }
.resume-title { font-size: 1.5rem; font-weight: 700; margin: 0 0 1rem; }
.resume-header--center .resume-title,
.resume-header--center .job-intention-line { text-align: center; }
.job-intention-line { font-size: 0.875rem; color: #6b7280; margin-bottom: 0.75rem; }
.personal-info-inline {
  display: flex;
  align-items: center;
  justify-content: space-between;
  width: 100%;
  white-space: nowrap;
  background: #f5f6f8;
  padding: 8px 12px;
  border-radius: 4px;
}
.personal-info-separator { color: #999; }
.personal-info-grid {
  display: grid;
  justify-content: space-between;
  justify-items: start;
  align-items: center;
  column-gap: 0;
  row-gap: 0.5rem;
  width: 100%;
}
.personal-info-item { display: inline-flex; align-items: center; gap: 0.125rem; white-space: nowrap; font-size: 0.875rem; line-height: 1; }
.personal-info-label { color: #6b7280; }
.personal-info-link { color: #2563eb; text-decoration: none; }
.resume-icon { width: 1em; height: 1em; flex-shrink: 0; }
.resume-avatar-wrap { margin-left: 1.5rem; }
.resume-header--center .resume-avatar-wrap { margin-left: 0; margin-top: 1rem; }
.resume-avatar { width: 5rem; height: 5rem; border-radius: 9999px; object-fit: cover; border: 2px solid #e5e7eb; }
.resume-modules > * + * { margin-top: 1.5rem; }
.module-title {
  display: flex;
  align-items: center;
  gap: 0.5rem;
  font-size: 1.125rem;
  font-weight: 600;
  border-bottom: 1px solid #e5e7eb;
  padding-bottom: 0.5rem;
  margin-bottom: 0.75rem;
}
.module-header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 0.25rem; }
.module-subtitle { font-weight: 500; }
.module-time-range { color: #6b7280; font-size: 0.875rem; }
.module-content { font-size: 0.875rem; line-height: 1.5; margin-bottom: 0.5rem; white-space: pre-wrap; }
.module-rows > * + * { margin-top: 0.75rem; }
.module-row { display: grid; gap: 0.75rem; }
.module-cell { font-size: 0.875rem; }
.module-cell p { margin: 0; }
.resume-empty { text-align: center; padding: 3rem 0; color: #6b7280; }
.resume-empty-icon { opacity: 0.5; margin-bottom: 1rem; }
.status-screen { display: flex; align-items: center; justify-content: center; min-height: 100vh; color: #6b7280; }
body.mode-print { background: white; }
body.mode-print .a4-page { margin: 0; box-shadow: none; }
@media print {
  body { background: white; }
  .no-print { display: none !important; }
  .a4-page { margin: 0; box-shadow: none; }
  * { -webkit-print-color-adjust: exact !important; print-color-adjust: exact !important; }
  @page { size: A4; margin: 0; }
}
`
