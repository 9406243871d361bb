/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"oshicropper/internal/layout"
	applog "oshicropper/internal/log"
)

// HTMLOptions controls the print page.
type HTMLOptions struct {
	// Guides shows the image-area guide on screen. It never prints.
	Guides bool
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
:root { {{.Vars}} }
@page { size: {{.SheetW}} {{.SheetH}}; margin: 0 }
body { margin: 0; font-family: sans-serif }
.sheet { position: relative; width: {{.SheetW}}; height: {{.SheetH}}; overflow: hidden; page-break-after: always; background: #fff }
.slot { position: absolute }
.slot img { display: block; width: 100%; height: 100%; object-fit: cover }
.round { position: absolute; left: 50%; top: 50%; transform: translate(-50%, -50%); border-radius: 50%; box-sizing: border-box }
.badge .image { width: calc(var(--image-area) + 2 * var(--safe-margin)); height: calc(var(--image-area) + 2 * var(--safe-margin)); overflow: hidden }
.badge .cut-guide { width: var(--diameter); height: var(--diameter); border: 0.2mm dashed #000 }
.badge .image-area-guide { width: var(--image-area); height: var(--image-area); border: 0.2mm dashed #f00 }
.photo { width: var(--width); height: var(--height) }
.hidden { display: none }
@media print { .no-print { display: none !important } }
</style>
</head>
<body>
<header class="{{index .Class "print-button"}}" data-group="print-button"><button type="button" onclick="window.print()">Print</button></header>
<main class="{{index .Class "pages"}}" data-group="pages">
{{- range $page := .Pages}}
<section class="sheet">
{{- range $page}}
{{- if $.Badge}}
<div class="slot badge" style="{{.Style}}">
<div class="round image"><img src="{{.Src}}" alt="{{.Name}}"></div>
<div class="round cut-guide {{index $.Class "cut-guide"}}" data-group="cut-guide"></div>
<div class="round image-area-guide {{index $.Class "image-area-guide"}}{{if not $.Guides}} hidden{{end}}" data-group="image-area-guide"></div>
</div>
{{- else}}
<div class="slot photo" style="{{.Style}}"><img src="{{.Src}}" alt="{{.Name}}"></div>
{{- end}}
{{- end}}
</section>
{{- end}}
</main>
<footer class="{{index .Class "footer"}}" data-group="footer">{{.Count}} images, {{len .Pages}} sheets, {{.PerPage}} per sheet</footer>
</body>
</html>
`))

type htmlSlot struct {
	Name  string
	Src   template.URL
	Style template.CSS
}

type htmlPage struct {
	Title   string
	Vars    template.CSS
	SheetW  template.CSS
	SheetH  template.CSS
	Badge   bool
	Guides  bool
	Class   map[string]string
	Pages   [][]htmlSlot
	Count   int
	PerPage int
}

func mm(v float64) template.CSS { return template.CSS(strconv.FormatFloat(v, 'f', -1, 64) + "mm") }

// WriteHTML renders the job as a self-contained print page. Layout parameters are
// exposed as CSS custom properties and images are inlined as data URIs.
func WriteHTML(ctx context.Context, w io.Writer, job Job, opt HTMLOptions) error {
	p, pages, err := job.pages()
	if err != nil {
		return err
	}
	cells := p.Cells(len(job.Entries))
	data := htmlPage{
		Title:   fmt.Sprintf("%s sheets", job.Mode),
		Vars:    template.CSS(job.Settings.Params(job.Mode).CSS()),
		SheetW:  mm(p.Sheet.Width),
		SheetH:  mm(p.Sheet.Height),
		Badge:   job.Mode == layout.ModeBadge,
		Guides:  opt.Guides,
		Class:   make(map[string]string),
		Count:   len(job.Entries),
		PerPage: p.PerPage,
	}
	for _, g := range layout.ControlGroups() {
		if !layout.PrintVisible(g) {
			data.Class[string(g)] = "no-print"
		}
	}
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		slots := make([]htmlSlot, 0, len(page))
		for slot, idx := range page {
			e := job.Entries[idx]
			c := cells[slot]
			slots = append(slots, htmlSlot{
				Name:  e.Name,
				Src:   template.URL("data:" + e.MIME + ";base64," + base64.StdEncoding.EncodeToString(e.Data)),
				Style: template.CSS(fmt.Sprintf("left: %s; top: %s; width: %s; height: %s", mm(c.X), mm(c.Y), mm(c.W), mm(c.H))),
			})
		}
		data.Pages = append(data.Pages, slots)
	}
	return pageTmpl.Execute(w, data)
}

// ExportHTML writes the print page to outPath.
func ExportHTML(ctx context.Context, job Job, outPath string, opt HTMLOptions) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create html: %w", err)
	}
	if err := WriteHTML(ctx, f, job, opt); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return fmt.Errorf("render html: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close html: %w", err)
	}
	applog.WithComponent("export").Info("print page written", "path", outPath, "mode", job.Mode)
	return nil
}
