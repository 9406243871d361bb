//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"oshicropper/internal/config"
	"oshicropper/internal/crash"
	"oshicropper/internal/crop"
	"oshicropper/internal/export"
	"oshicropper/internal/imagelist"
	"oshicropper/internal/layout"
	applog "oshicropper/internal/log"
	"oshicropper/internal/paper"
	"oshicropper/internal/session"
	"oshicropper/internal/storage"
	"oshicropper/internal/version"
)

// Run opens (or creates) the session in dir and starts the desktop shell.
func Run(dir string) error {
	l := applog.WithComponent("ui")
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = wd
	}
	cfg, err := config.Load()
	if err != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	h, err := session.Open(dir)
	if err != nil {
		mode, perr := layout.ParseMode(cfg.General.Mode)
		if perr != nil {
			mode = layout.ModeBadge
		}
		l.Info("no session found, creating one", slog.String("root", dir), slog.Any("err", err))
		if h, err = session.Init(dir, mode); err != nil {
			return err
		}
		if n, perr := paper.Parse(cfg.General.Sheet); perr == nil {
			h.Manifest.Settings.Photo.Sheet = n
		}
	}
	crash.Track(h)
	defer crash.Recover()

	pc, err := storage.OpenCache(h.Root, cfg.Previews.MaxBytes)
	if err != nil {
		return err
	}
	defer func() { _ = pc.Close() }()
	pc.Watch(h.List)

	fyneApp := app.NewWithID("oshicropper")
	w := fyneApp.NewWindow("oshicropper " + version.Version)
	prefs := fyneApp.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 1200), 800)),
		float32(max(prefs.IntWithFallback("window.height", 800), 600)),
	))

	s := newShell(w, h, pc)
	s.cfg = cfg
	s.guides = prefs.BoolWithFallback("guides", true)
	w.SetContent(s.build())
	s.refresh()

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		prefs.SetBool("guides", s.guides)
		s.ed.Wait()
		s.h.Capture(s.ed)
		s.persist()
		w.Close()
	})
	l.Info("starting UI", slog.String("session", h.Root), slog.Int("images", h.List.Len()))
	w.ShowAndRun()
	return nil
}

type shell struct {
	win    fyne.Window
	h      *session.Handle
	ed     *crop.Coordinator
	cache  *storage.Cache
	log    *slog.Logger
	cfg    config.AppConfig
	page   int
	guides bool

	sheet     *SheetCanvas
	pageLabel *widget.Label
	status    *widget.Label
	settings  *fyne.Container
	modeRadio *widget.RadioGroup

	editor    *fyne.Container
	preview   *canvas.Image
	editLabel *widget.Label
	rectEntry *widget.Entry
	flipBtn   *widget.Button
	dlBtn     *widget.Button
	saveBtn   *widget.Button
}

func newShell(w fyne.Window, h *session.Handle, pc *storage.Cache) *shell {
	return &shell{win: w, h: h, ed: h.Editor(), cache: pc, log: applog.WithComponent("ui")}
}

func (s *shell) mode() layout.Mode { return s.h.Manifest.Mode }

func (s *shell) build() fyne.CanvasObject {
	s.sheet = NewSheetCanvas()
	s.sheet.OnTapped = s.openSlot
	s.pageLabel = widget.NewLabel("")
	s.status = widget.NewLabel("Ready")

	s.modeRadio = widget.NewRadioGroup([]string{string(layout.ModeBadge), string(layout.ModePhoto)}, func(v string) {
		m, err := layout.ParseMode(v)
		if err != nil || m == s.mode() {
			return
		}
		s.ed.Cancel()
		s.h.Manifest.Mode = m
		s.page = 0
		s.persist()
		s.refresh()
	})
	s.modeRadio.Horizontal = true
	s.modeRadio.SetSelected(string(s.mode()))

	guides := widget.NewCheck("Image-area guide", nil)
	guides.SetChecked(s.guides)
	guides.OnChanged = func(on bool) { s.guides = on; s.refresh() }

	s.settings = container.NewVBox()
	reset := widget.NewButton("Reset", func() {
		s.h.Manifest.Settings.Reset()
		s.persist()
		s.refresh()
	})

	prev := widget.NewButton("<", func() { s.page--; s.refresh() })
	next := widget.NewButton(">", func() { s.page++; s.refresh() })
	add := widget.NewButton("Add files", s.addFiles)
	undo := widget.NewButton("Undo", func() { s.history(s.h.List.Undo) })
	redo := widget.NewButton("Redo", func() { s.history(s.h.List.Redo) })
	exp := widget.NewButton("Export", s.exportSheets)

	s.preview = canvas.NewImageFromResource(nil)
	s.preview.FillMode = canvas.ImageFillContain
	s.preview.SetMinSize(fyne.NewSize(240, 240))
	s.editLabel = widget.NewLabel("")
	s.rectEntry = widget.NewEntry()
	s.rectEntry.SetPlaceHolder("x,y,w,h")
	s.rectEntry.OnSubmitted = func(string) { s.applyRect() }
	auto := widget.NewButton("Centre", s.autoRect)
	s.flipBtn = widget.NewButton("Flip", s.flip)
	s.saveBtn = widget.NewButton("Save", s.save)
	cancel := widget.NewButton("Cancel", func() { s.ed.Cancel(); s.refresh() })
	del := widget.NewButton("Delete", s.delete)
	s.dlBtn = widget.NewButton("Download", s.download)
	s.editor = container.NewVBox(
		widget.NewLabelWithStyle("Crop", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		s.editLabel, s.preview, s.rectEntry,
		container.NewHBox(auto, s.flipBtn),
		container.NewHBox(s.saveBtn, cancel, del, s.dlBtn),
	)

	left := container.NewVBox(
		widget.NewLabelWithStyle("Layout", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		s.modeRadio, s.settings, container.NewHBox(reset, guides),
		widget.NewSeparator(),
		container.NewHBox(add, undo, redo, exp),
		widget.NewSeparator(),
		s.editor,
	)
	bottom := container.NewHBox(prev, s.pageLabel, next, widget.NewSeparator(), s.status)
	return container.NewBorder(nil, bottom, container.NewVScroll(left), nil, s.sheet)
}

// refresh redraws everything from the session state.
func (s *shell) refresh() {
	m := s.mode()
	entries := s.h.List.Entries()
	plan := s.h.Manifest.Settings.Plan(m, len(entries))
	s.page = max(0, min(s.page, plan.Pages-1))
	s.pageLabel.SetText(fmt.Sprintf("Sheet %d / %d", min(s.page+1, plan.Pages), plan.Pages))

	pages := layout.Paginate(entries, plan.PerPage)
	var thumbs []fyne.Resource
	if s.page < len(pages) {
		ctx, cancel := context.WithCancel(context.Background())
		for _, e := range pages[s.page] {
			b, err := s.cache.Thumbnail(ctx, e, s.cfg.Previews.Edge)
			if err != nil {
				s.log.Warn("thumbnail failed", slog.String("name", e.Name), slog.Any("err", err))
				b = nil
			}
			thumbs = append(thumbs, fyne.NewStaticResource(e.Digest()+".png", b))
		}
		cancel()
	}
	selected := -1
	st := s.ed.Status()
	if st.State == crop.Editing {
		if pg, sl, ok := layout.Locate(st.Index, plan.PerPage); ok && pg == s.page {
			selected = sl
		}
	}
	s.sheet.SetSheet(plan, s.h.Manifest.Settings.Badge, thumbs, selected, s.guides)
	if plan.PerPage == 0 && len(entries) > 0 {
		s.status.SetText("Nothing fits on a sheet with these settings")
	}
	s.rebuildSettings()
	s.refreshEditor(st)
}

func (s *shell) rebuildSettings() {
	m := s.mode()
	s.settings.RemoveAll()
	form := widget.NewForm()
	params := s.h.Manifest.Settings.Params(m)
	for _, f := range layout.Fields(m) {
		field := f
		e := widget.NewEntry()
		switch field {
		case "paper":
			e.SetText(s.h.Manifest.Settings.Photo.Paper.Label())
		case "sheet":
			e.SetText(s.h.Manifest.Settings.Photo.Sheet.Label())
		default:
			if v, ok := params.Lookup(field); ok {
				e.SetText(strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		e.OnSubmitted = func(v string) {
			if err := s.h.Manifest.Settings.Set(m, field, v); err != nil {
				dialog.ShowError(err, s.win)
				return
			}
			s.persist()
			s.refresh()
		}
		form.Append(field, e)
	}
	s.settings.Add(form)
}

func (s *shell) refreshEditor(st crop.Status) {
	if st.State != crop.Editing {
		s.editor.Hide()
		return
	}
	s.editor.Show()
	e, _ := s.h.List.At(st.Index)
	s.editLabel.SetText(fmt.Sprintf("#%d %s (aspect %.3f)", st.Index, e.Name, st.Aspect))
	s.preview.Resource = fyne.NewStaticResource(e.Digest()+e.Ext(), e.Data)
	s.preview.Refresh()
	if st.Rect != nil {
		s.rectEntry.SetText(st.Rect.String())
	} else {
		s.rectEntry.SetText("")
	}
	photo := st.Mode == layout.ModePhoto
	setEnabled(s.flipBtn, photo)
	setEnabled(s.dlBtn, photo)
	setEnabled(s.saveBtn, !st.Busy)
}

func setEnabled(b *widget.Button, on bool) {
	if on {
		b.Enable()
	} else {
		b.Disable()
	}
}

func (s *shell) openSlot(slot int) {
	plan := s.h.Manifest.Settings.Plan(s.mode(), s.h.List.Len())
	idx := layout.GlobalIndex(s.page, slot, plan.PerPage)
	if err := s.ed.Open(idx, s.mode(), s.h.Manifest.Settings.Aspect(s.mode())); err != nil {
		if errors.Is(err, crop.ErrAlreadyEditing) {
			s.status.SetText("Save or cancel the open crop first")
		} else {
			dialog.ShowError(err, s.win)
		}
		return
	}
	s.refresh()
}

func (s *shell) applyRect() {
	r, err := crop.ParseRect(s.rectEntry.Text)
	if err == nil {
		err = s.ed.SetRect(r)
	}
	if err != nil {
		dialog.ShowError(err, s.win)
		return
	}
	s.refresh()
}

func (s *shell) autoRect() {
	st := s.ed.Status()
	e, ok := s.h.List.At(st.Index)
	if st.State != crop.Editing || !ok {
		return
	}
	img, err := crop.Decode(e)
	if err != nil {
		dialog.ShowError(err, s.win)
		return
	}
	b := img.Bounds()
	_ = s.ed.SetRect(crop.Centered(b.Dx(), b.Dy(), st.Aspect))
	s.refresh()
}

func (s *shell) flip() {
	if _, err := s.ed.Flip(); err != nil {
		dialog.ShowError(err, s.win)
	}
	s.refresh()
}

func (s *shell) save() {
	if s.rectEntry.Text != "" {
		if r, err := crop.ParseRect(s.rectEntry.Text); err == nil {
			_ = s.ed.SetRect(r)
		}
	}
	s.status.SetText("Cropping...")
	setEnabled(s.saveBtn, false)
	go func() {
		res, err := s.ed.Save(context.Background())
		fyne.Do(func() {
			switch {
			case errors.Is(err, crop.ErrDiscarded):
				s.status.SetText("Crop discarded: the image changed")
			case err != nil:
				s.status.SetText("Crop failed")
				dialog.ShowError(err, s.win)
			case res.Changed:
				s.status.SetText(fmt.Sprintf("Cropped #%d", res.Index))
				s.persist()
			default:
				s.status.SetText("Closed without changes")
			}
			s.refresh()
		})
	}()
}

func (s *shell) delete() {
	res, err := s.ed.Delete()
	if err != nil {
		dialog.ShowError(err, s.win)
		return
	}
	if res.Changed {
		s.status.SetText(fmt.Sprintf("Deleted %s", res.Entry.Name))
		s.persist()
	}
	s.refresh()
}

func (s *shell) download() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		path, err := s.ed.Download(context.Background(), dir.Path())
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		s.status.SetText("Wrote " + path)
	}, s.win)
}

func (s *shell) addFiles() {
	dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		e, err := imagelist.FromBytes(rc.URI().Name(), data)
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		s.h.List.Append(e)
		s.persist()
		s.refresh()
	}, s.win)
}

func (s *shell) history(step func() (bool, error)) {
	ok, err := step()
	if err != nil {
		dialog.ShowError(err, s.win)
		return
	}
	if ok {
		s.persist()
	}
	s.refresh()
}

func (s *shell) exportSheets() {
	s.status.SetText("Exporting...")
	go func() {
		files, err := export.Batch(context.Background(), s.h, export.BatchOptions{
			Preset: export.PresetPrint,
			Modes:  []layout.Mode{s.mode()},
			DPI:    s.cfg.General.DPI,
		})
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, s.win)
				s.status.SetText("Export failed")
				return
			}
			s.status.SetText(fmt.Sprintf("Exported %d file(s) to %s", len(files), s.h.Root))
		})
	}()
}

// persist autosaves the session; failures are shown but do not stop editing.
func (s *shell) persist() {
	s.h.Capture(s.ed)
	if err := session.Save(s.h); err != nil {
		s.log.Error("autosave failed", slog.Any("err", err))
		s.status.SetText("Autosave failed: " + err.Error())
	}
}
