package web

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/funnelmkt/internal/cms"
	"github.com/hpungsan/funnelmkt/internal/errors"
	"github.com/hpungsan/funnelmkt/internal/middleware"
)

// uploadOverhead leaves room for multipart framing around an image.
const uploadOverhead = 1 << 20

// StepLink is one entry of the wizard step indicator.
type StepLink struct {
	Number int
	Name   string
	Active bool
	Done   bool
}

// CMSPageData is the template data for the wizard page and its fragment.
type CMSPageData struct {
	PageData
	cms.State
	Steps      []StepLink
	Fonts      []string
	Errors     map[string]string
	PreviewURL string
	MinFont    int
	MaxFont    int
}

func (h *Handlers) cmsPage() CMSPageData {
	state := h.wizard.State()
	steps := make([]StepLink, 0, cms.StepReview)
	for n := cms.StepHeader; n <= cms.StepReview; n++ {
		steps = append(steps, StepLink{
			Number: n,
			Name:   cms.StepNames[n],
			Active: n == state.Step,
			Done:   n < state.Step,
		})
	}
	return CMSPageData{
		PageData: h.renderer.page("CMS", "cms"),
		State:    state,
		Steps:    steps,
		Fonts:    cms.FontFamilies,
		MinFont:  cms.MinFontSize,
		MaxFont:  cms.MaxFontSize,
	}
}

// renderWizard answers a wizard action: the wizard fragment for htmx, a
// redirect back to /cms otherwise.
func (h *Handlers) renderWizard(w http.ResponseWriter, r *http.Request, status int, data CMSPageData) {
	if isHTMX(r) {
		h.renderer.renderBlock(w, status, "cms", "wizard", data)
		return
	}
	if status == http.StatusOK {
		target := "/cms"
		if data.PreviewURL != "" {
			target += "?preview=" + strings.TrimPrefix(data.PreviewURL, cms.PreviewURLPrefix)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	h.renderer.renderPageStatus(w, r, status, "cms", data)
}

// wizardFailed renders err inside the wizard: field messages for invalid
// settings, an alert for everything else the user can act on.
func (h *Handlers) wizardFailed(w http.ResponseWriter, r *http.Request, err error) {
	var fErr *errors.FunnelError
	if !stderrors.As(err, &fErr) || fErr.Status >= 500 || wantsJSON(r) {
		h.renderer.renderError(w, r, err)
		return
	}
	data := h.cmsPage()
	if fErr.Code == errors.ErrValidationFailed {
		data.Errors = errors.FieldErrors(err)
	} else {
		data.Alert = fErr.Message
	}
	h.renderWizard(w, r, fErr.Status, data)
}

// HandleCMS handles GET /cms. ?preview=<id> links the most recent preview.
func (h *Handlers) HandleCMS(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, h.wizard.State())
		return
	}
	data := h.cmsPage()
	if id := r.URL.Query().Get("preview"); id != "" && h.previews != nil {
		if _, ok := h.previews.Get(id); ok {
			data.PreviewURL = cms.PreviewURLPrefix + id
		}
	}
	h.renderer.renderPage(w, r, "cms", data)
}

// HandleNext handles POST /cms/next. On the review step it generates the
// preview instead of advancing; htmx clients open it in a new tab.
func (h *Handlers) HandleNext(w http.ResponseWriter, r *http.Request) {
	preview, err := h.wizard.Next(r.Context())
	if err != nil {
		if errors.Is(err, errors.ErrPreviewBlocked) {
			middleware.RecordPreview("blocked")
		}
		h.wizardFailed(w, r, err)
		return
	}

	data := h.cmsPage()
	if preview != nil {
		middleware.RecordPreview("opened")
		data.PreviewURL = preview.Location
		if isHTMX(r) {
			trigger, _ := json.Marshal(map[string]any{"openPreview": map[string]string{"url": preview.Location}})
			w.Header().Set("HX-Trigger", string(trigger))
		}
	}
	h.renderWizard(w, r, http.StatusOK, data)
}

// HandlePrevious handles POST /cms/previous.
func (h *Handlers) HandlePrevious(w http.ResponseWriter, r *http.Request) {
	h.wizard.Previous()
	h.renderWizard(w, r, http.StatusOK, h.cmsPage())
}

// HandleReset handles POST /cms/reset: discard the session and its images.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.wizard.Reset()
	h.renderWizard(w, r, http.StatusOK, h.cmsPage())
}

// HandleSettings handles POST /cms/settings.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	fontSize := 0
	if v := strings.TrimSpace(r.PostFormValue("font_size")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = -1
		}
		fontSize = n
	}

	// Fields missing from the form keep their current value, so each step
	// can post only its own inputs.
	current := h.wizard.Document().Settings
	settings := cms.Settings{
		Title:           formValueOr(r, "title", current.Title),
		Subtitle:        formValueOr(r, "subtitle", current.Subtitle),
		BodyText:        formValueOr(r, "body_text", current.BodyText),
		FooterText:      formValueOr(r, "footer_text", current.FooterText),
		BackgroundColor: formValueOr(r, "background_color", current.BackgroundColor),
		TextColor:       formValueOr(r, "text_color", current.TextColor),
		FontFamily:      formValueOr(r, "font_family", current.FontFamily),
		FontSize:        current.FontSize,
	}
	if _, ok := r.PostForm["font_size"]; ok {
		settings.FontSize = fontSize
	}

	if err := h.wizard.UpdateSettings(settings); err != nil {
		h.wizardFailed(w, r, err)
		return
	}
	h.renderWizard(w, r, http.StatusOK, h.cmsPage())
}

func formValueOr(r *http.Request, name, fallback string) string {
	if _, ok := r.PostForm[name]; !ok {
		return fallback
	}
	return r.PostForm.Get(name)
}

// HandleAddTitle handles POST /cms/titles.
func (h *Handlers) HandleAddTitle(w http.ResponseWriter, r *http.Request) {
	if _, err := h.wizard.AddTitle(r.PostFormValue("text")); err != nil {
		h.wizardFailed(w, r, err)
		return
	}
	h.renderWizard(w, r, http.StatusOK, h.cmsPage())
}

// HandleRemoveTitle handles POST /cms/titles/{id}/delete.
func (h *Handlers) HandleRemoveTitle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.wizard.RemoveTitle(id) {
		h.renderer.renderError(w, r, errors.NewNotFound("title", id))
		return
	}
	h.renderWizard(w, r, http.StatusOK, h.cmsPage())
}

// HandleAddContent handles POST /cms/contents.
func (h *Handlers) HandleAddContent(w http.ResponseWriter, r *http.Request) {
	if _, err := h.wizard.AddContent(r.PostFormValue("text")); err != nil {
		h.wizardFailed(w, r, err)
		return
	}
	h.renderWizard(w, r, http.StatusOK, h.cmsPage())
}

// HandleRemoveContent handles POST /cms/contents/{id}/delete.
func (h *Handlers) HandleRemoveContent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.wizard.RemoveContent(id) {
		h.renderer.renderError(w, r, errors.NewNotFound("content block", id))
		return
	}
	h.renderWizard(w, r, http.StatusOK, h.cmsPage())
}

// HandleAddImage handles POST /cms/images (multipart field "image").
func (h *Handlers) HandleAddImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, cms.MaxImageBytes+uploadOverhead)
	file, header, err := r.FormFile("image")
	if err != nil {
		h.wizardFailed(w, r, errors.NewInvalidRequest("choose an image to upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.wizardFailed(w, r, errors.NewInvalidRequest("image upload was interrupted"))
		return
	}
	if _, err := h.wizard.AddImage(header.Filename, header.Header.Get("Content-Type"), data); err != nil {
		h.wizardFailed(w, r, err)
		return
	}
	h.renderWizard(w, r, http.StatusOK, h.cmsPage())
}

// HandleRemoveImage handles POST /cms/images/{id}/delete.
func (h *Handlers) HandleRemoveImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.wizard.RemoveImage(id) {
		h.renderer.renderError(w, r, errors.NewNotFound("image", id))
		return
	}
	h.renderWizard(w, r, http.StatusOK, h.cmsPage())
}

// HandleImage handles GET /cms/images/{id}. Revoked images are gone.
func (h *Handlers) HandleImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	img, data, ok := h.wizard.Images().Get(id)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound("image", id))
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

// HandlePreview handles GET /cms/preview/{id}.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.previews == nil {
		h.renderer.renderError(w, r, errors.NewNotFound("preview", id))
		return
	}
	p, ok := h.previews.Get(id)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound("preview", id))
		return
	}
	w.Header().Set("Content-Security-Policy", previewPolicy)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(p.HTML)
}
