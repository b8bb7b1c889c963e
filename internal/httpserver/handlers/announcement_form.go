package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/noticeboard/internal/domain"
	"github.com/MrSnakeDoc/noticeboard/internal/httpserver/deps"
)

// announcementForm is the body of create and update requests, sent either
// as JSON or as multipart/form-data with an optional "image" file part.
type announcementForm struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Priority *int    `json:"priority"  validate:"omitempty,min=0,max=5"`
	Duration *int    `json:"duration"  validate:"omitempty,min=1"`
	Active   *bool   `json:"active"`
	IsActive *bool   `json:"isActive"` // older clients
	Category *string `json:"category"`
	StartAt  *string `json:"startAt"`
	EndAt    *string `json:"endAt"`
	// Image may only be set to "" to clear the current image. New images
	// arrive as a multipart file.
	Image       *string `json:"image"`
	RemoveImage bool    `json:"removeImage"`
	UserEmail   string  `json:"userEmail" validate:"omitempty,email"`

	upload string // reference of a newly saved image
}

// timeLayouts are accepted for startAt and endAt. The short forms are what
// HTML datetime-local inputs submit; they are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTime(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.InvalidInput(field + " must be an RFC 3339 timestamp")
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// readAnnouncementForm decodes the request body. A multipart image part is
// saved through the upload store; the caller must discard it when the
// mutation fails.
func readAnnouncementForm(w http.ResponseWriter, r *http.Request, d deps.Deps) (*announcementForm, error) {
	var f announcementForm
	if !isMultipart(r) {
		if err := decodeJSON(w, r, d.Validate, &f, false); err != nil {
			return nil, err
		}
		if f.Image != nil && *f.Image != "" {
			return nil, domain.InvalidInput("image must be uploaded as a multipart file")
		}
		return &f, nil
	}

	maxBytes := int64(maxJSONBody)
	if d.Uploads != nil {
		maxBytes += d.Uploads.MaxBytes()
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, domain.InvalidInput("request body too large")
		}
		return nil, domain.InvalidInput("invalid multipart body: " + err.Error())
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	if err := f.fromValues(r); err != nil {
		return nil, err
	}
	if err := validate(d.Validate, &f); err != nil {
		return nil, err
	}

	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return nil, domain.InvalidInput("invalid image part: " + err.Error())
	default:
		defer file.Close()
		if d.Uploads == nil {
			return nil, domain.InvalidInput("image uploads are disabled")
		}
		ref, err := d.Uploads.Save(file)
		if err != nil {
			return nil, err
		}
		f.upload = ref
	}
	return &f, nil
}

// fromValues fills the form from multipart values. Empty priority,
// duration and time fields count as absent.
func (f *announcementForm) fromValues(r *http.Request) error {
	form := r.MultipartForm.Value
	get := func(key string) (string, bool) {
		v, ok := form[key]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}

	if v, ok := get("title"); ok {
		f.Title = &v
	}
	if v, ok := get("content"); ok {
		f.Content = &v
	}
	if v, ok := get("category"); ok {
		f.Category = &v
	}
	if v, ok := get("startAt"); ok {
		f.StartAt = &v
	}
	if v, ok := get("endAt"); ok {
		f.EndAt = &v
	}
	f.UserEmail, _ = get("userEmail")

	for key, dst := range map[string]**int{"priority": &f.Priority, "duration": &f.Duration} {
		v, ok := get(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return domain.InvalidInput(key + " must be an integer")
		}
		*dst = &n
	}

	for key, dst := range map[string]**bool{"active": &f.Active, "isActive": &f.IsActive} {
		v, ok := get(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return domain.InvalidInput(key + " must be true or false")
		}
		*dst = &b
	}

	if v, ok := get("removeImage"); ok {
		f.RemoveImage, _ = strconv.ParseBool(strings.TrimSpace(v))
	}
	return nil
}

func (f *announcementForm) active() *bool {
	if f.Active != nil {
		return f.Active
	}
	return f.IsActive
}

func (f *announcementForm) times() (start, end *time.Time, err error) {
	if f.StartAt != nil {
		if start, err = parseTime("startAt", *f.StartAt); err != nil {
			return nil, nil, err
		}
	}
	if f.EndAt != nil {
		if end, err = parseTime("endAt", *f.EndAt); err != nil {
			return nil, nil, err
		}
	}
	return start, end, nil
}

func (f *announcementForm) draft() (domain.Draft, error) {
	start, end, err := f.times()
	if err != nil {
		return domain.Draft{}, err
	}
	d := domain.Draft{
		Image:    f.upload,
		Priority: f.Priority,
		Duration: f.Duration,
		Active:   f.active(),
		StartAt:  start,
		EndAt:    end,
	}
	if f.Title != nil {
		d.Title = *f.Title
	}
	if f.Content != nil {
		d.Content = *f.Content
	}
	if f.Category != nil {
		d.Category = *f.Category
	}
	return d, nil
}

func (f *announcementForm) patch() (domain.Patch, error) {
	start, end, err := f.times()
	if err != nil {
		return domain.Patch{}, err
	}
	p := domain.Patch{
		Title:    f.Title,
		Content:  f.Content,
		Category: f.Category,
		Priority: f.Priority,
		Duration: f.Duration,
		Active:   f.active(),
		StartAt:  start,
		EndAt:    end,
	}
	switch {
	case f.upload != "":
		p.Image = &f.upload
	case f.RemoveImage || (f.Image != nil && *f.Image == ""):
		empty := ""
		p.Image = &empty
	}
	return p, nil
}
