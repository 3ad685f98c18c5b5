package view

import (
	"io"
	"io/fs"
	"sync"

	"github.com/willemschots/accounts/internal/email"
)

// FSRenderer renders views from a file system. Each view is parsed
// once, on first use or when preloaded.
type FSRenderer struct {
	fs fs.FS

	mu    sync.Mutex
	views map[string]*View
}

func NewFSRenderer(fsys fs.FS) *FSRenderer {
	return &FSRenderer{
		fs:    fsys,
		views: make(map[string]*View),
	}
}

// Preload parses the named views, so that broken or missing templates
// are found at startup instead of when the first email is sent.
func (r *FSRenderer) Preload(names ...string) error {
	for _, name := range names {
		if _, err := r.view(name); err != nil {
			return err
		}
	}
	return nil
}

func (r *FSRenderer) Render(w io.Writer, name string, element email.TemplateElement, data any) error {
	v, err := r.view(name)
	if err != nil {
		return err
	}

	return v.Render(w, element, data)
}

func (r *FSRenderer) view(name string) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.views[name]; ok {
		return v, nil
	}

	v, err := Parse(r.fs, name)
	if err != nil {
		return nil, err
	}

	r.views[name] = v
	return v, nil
}
