package view

import (
	"fmt"
	"io"
	"io/fs"
	"text/template"

	"github.com/willemschots/accounts/internal/email"
)

// View holds the parsed templates for one kind of email.
type View struct {
	name     string
	elements map[email.TemplateElement]*template.Template
}

// Parse reads <name>.tmpl from the root of fsys. The file must define
// a template for every email element.
func Parse(fsys fs.FS, name string) (*View, error) {
	// Names become filenames, don't allow them to leave the root.
	if err := validateName(name); err != nil {
		return nil, err
	}

	tmpl, err := template.New(name).ParseFS(fsys, name+".tmpl")
	if err != nil {
		return nil, fmt.Errorf("view %s: %w", name, err)
	}

	v := &View{
		name:     name,
		elements: make(map[email.TemplateElement]*template.Template, 2),
	}

	for _, el := range []email.TemplateElement{email.ElementSubject, email.ElementBody} {
		t := tmpl.Lookup(string(el))
		if t == nil {
			return nil, fmt.Errorf("view %s: missing %s template", name, el)
		}
		v.elements[el] = t
	}

	return v, nil
}

// Render executes the template for element with data.
func (v *View) Render(w io.Writer, element email.TemplateElement, data any) error {
	t, ok := v.elements[element]
	if !ok {
		return fmt.Errorf("view %s: unknown element %s", v.name, element)
	}

	return t.Execute(w, data)
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty view name")
	}

	for _, c := range name {
		switch {
		case c == '-' || c == '_':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return fmt.Errorf("invalid character %q in view name %q", c, name)
		}
	}

	return nil
}
