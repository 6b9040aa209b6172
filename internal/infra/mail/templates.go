package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed templates
var templatesFS embed.FS

// Templates holds HTML mail bodies keyed by their path under templates/ without extension,
// e.g. "auth/verification".
type Templates struct {
	byName map[string]*template.Template
}

func LoadTemplates() (*Templates, error) {
	return loadTemplates(templatesFS, "templates")
}

func loadTemplates(fsys fs.FS, root string) (*Templates, error) {
	t := &Templates{byName: map[string]*template.Template{}}
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, root+"/"), ".html")
		tpl, err := template.New(name).Parse(string(b))
		if err != nil {
			return fmt.Errorf("parse mail template %s: %w", p, err)
		}
		t.byName[name] = tpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) Render(name string, data any) (string, error) {
	tpl, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("invalid template: %s", name)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
