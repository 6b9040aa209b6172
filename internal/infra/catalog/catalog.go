package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data
var DataFS embed.FS

type Language struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

type Voice struct {
	Name  string `yaml:"name" json:"name"`
	Style string `yaml:"style" json:"style"`
}

// Catalog holds the static lists request validation and /ai/voices rely on.
type Catalog struct {
	languages []Language
	langs     map[string]struct{}
	models    map[string][]string
	providers map[string]string // model -> provider
	voices    []Voice
	voiceSet  map[string]struct{}
}

// Load reads languages.yaml, models.yaml and voices.yaml from data/ in fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	var (
		langs  []Language
		models map[string][]string
		voices []Voice
	)
	for name, dst := range map[string]any{"languages.yaml": &langs, "models.yaml": &models, "voices.yaml": &voices} {
		p := path.Join("data", name)
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file %s: %w", p, err)
		}
		if err := yaml.Unmarshal(b, dst); err != nil {
			return nil, fmt.Errorf("failed to parse catalog file %s: %w", p, err)
		}
	}
	return newCatalog(langs, models, voices)
}

// Default loads the catalogs compiled into the binary.
func Default() (*Catalog, error) { return Load(DataFS) }

func newCatalog(langs []Language, models map[string][]string, voices []Voice) (*Catalog, error) {
	if len(langs) == 0 || len(models) == 0 || len(voices) == 0 {
		return nil, fmt.Errorf("catalog: empty languages, models or voices")
	}
	c := &Catalog{
		languages: langs,
		langs:     make(map[string]struct{}, len(langs)),
		models:    models,
		providers: map[string]string{},
		voices:    voices,
		voiceSet:  make(map[string]struct{}, len(voices)),
	}
	for _, l := range langs {
		c.langs[l.Code] = struct{}{}
	}
	for provider, list := range models {
		for _, m := range list {
			c.providers[m] = provider
		}
	}
	for _, v := range voices {
		c.voiceSet[v.Name] = struct{}{}
	}
	return c, nil
}

func (c *Catalog) Languages() []Language { return c.languages }

func (c *Catalog) IsLanguage(code string) bool {
	_, ok := c.langs[code]
	return ok
}

// Providers returns provider keys in stable order.
func (c *Catalog) Providers() []string {
	out := make([]string, 0, len(c.models))
	for p := range c.models {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) IsProvider(p string) bool {
	_, ok := c.models[p]
	return ok
}

// IsModel reports whether model is listed under provider.
func (c *Catalog) IsModel(provider, model string) bool {
	return c.providers[model] == provider && provider != ""
}

// ProviderOf reports which provider serves model.
func (c *Catalog) ProviderOf(model string) (string, bool) {
	p, ok := c.providers[model]
	return p, ok
}

// ModelProviders returns a copy of the model -> provider index.
func (c *Catalog) ModelProviders() map[string]string {
	out := make(map[string]string, len(c.providers))
	for m, p := range c.providers {
		out[m] = p
	}
	return out
}

func (c *Catalog) Voices() []Voice { return c.voices }

func (c *Catalog) IsVoice(name string) bool {
	_, ok := c.voiceSet[name]
	return ok
}
