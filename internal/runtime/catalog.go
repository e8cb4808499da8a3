package runtime

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ImageModel pins the backend model and output size used for generation.
type ImageModel struct {
	Model string `yaml:"model" json:"model"`
	Size  string `yaml:"size" json:"size"`
}

// Catalog holds the option lists offered as quick replies and the image models
// picked by the generation side-effect.
type Catalog struct {
	Greeting    string   `yaml:"greeting" json:"greeting"`
	Accounts    []string `yaml:"accounts" json:"accounts"`
	PostTypes   []string `yaml:"post_types" json:"post_types"`
	Backgrounds []string `yaml:"backgrounds" json:"backgrounds"`

	Images struct {
		WithReference    ImageModel `yaml:"with_reference" json:"with_reference"`
		WithoutReference ImageModel `yaml:"without_reference" json:"without_reference"`
	} `yaml:"images" json:"images"`
}

// DefaultCatalog returns the built-in option lists.
func DefaultCatalog() Catalog {
	c := Catalog{
		Greeting: "Hi! I'm the Utopium assistant.",
		Accounts: []string{
			"animeutopia",
			"wrestleutopia",
			"driftutopia",
			"xputopia",
			"critterutopia",
			"cyberutopia",
		},
		PostTypes:   []string{"news", "meme", "fact", "quote"},
		Backgrounds: []string{"image", "video"},
	}
	c.Images.WithReference = ImageModel{Model: "gpt-image-1", Size: "1024x1536"}
	c.Images.WithoutReference = ImageModel{Model: "dall-e-3", Size: "1024x1792"}
	return c
}

// LoadCatalog reads a YAML catalog. Missing keys keep their default values.
func LoadCatalog(path string) (Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("failed to read catalog: %w", err)
	}

	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return c, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	c.merge(override)
	return c, nil
}

func (c *Catalog) merge(o Catalog) {
	if o.Greeting != "" {
		c.Greeting = o.Greeting
	}
	if len(o.Accounts) > 0 {
		c.Accounts = o.Accounts
	}
	if len(o.PostTypes) > 0 {
		c.PostTypes = o.PostTypes
	}
	if len(o.Backgrounds) > 0 {
		c.Backgrounds = o.Backgrounds
	}
	if o.Images.WithReference.Model != "" {
		c.Images.WithReference = o.Images.WithReference
	}
	if o.Images.WithoutReference.Model != "" {
		c.Images.WithoutReference = o.Images.WithoutReference
	}
}

// ModelFor picks the generation model. Only the presence of a reference matters.
func (c Catalog) ModelFor(hasReference bool) ImageModel {
	if hasReference {
		return c.Images.WithReference
	}
	return c.Images.WithoutReference
}
