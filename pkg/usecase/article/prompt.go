package article

import (
	"bytes"
	_ "embed"
	"os"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

//go:embed prompt/article.md
var articlePromptRaw string

//go:embed prompt/image.md
var imagePromptRaw string

// Prompts holds the templates used to talk to the provider. The article template
// receives .Topic and the image template receives .Title.
type Prompts struct {
	article *template.Template
	image   *template.Template

	// TextModel and ImageModel override the provider models when set
	TextModel  string
	ImageModel string
}

type promptFile struct {
	ArticlePrompt string `yaml:"article_prompt"`
	ImagePrompt   string `yaml:"image_prompt"`
	TextModel     string `yaml:"text_model"`
	ImageModel    string `yaml:"image_model"`
}

var defaultPrompts = &Prompts{
	article: template.Must(template.New("article").Parse(articlePromptRaw)),
	image:   template.Must(template.New("image").Parse(imagePromptRaw)),
}

// DefaultPrompts returns the built-in prompts
func DefaultPrompts() *Prompts {
	return defaultPrompts
}

// LoadPrompts reads prompt overrides from a YAML file. Keys left empty keep the
// built-in values.
func LoadPrompts(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read prompt file", goerr.V("path", path))
	}

	return ParsePrompts(data)
}

// ParsePrompts parses YAML prompt overrides
func ParsePrompts(data []byte) (*Prompts, error) {
	var f promptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, goerr.Wrap(err, "failed to parse prompt file")
	}

	p := &Prompts{
		article:    defaultPrompts.article,
		image:      defaultPrompts.image,
		TextModel:  f.TextModel,
		ImageModel: f.ImageModel,
	}

	if f.ArticlePrompt != "" {
		tmpl, err := template.New("article").Option("missingkey=error").Parse(f.ArticlePrompt)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse article_prompt")
		}
		p.article = tmpl
	}

	if f.ImagePrompt != "" {
		tmpl, err := template.New("image").Option("missingkey=error").Parse(f.ImagePrompt)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse image_prompt")
		}
		p.image = tmpl
	}

	// Catch references to fields the templates never receive
	if _, err := p.articlePrompt("topic"); err != nil {
		return nil, err
	}
	if _, err := p.imagePrompt("title"); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Prompts) articlePrompt(topic string) (string, error) {
	var buf bytes.Buffer
	if err := p.article.Execute(&buf, struct{ Topic string }{Topic: topic}); err != nil {
		return "", goerr.Wrap(err, "failed to execute article prompt")
	}
	return buf.String(), nil
}

func (p *Prompts) imagePrompt(title string) (string, error) {
	var buf bytes.Buffer
	if err := p.image.Execute(&buf, struct{ Title string }{Title: title}); err != nil {
		return "", goerr.Wrap(err, "failed to execute image prompt")
	}
	return buf.String(), nil
}
