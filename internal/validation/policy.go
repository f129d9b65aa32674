package validation

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/curator/internal/insights"
	"github.com/JaimeStill/curator/pkg/formatting"
)

const defaultMaxImageAge = "30d"

// Policy is the file form of a validation registry.
//
//	automatic: [product_weight]
//	authorized_labels: ["en:organic", "en:fair-trade"]
//	image_grounded: [packager_code, expiration_date]
//	max_image_age: 30d
//
// Types listed under automatic never need validation. Label insights need
// none when their tag is in authorized_labels. Types under image_grounded
// need none when their source image passes the processability check.
type Policy struct {
	Automatic        []insights.Type `yaml:"automatic"`
	AuthorizedLabels []string        `yaml:"authorized_labels"`
	ImageGrounded    []insights.Type `yaml:"image_grounded"`
	MaxImageAge      string          `yaml:"max_image_age"`

	maxAge time.Duration
}

// LoadPolicy reads and validates a YAML policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes and validates a YAML policy.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.finalize(); err != nil {
		return nil, err
	}
	return &p, nil
}

// MaxAge returns the parsed max_image_age.
func (p *Policy) MaxAge() time.Duration {
	return p.maxAge
}

// Registry builds the predicates described by the policy. evaluator may be
// nil when no type is image grounded.
func (p *Policy) Registry(evaluator Evaluator) (*Registry, error) {
	if len(p.ImageGrounded) > 0 && evaluator == nil {
		return nil, errors.New("image grounded types require an evaluator")
	}

	r := NewRegistry()
	for _, t := range p.Automatic {
		r.Register(t, Never)
	}
	if len(p.AuthorizedLabels) > 0 {
		r.Register(insights.TypeLabel, NewAuthorizedLabels(p.AuthorizedLabels...))
	}
	for _, t := range p.ImageGrounded {
		r.Register(t, NewImageGrounded(evaluator, p.maxAge))
	}
	return r, nil
}

func (p *Policy) finalize() error {
	if p.MaxImageAge == "" {
		p.MaxImageAge = defaultMaxImageAge
	}
	d, err := formatting.ParseAge(p.MaxImageAge)
	if err != nil {
		return fmt.Errorf("max_image_age: %w", err)
	}
	p.maxAge = d

	seen := make(map[insights.Type]string)
	claim := func(t insights.Type, section string) error {
		if !t.Valid() {
			return fmt.Errorf("%s: unknown insight type %q", section, t)
		}
		if !t.Automatable() {
			return fmt.Errorf("%s: insight type %q cannot be applied automatically", section, t)
		}
		if prev, ok := seen[t]; ok {
			return fmt.Errorf("insight type %q listed in both %s and %s", t, prev, section)
		}
		seen[t] = section
		return nil
	}

	for _, t := range p.Automatic {
		if err := claim(t, "automatic"); err != nil {
			return err
		}
	}
	if len(p.AuthorizedLabels) > 0 {
		if err := claim(insights.TypeLabel, "authorized_labels"); err != nil {
			return err
		}
	}
	for _, t := range p.ImageGrounded {
		if err := claim(t, "image_grounded"); err != nil {
			return err
		}
	}

	if slices.Contains(p.AuthorizedLabels, "") {
		return errors.New("authorized_labels: empty tag")
	}
	return nil
}
