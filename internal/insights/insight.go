// Package insights implements the insight record domain: machine-suggested
// facts about catalog products awaiting (or holding) an annotation decision.
package insights

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Type tags the kind of fact an insight proposes.
type Type string

const (
	TypeIngredientSpellcheck    Type = "ingredient_spellcheck"
	TypePackagerCode            Type = "packager_code"
	TypeLabel                   Type = "label"
	TypeCategory                Type = "category"
	TypeImageFlag               Type = "image_flag"
	TypeProductWeight           Type = "product_weight"
	TypeExpirationDate          Type = "expiration_date"
	TypeBrand                   Type = "brand"
	TypeStore                   Type = "store"
	TypePackaging               Type = "packaging"
	TypeNutritionImage          Type = "nutrition_image"
	TypeNutritionTableStructure Type = "nutrition_table_structure"
)

// Types lists every known insight type.
var Types = []Type{
	TypeIngredientSpellcheck,
	TypePackagerCode,
	TypeLabel,
	TypeCategory,
	TypeImageFlag,
	TypeProductWeight,
	TypeExpirationDate,
	TypeBrand,
	TypeStore,
	TypePackaging,
	TypeNutritionImage,
	TypeNutritionTableStructure,
}

// Valid reports whether t is one of Types.
func (t Type) Valid() bool {
	return slices.Contains(Types, t)
}

// manualTypes never reach the catalog without a person: image flags have
// no annotator and table structures carry annotator-drawn data.
var manualTypes = []Type{TypeImageFlag, TypeNutritionTableStructure}

// Automatable reports whether an insight of type t can be accepted with no
// annotation data.
func (t Type) Automatable() bool {
	return t.Valid() && !slices.Contains(manualTypes, t)
}

// Accepted is the annotation code recording acceptance of an insight.
// Any other code records a rejection or an alternate answer.
const Accepted = 1

// Insight is a candidate fact about the product identified by Barcode.
//
// Annotation stays nil until a decision is recorded, and CompletedAt is set
// together with it. A Latent insight cannot be annotated until an external
// process clears the flag. ProcessAfter is set by the scheduler once the
// insight no longer needs human validation.
type Insight struct {
	ID                  uuid.UUID      `json:"id"`
	Barcode             string         `json:"barcode"`
	Type                Type           `json:"type"`
	ServerDomain        string         `json:"server_domain"`
	Value               *string        `json:"value"`
	ValueTag            *string        `json:"value_tag"`
	Data                map[string]any `json:"data"`
	SourceImage         *string        `json:"source_image"`
	Latent              bool           `json:"latent"`
	Annotation          *int           `json:"annotation"`
	Username            *string        `json:"username"`
	AutomaticProcessing bool           `json:"automatic_processing"`
	CompletedAt         *time.Time     `json:"completed_at"`
	ProcessAfter        *time.Time     `json:"process_after"`
	Timestamp           time.Time      `json:"timestamp"`
}

// Decided reports whether an annotation has been recorded.
func (i *Insight) Decided() bool {
	return i.Annotation != nil
}

// ValueString returns Value, or "" when unset.
func (i *Insight) ValueString() string {
	if i.Value == nil {
		return ""
	}
	return *i.Value
}

// ValueTagString returns ValueTag, or "" when unset.
func (i *Insight) ValueTagString() string {
	if i.ValueTag == nil {
		return ""
	}
	return *i.ValueTag
}

// SourceImageString returns SourceImage, or "" when unset.
func (i *Insight) SourceImageString() string {
	if i.SourceImage == nil {
		return ""
	}
	return *i.SourceImage
}

// DataString returns the string stored under key in Data.
func (i *Insight) DataString(key string) (string, bool) {
	v, ok := i.Data[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a copy that shares no mutable state with i.
func (i *Insight) Clone() *Insight {
	c := *i
	if i.Data != nil {
		c.Data = cloneMap(i.Data)
	}
	if i.Annotation != nil {
		a := *i.Annotation
		c.Annotation = &a
	}
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		c.CompletedAt = &t
	}
	if i.ProcessAfter != nil {
		t := *i.ProcessAfter
		c.ProcessAfter = &t
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
