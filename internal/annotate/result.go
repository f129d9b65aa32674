// Package annotate records annotation decisions on insights and applies
// accepted insights to the product catalog.
//
// Each insight type has an Annotator that knows how to check and push its
// fact. The Engine wraps every annotator with the shared protocol: latent
// insights are refused, the decision is persisted in a transaction, and
// only accepted insights reach the catalog.
package annotate

// Status is the machine-readable outcome of an annotation attempt.
type Status string

const (
	StatusSaved            Status = "saved"
	StatusUpdated          Status = "updated"
	StatusMissingProduct   Status = "error_missing_product"
	StatusUpdatedProduct   Status = "error_updated_product"
	StatusAlreadyAnnotated Status = "error_already_annotated"
	StatusUnknownInsight   Status = "error_unknown_insight"
	StatusLatentInsight    Status = "error_latent_insight"
	StatusMissingData      Status = "error_missing_data"
	StatusInvalidImage     Status = "error_invalid_image"
)

// Result is the outcome of an annotation attempt. It is returned, never persisted.
type Result struct {
	Status      Status `json:"status"`
	Description string `json:"description"`
}

var (
	Saved            = Result{StatusSaved, "the annotation was saved"}
	Updated          = Result{StatusUpdated, "the annotation was saved and sent to the catalog"}
	MissingProduct   = Result{StatusMissingProduct, "the product could not be found in the catalog"}
	UpdatedProduct   = Result{StatusUpdatedProduct, "the product was updated since the insight was generated"}
	AlreadyAnnotated = Result{StatusAlreadyAnnotated, "the insight has already been annotated"}
	UnknownInsight   = Result{StatusUnknownInsight, "unknown insight"}
	LatentInsight    = Result{StatusLatentInsight, "cannot annotate a latent insight"}
	DataRequired     = Result{StatusMissingData, "annotation data is required as JSON in `data` field"}
	InvalidImage     = Result{StatusInvalidImage, "the image is invalid"}
)

// Applied reports whether the catalog was changed.
func (r Result) Applied() bool {
	return r.Status == StatusUpdated
}

// Recorded reports whether the decision fields were persisted. Only a
// refused latent insight, missing data, or an unknown insight leave the
// record untouched.
func (r Result) Recorded() bool {
	switch r.Status {
	case StatusLatentInsight, StatusMissingData, StatusUnknownInsight:
		return false
	}
	return true
}
