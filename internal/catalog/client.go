package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Client reads product projections and applies edits to the catalog.
// Product returns a nil Product, not an error, when the barcode is unknown.
type Client interface {
	Product(ctx context.Context, barcode string, fields ...string) (Product, error)

	UpdateEmbCodes(ctx context.Context, edit Edit, codes []string) error
	AddLabel(ctx context.Context, edit Edit, tag string) error
	AddCategory(ctx context.Context, edit Edit, tag string) error
	UpdateQuantity(ctx context.Context, edit Edit, quantity string) error
	UpdateExpirationDate(ctx context.Context, edit Edit, date string) error
	AddBrand(ctx context.Context, edit Edit, brand string) error
	AddStore(ctx context.Context, edit Edit, store string) error
	AddPackaging(ctx context.Context, edit Edit, packaging string) error
	SaveIngredients(ctx context.Context, edit Edit, lang, text string) error
	SelectRotateImage(ctx context.Context, edit Edit, imageID, imageKey string, rotate *int) error
}

// Edit identifies the product and insight an edit comes from.
// A nil Auth makes the client use its own configured account.
type Edit struct {
	Barcode      string
	InsightID    uuid.UUID
	ServerDomain string
	Auth         *Auth
}

// Auth is the credential of the person an edit is made on behalf of.
type Auth struct {
	User          string
	Password      string
	SessionCookie string
}

// Username returns the explicit user, else the user id carried by the
// session cookie ("user_id&<name>&user_session&..."), else nil.
func (a *Auth) Username() *string {
	if a == nil {
		return nil
	}
	if a.User != "" {
		u := a.User
		return &u
	}
	if a.SessionCookie == "" {
		return nil
	}

	parts := strings.Split(a.SessionCookie, "&")
	for i := 0; i+1 < len(parts); i += 2 {
		if parts[i] == "user_id" && parts[i+1] != "" {
			u := parts[i+1]
			return &u
		}
	}
	return nil
}
