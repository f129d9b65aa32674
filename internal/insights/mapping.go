package insights

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/curator/pkg/query"
	"github.com/JaimeStill/curator/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "insights", "i").
	Project("id", "ID").
	Project("barcode", "Barcode").
	Project("type", "Type").
	Project("server_domain", "ServerDomain").
	Project("value", "Value").
	Project("value_tag", "ValueTag").
	Project("data", "Data").
	Project("source_image", "SourceImage").
	Project("latent", "Latent").
	Project("annotation", "Annotation").
	Project("username", "Username").
	Project("automatic_processing", "AutomaticProcessing").
	Project("completed_at", "CompletedAt").
	Project("process_after", "ProcessAfter").
	Project("timestamp", "Timestamp")

var defaultSort = query.SortField{
	Field:      "Timestamp",
	Descending: false,
}

// Filters contains optional filtering criteria for insight queries.
// Nil fields are ignored. Pending selects insights with (true) or without
// (false) a recorded annotation.
type Filters struct {
	Type         *string `json:"type,omitempty"`
	Barcode      *string `json:"barcode,omitempty"`
	ServerDomain *string `json:"server_domain,omitempty"`
	Latent       *bool   `json:"latent,omitempty"`
	Pending      *bool   `json:"pending,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("Type", f.Type).
		WhereEquals("Barcode", f.Barcode).
		WhereEquals("ServerDomain", f.ServerDomain).
		WhereEquals("Latent", f.Latent)

	if f.Pending != nil {
		if *f.Pending {
			b.WhereNull("Annotation")
		} else {
			b.WhereNotNull("Annotation")
		}
	}
	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t := values.Get("type"); t != "" {
		f.Type = &t
	}

	if b := values.Get("barcode"); b != "" {
		f.Barcode = &b
	}

	if sd := values.Get("server_domain"); sd != "" {
		f.ServerDomain = &sd
	}

	if l := values.Get("latent"); l != "" {
		if v, err := strconv.ParseBool(l); err == nil {
			f.Latent = &v
		}
	}

	if p := values.Get("pending"); p != "" {
		if v, err := strconv.ParseBool(p); err == nil {
			f.Pending = &v
		}
	}

	return f
}

func scanInsight(s repository.Scanner) (Insight, error) {
	var (
		i    Insight
		data []byte
	)
	err := s.Scan(
		&i.ID,
		&i.Barcode,
		&i.Type,
		&i.ServerDomain,
		&i.Value,
		&i.ValueTag,
		&data,
		&i.SourceImage,
		&i.Latent,
		&i.Annotation,
		&i.Username,
		&i.AutomaticProcessing,
		&i.CompletedAt,
		&i.ProcessAfter,
		&i.Timestamp,
	)
	if err != nil {
		return i, err
	}

	i.Data, err = decodeData(data)
	return i, err
}

func decodeData(raw []byte) (map[string]any, error) {
	data := make(map[string]any)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode insight data: %w", err)
	}
	return data, nil
}

func encodeData(data map[string]any) (string, error) {
	if data == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode insight data: %w", err)
	}
	return string(raw), nil
}
