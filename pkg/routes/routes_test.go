package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/curator/pkg/middleware"
	"github.com/JaimeStill/curator/pkg/routes"
)

func named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(name))
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux,
		routes.Group{
			Prefix: "/insights",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: named("list")},
				{Method: "GET", Pattern: "/{id}", Handler: named("find")},
			},
		},
		routes.Group{
			Prefix: "/insights",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "/{id}/annotate", Handler: named("annotate")},
			},
		},
		routes.Group{
			Prefix: "/admin",
			Children: []routes.Group{
				{
					Prefix: "/jobs",
					Routes: []routes.Route{
						{Method: "POST", Pattern: "/{name}", Handler: named("job")},
					},
				},
			},
		},
	)

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{"GET", "/insights", "list"},
		{"GET", "/insights/abc", "find"},
		{"POST", "/insights/abc/annotate", "annotate"},
		{"POST", "/admin/jobs/mark_eligible", "job"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rec.Code)
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("handler: got %s, want %s", got, tt.want)
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/insights/abc", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("unregistered method: got %d, want 405", rec.Code)
	}
}

func tag(label string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(label + ">"))
			next.ServeHTTP(w, r)
		})
	}
}

func TestRegisterGroupMiddleware(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Prefix:     "/admin",
		Middleware: middleware.Stack{tag("admin")},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/dataset", Handler: named("dataset")},
		},
		Children: []routes.Group{
			{
				Prefix:     "/jobs",
				Middleware: middleware.Stack{tag("jobs")},
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: named("jobs")},
				},
			},
		},
	}, routes.Group{
		Prefix: "/insights",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: named("list")},
		},
	})

	tests := []struct {
		path string
		want string
	}{
		{"/admin/dataset", "admin>dataset"},
		{"/admin/jobs", "admin>jobs>jobs"},
		{"/insights", "list"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body: got %s, want %s", got, tt.want)
			}
		})
	}
}
