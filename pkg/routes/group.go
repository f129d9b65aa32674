// Package routes declares HTTP routes as nested groups and registers them
// on a ServeMux.
package routes

import (
	"net/http"
	"slices"

	"github.com/JaimeStill/curator/pkg/middleware"
)

// Route binds a method and a pattern, relative to its group, to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group organizes routes under a common prefix. Middleware wraps every
// route of the group and of its children, outside any child middleware.
type Group struct {
	Prefix     string
	Middleware middleware.Stack
	Routes     []Route
	Children   []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		register(mux, "", nil, group)
	}
}

func register(mux *http.ServeMux, parent string, stack middleware.Stack, group Group) {
	prefix := parent + group.Prefix
	stack = append(slices.Clip(stack), group.Middleware...)

	for _, route := range group.Routes {
		mux.Handle(route.Method+" "+prefix+route.Pattern, stack.Apply(route.Handler))
	}
	for _, child := range group.Children {
		register(mux, prefix, stack, child)
	}
}
