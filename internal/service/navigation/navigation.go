package navigation

import (
	"strconv"
	"strings"
	"sync"

	"github.com/jwalitptl/patient-records/internal/model"
)

// Routes of the patient views
const (
	RouteList  = "/patients"
	RouteAdd   = "/patient/add"
	RouteEdit  = "/patient/edit/:id"
	editPrefix = "/patient/edit/"
	routeRoot  = "/"
)

type Navigator interface {
	Navigate(route string)
}

func EditRoute(id model.PatientID) string {
	return editPrefix + id.String()
}

// Resolve maps a requested path onto a known route. The root goes to the list
// and anything unknown falls back to it as well.
func Resolve(path string) string {
	switch path {
	case RouteList, RouteAdd:
		return path
	case routeRoot, "":
		return RouteList
	}
	if id, ok := EditID(path); ok {
		return EditRoute(id)
	}
	return RouteList
}

// EditID extracts the raw id segment of an edit path.
func EditID(path string) (model.PatientID, bool) {
	raw, ok := strings.CutPrefix(path, editPrefix)
	if !ok || raw == "" || strings.Contains(raw, "/") {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return model.PatientID(n), true
}

// History records every navigation in order.
type History struct {
	mu     sync.Mutex
	routes []string
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Navigate(route string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, Resolve(route))
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.routes) == 0 {
		return RouteList
	}
	return h.routes[len(h.routes)-1]
}

func (h *History) Routes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.routes...)
}
