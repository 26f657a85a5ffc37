// Package configuration shows the running service configuration to administrators.
package configuration

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler"
)

const (
	// Path is the path of the configuration route, relative to the API group.
	Path = "/admin/config"

	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 25
	// MaxPageSize caps the pageSize query parameter.
	MaxPageSize = 100

	redacted = "***"
)

// secretKeys are setting names whose values are never rendered.
var secretKeys = []string{"Secret", "Password", "BindPassword", "AdminPassword"} //nolint:gochecknoglobals

// Service is the server configuration handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Data is the answer of the configuration route.
type Data struct {
	Settings    []Setting `json:"settings"`
	CurrentPage int       `json:"currentPage"`
	PageSize    int       `json:"pageSize"`
	TotalItems  int       `json:"totalItems"`
	TotalPages  int       `json:"totalPages"`
	SearchQuery string    `json:"search,omitempty"`
	FilterType  string    `json:"type,omitempty"`
}

// Setting is one configuration value addressed by its dotted name, e.g. Token.AccessTTL.
type Setting struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Init registers the route.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil {
		return handler.ErrNilDeps
	}

	if err := deps.Check(); err != nil {
		return err
	}

	s.cfg = deps.Cfg

	router.Get(Path, auth.RequireAll(deps.Authz, auth.PermAdminSystem), s.Get)

	return nil
}

// Get returns a page of the flattened configuration, filtered by name or value and type.
func (s *Service) Get(c *fiber.Ctx) error {
	page, pageSize := getPaginationParams(c)
	searchQuery, filterType := getSearchAndFilter(c)

	all, err := Flatten(s.cfg)
	if err != nil {
		return apperror.Internal(err)
	}

	settings := make([]Setting, 0, len(all))

	for _, cs := range all {
		if includeSetting(cs, searchQuery, filterType) {
			settings = append(settings, cs)
		}
	}

	totalItems := len(settings)
	totalPages, page := computeTotalPagesAndAdjust(totalItems, pageSize, page)
	startIdx, endIdx := pageSliceBounds(totalItems, pageSize, page)

	log.Debug().
		Int("total_settings", totalItems).
		Int("page", page).
		Str("search", searchQuery).
		Msg("configuration retrieved")

	return c.JSON(fiber.Map{
		"success": true,
		"data": Data{
			Settings:    settings[startIdx:endIdx],
			CurrentPage: page,
			PageSize:    pageSize,
			TotalItems:  totalItems,
			TotalPages:  totalPages,
			SearchQuery: searchQuery,
			FilterType:  filterType,
		},
	})
}

// Flatten lists every leaf of cfg sorted by name. Secrets are redacted.
func Flatten(cfg *config.Config) ([]Setting, error) {
	raw, err := config.DumpConfigJSON(cfg)
	if err != nil {
		return nil, fmt.Errorf("dump config: %w", err)
	}

	var tree map[string]any
	if err = json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	var out []Setting

	walk("", tree, &out)

	slices.SortFunc(out, func(a, b Setting) int { return strings.Compare(a.Name, b.Name) })

	return out, nil
}

func walk(prefix string, node any, out *[]Setting) {
	if m, ok := node.(map[string]any); ok {
		for k, v := range m {
			name := k
			if prefix != "" {
				name = prefix + "." + k
			}

			walk(name, v, out)
		}

		return
	}

	cs := Setting{Name: prefix}

	switch v := node.(type) {
	case nil:
		cs.Type = "null"
	case string:
		cs.Type, cs.Value = "string", v
	case bool:
		cs.Type, cs.Value = "bool", strconv.FormatBool(v)
	case float64:
		cs.Type, cs.Value = "number", strconv.FormatFloat(v, 'f', -1, 64)
	default:
		b, _ := json.Marshal(v)
		cs.Type, cs.Value = "list", string(b)
	}

	if isSecret(prefix) && cs.Value != "" {
		cs.Value = redacted
	}

	*out = append(*out, cs)
}

func isSecret(name string) bool {
	return slices.Contains(secretKeys, name[strings.LastIndex(name, ".")+1:])
}

// getPaginationParams parses and normalizes page and pageSize query parameters.
func getPaginationParams(c *fiber.Ctx) (int, int) {
	page := max(c.QueryInt("page", 1), 1)

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	return page, pageSize
}

// getSearchAndFilter extracts search and type filter from the request.
func getSearchAndFilter(c *fiber.Ctx) (string, string) {
	return c.Query("search", ""), c.Query("type", "")
}

// includeSetting returns true if the setting matches search and filter criteria.
func includeSetting(cs Setting, searchQuery, filterType string) bool {
	if searchQuery != "" && !contains(cs.Name, searchQuery) && !contains(cs.Value, searchQuery) {
		return false
	}

	return filterType == "" || cs.Type == filterType
}

// computeTotalPagesAndAdjust computes total pages and adjusts the page into range.
func computeTotalPagesAndAdjust(totalItems, pageSize, page int) (int, int) {
	totalPages := max((totalItems+pageSize-1)/pageSize, 1)

	return totalPages, min(page, totalPages)
}

// pageSliceBounds calculates start and end indices for slicing a page.
func pageSliceBounds(totalItems, pageSize, page int) (int, int) {
	startIdx := max((page-1)*pageSize, 0)
	endIdx := min(startIdx+pageSize, totalItems)

	return min(startIdx, endIdx), endIdx
}

// contains checks if s contains substr, case-insensitive. An empty substr never matches.
func contains(s, substr string) bool {
	return substr != "" && strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
