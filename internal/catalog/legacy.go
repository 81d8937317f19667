package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// legacyRole is one entry of role_templates.json.
type legacyRole struct {
	Title      string   `json:"title"`
	Required   []string `json:"required_skills"`
	NiceToHave []string `json:"nice_to_have_skills"`
}

// LegacyStore reads the two-file layout: skills_catalog.json mapping each
// canonical skill to its aliases, and role_templates.json keyed by role ID.
type LegacyStore struct {
	CatalogPath string
	RolesPath   string
}

// NewLegacyDirStore reads skills_catalog.json and role_templates.json from dir.
func NewLegacyDirStore(dir string) *LegacyStore {
	return &LegacyStore{
		CatalogPath: filepath.Join(dir, "skills_catalog.json"),
		RolesPath:   filepath.Join(dir, "role_templates.json"),
	}
}

func (s *LegacyStore) Name() string { return "legacy:" + filepath.Dir(s.CatalogPath) }

func (s *LegacyStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	skillsRaw, err := os.ReadFile(s.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("read skills catalog: %w", err)
	}
	rolesRaw, err := os.ReadFile(s.RolesPath)
	if err != nil {
		return nil, fmt.Errorf("read role templates: %w", err)
	}
	doc, err := DecodeLegacy(skillsRaw, rolesRaw)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(doc)
}

// DecodeLegacy converts the two legacy JSON documents into a Document.
// Canonical skill names become IDs; display names are title-cased.
func DecodeLegacy(skillsRaw, rolesRaw []byte) (Document, error) {
	var aliases map[string][]string
	if err := json.Unmarshal(skillsRaw, &aliases); err != nil {
		return Document{}, fmt.Errorf("decode skills catalog: %w", err)
	}
	var roles map[string]legacyRole
	if err := json.Unmarshal(rolesRaw, &roles); err != nil {
		return Document{}, fmt.Errorf("decode role templates: %w", err)
	}

	title := cases.Title(language.English)
	canon := make([]string, 0, len(aliases))
	for k := range aliases {
		canon = append(canon, k)
	}
	sort.Strings(canon)

	var doc Document
	for _, c := range canon {
		id := strings.TrimSpace(c)
		if id == "" {
			continue
		}
		doc.Skills = append(doc.Skills, Skill{
			ID:      id,
			Name:    title.String(id),
			Aliases: aliases[c],
		})
	}

	roleIDs := make([]string, 0, len(roles))
	for k := range roles {
		roleIDs = append(roleIDs, k)
	}
	sort.Strings(roleIDs)
	for _, id := range roleIDs {
		r := roles[id]
		doc.Roles = append(doc.Roles, Role{
			ID:         id,
			Title:      r.Title,
			Required:   r.Required,
			NiceToHave: r.NiceToHave,
		})
	}
	return doc, nil
}
