// Package catalog holds the controlled skill vocabulary and role templates
// that resumes are analysed against, and the stores they are loaded from.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrDuplicateSkill = errors.New("duplicate skill id")
	ErrDuplicateRole  = errors.New("duplicate role id")
)

// Skill is one entry of the controlled vocabulary.
type Skill struct {
	ID        string    `json:"id" yaml:"id" validate:"required,max=128"`
	Name      string    `json:"name" yaml:"name" validate:"required,max=256"`
	Aliases   []string  `json:"aliases,omitempty" yaml:"aliases,omitempty" validate:"dive,required"`
	Embedding []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
}

// Role is a role template: ordered required and nice-to-have skill IDs with
// optional weights (absent means uniform).
type Role struct {
	ID         string             `json:"id" yaml:"id" validate:"required,max=128"`
	Title      string             `json:"title" yaml:"title" validate:"required"`
	Required   []string           `json:"required" yaml:"required" validate:"min=1,dive,required"`
	NiceToHave []string           `json:"nice_to_have,omitempty" yaml:"nice_to_have,omitempty" validate:"dive,required"`
	Weights    map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty" validate:"dive,keys,required,endkeys,gt=0"`
}

// Weighted reports whether the template carries explicit weights.
func (r Role) Weighted() bool { return len(r.Weights) > 0 }

// Weight returns the weight of a skill in the template (1 when unweighted).
func (r Role) Weight(skillID string) float64 {
	if w, ok := r.Weights[skillID]; ok && w > 0 {
		return w
	}
	return 1
}

// Document is the serialised form of a catalog.
type Document struct {
	Version string  `json:"version,omitempty" yaml:"version,omitempty"`
	Skills  []Skill `json:"skills" yaml:"skills" validate:"dive"`
	Roles   []Role  `json:"roles" yaml:"roles" validate:"dive"`
}

// RoleSummary is the listing shape of a role.
type RoleSummary struct {
	RoleID string `json:"role_id"`
	Title  string `json:"title"`
}

// Snapshot is an immutable, validated catalog version. Share it freely
// between goroutines; never mutate it after NewSnapshot.
type Snapshot struct {
	Version    string
	EmbeddedBy string
	LoadedAt   time.Time
	Skills     []Skill
	Roles      []Role
	Warnings   []string

	skillIdx map[string]int
	roleIdx  map[string]int
	terms    []Term
	byFolded map[string][]int
}

// NewSnapshot validates doc and builds its indexes. Role references to
// unknown skills are dropped with a warning, roles left without required
// skills are dropped, and nice-to-have entries that are also required are
// removed from the nice-to-have list.
func NewSnapshot(doc Document) (*Snapshot, error) {
	s := &Snapshot{
		Version:  strings.TrimSpace(doc.Version),
		LoadedAt: time.Now().UTC(),
		skillIdx: make(map[string]int, len(doc.Skills)),
		roleIdx:  make(map[string]int, len(doc.Roles)),
	}

	skills := make([]Skill, 0, len(doc.Skills))
	seen := make(map[string]struct{}, len(doc.Skills))
	for _, sk := range doc.Skills {
		sk.ID = strings.TrimSpace(sk.ID)
		sk.Name = strings.TrimSpace(sk.Name)
		if sk.ID == "" {
			return nil, errors.New("skill with empty id")
		}
		if sk.Name == "" {
			sk.Name = sk.ID
		}
		if _, dup := seen[sk.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSkill, sk.ID)
		}
		seen[sk.ID] = struct{}{}
		sk.Aliases = dedupe(sk.Aliases, nil)
		skills = append(skills, sk)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].ID < skills[j].ID })
	for i, sk := range skills {
		s.skillIdx[sk.ID] = i
	}
	s.Skills = skills

	roles := make([]Role, 0, len(doc.Roles))
	for _, r := range doc.Roles {
		r.ID = strings.TrimSpace(r.ID)
		r.Title = strings.TrimSpace(r.Title)
		if r.ID == "" {
			return nil, errors.New("role with empty id")
		}
		if _, dup := s.roleIdx[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRole, r.ID)
		}
		s.roleIdx[r.ID] = -1
		if r.Title == "" {
			r.Title = r.ID
		}
		r.Required = s.knownSkills(r.ID, dedupe(r.Required, nil))
		r.NiceToHave = s.knownSkills(r.ID, dedupe(r.NiceToHave, r.Required))
		if len(r.Required) == 0 {
			s.Warnings = append(s.Warnings, fmt.Sprintf("role %s dropped: no known required skills", r.ID))
			continue
		}
		r.Weights = s.cleanWeights(r)
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	s.roleIdx = make(map[string]int, len(roles))
	for i, r := range roles {
		s.roleIdx[r.ID] = i
	}
	s.Roles = roles

	s.buildTerms()
	if s.Version == "" {
		s.Version = contentVersion(s.Skills, s.Roles)
	}
	return s, nil
}

// Empty reports whether the snapshot has no skills or no roles.
func (s *Snapshot) Empty() bool { return s == nil || len(s.Skills) == 0 || len(s.Roles) == 0 }

// Skill looks up a skill by ID.
func (s *Snapshot) Skill(id string) (Skill, bool) {
	if s == nil {
		return Skill{}, false
	}
	i, ok := s.skillIdx[id]
	if !ok {
		return Skill{}, false
	}
	return s.Skills[i], true
}

// Role looks up a role by ID.
func (s *Snapshot) Role(id string) (Role, bool) {
	if s == nil {
		return Role{}, false
	}
	i, ok := s.roleIdx[strings.TrimSpace(id)]
	if !ok {
		return Role{}, false
	}
	return s.Roles[i], true
}

// RoleSummaries lists roles ordered by title, then ID.
func (s *Snapshot) RoleSummaries() []RoleSummary {
	if s == nil {
		return []RoleSummary{}
	}
	out := make([]RoleSummary, 0, len(s.Roles))
	for _, r := range s.Roles {
		out = append(out, RoleSummary{RoleID: r.ID, Title: r.Title})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].RoleID < out[j].RoleID
	})
	return out
}

// Document returns the serialisable form of the snapshot.
func (s *Snapshot) Document() Document {
	return Document{Version: s.Version, Skills: s.Skills, Roles: s.Roles}
}

func (s *Snapshot) knownSkills(roleID string, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.skillIdx[id]; !ok {
			s.Warnings = append(s.Warnings, fmt.Sprintf("role %s: unknown skill %s dropped", roleID, id))
			continue
		}
		out = append(out, id)
	}
	return out
}

func (s *Snapshot) cleanWeights(r Role) map[string]float64 {
	if len(r.Weights) == 0 {
		return nil
	}
	member := make(map[string]struct{}, len(r.Required)+len(r.NiceToHave))
	for _, id := range r.Required {
		member[id] = struct{}{}
	}
	for _, id := range r.NiceToHave {
		member[id] = struct{}{}
	}
	out := make(map[string]float64, len(r.Weights))
	for id, w := range r.Weights {
		if _, ok := member[id]; !ok || w <= 0 {
			s.Warnings = append(s.Warnings, fmt.Sprintf("role %s: weight for %s ignored", r.ID, id))
			continue
		}
		out[id] = w
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dedupe(ids []string, exclude []string) []string {
	skip := make(map[string]struct{}, len(ids)+len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := skip[id]; ok {
			continue
		}
		skip[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// contentVersion derives a stable version from the catalog content.
func contentVersion(skills []Skill, roles []Role) string {
	type skillKey struct {
		ID      string   `json:"id"`
		Name    string   `json:"name"`
		Aliases []string `json:"aliases"`
	}
	keys := make([]skillKey, 0, len(skills))
	for _, sk := range skills {
		keys = append(keys, skillKey{ID: sk.ID, Name: sk.Name, Aliases: sk.Aliases})
	}
	data, _ := json.Marshal(struct {
		Skills []skillKey `json:"skills"`
		Roles  []Role     `json:"roles"`
	}{keys, roles})
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])[:12]
}
