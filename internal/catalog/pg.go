package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
)

// PGStore loads and saves the catalog in Postgres. Skill vectors live in a
// pgvector column so precomputed embeddings survive restarts.
type PGStore struct {
	DB *sql.DB
}

func (s *PGStore) Name() string { return "postgres" }

// Load reads all catalog tables concurrently and assembles a snapshot.
func (s *PGStore) Load(ctx context.Context) (*Snapshot, error) {
	var (
		version   string
		embedded  string
		skills    []Skill
		aliases   map[string][]string
		roles     []Role
		roleLinks []roleSkillRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		version, embedded, err = s.loadMeta(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		skills, err = s.loadSkills(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		aliases, err = s.loadAliases(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		roles, err = s.loadRoles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		roleLinks, err = s.loadRoleSkills(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range skills {
		skills[i].Aliases = aliases[skills[i].ID]
	}
	roleIdx := make(map[string]int, len(roles))
	for i, r := range roles {
		roleIdx[r.ID] = i
	}
	for _, link := range roleLinks {
		i, ok := roleIdx[link.RoleID]
		if !ok {
			continue
		}
		r := &roles[i]
		if link.Kind == "required" {
			r.Required = append(r.Required, link.SkillID)
		} else {
			r.NiceToHave = append(r.NiceToHave, link.SkillID)
		}
		if link.Weight.Valid {
			if r.Weights == nil {
				r.Weights = make(map[string]float64)
			}
			r.Weights[link.SkillID] = link.Weight.Float64
		}
	}

	snap, err := NewSnapshot(Document{Version: version, Skills: skills, Roles: roles})
	if err != nil {
		return nil, err
	}
	snap.EmbeddedBy = embedded
	return snap, nil
}

type roleSkillRow struct {
	RoleID  string
	SkillID string
	Kind    string
	Weight  sql.NullFloat64
}

func (s *PGStore) loadMeta(ctx context.Context) (string, string, error) {
	const query = `SELECT version, embedded_by FROM catalog_meta WHERE id = 1`
	var version, embedded sql.NullString
	err := s.DB.QueryRowContext(ctx, query).Scan(&version, &embedded)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("load catalog meta: %w", err)
	}
	return version.String, embedded.String, nil
}

func (s *PGStore) loadSkills(ctx context.Context) ([]Skill, error) {
	const query = `SELECT id, name, embedding FROM skills ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	defer rows.Close()
	var out []Skill
	for rows.Next() {
		var sk Skill
		var vec sql.Null[pgvector.Vector]
		if err := rows.Scan(&sk.ID, &sk.Name, &vec); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		if vec.Valid {
			sk.Embedding = vec.V.Slice()
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

func (s *PGStore) loadAliases(ctx context.Context) (map[string][]string, error) {
	const query = `SELECT skill_id, alias FROM skill_aliases ORDER BY skill_id, alias`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var skillID, alias string
		if err := rows.Scan(&skillID, &alias); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out[skillID] = append(out[skillID], alias)
	}
	return out, rows.Err()
}

func (s *PGStore) loadRoles(ctx context.Context) ([]Role, error) {
	const query = `SELECT id, title FROM roles ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Title); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) loadRoleSkills(ctx context.Context) ([]roleSkillRow, error) {
	const query = `SELECT role_id, skill_id, kind, weight FROM role_skills ORDER BY role_id, kind, position`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load role skills: %w", err)
	}
	defer rows.Close()
	var out []roleSkillRow
	for rows.Next() {
		var row roleSkillRow
		if err := rows.Scan(&row.RoleID, &row.SkillID, &row.Kind, &row.Weight); err != nil {
			return nil, fmt.Errorf("scan role skill: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Save replaces the stored catalog with snap in one transaction.
func (s *PGStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM role_skills`,
		`DELETE FROM roles`,
		`DELETE FROM skill_aliases`,
		`DELETE FROM skills`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear catalog: %w", err)
		}
	}

	for _, sk := range snap.Skills {
		var vec any
		if len(sk.Embedding) > 0 {
			vec = pgvector.NewVector(sk.Embedding)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO skills (id, name, embedding) VALUES ($1, $2, $3)`, sk.ID, sk.Name, vec); err != nil {
			return fmt.Errorf("insert skill %s: %w", sk.ID, err)
		}
		for _, alias := range sk.Aliases {
			if _, err := tx.ExecContext(ctx, `INSERT INTO skill_aliases (skill_id, alias) VALUES ($1, $2)`, sk.ID, alias); err != nil {
				return fmt.Errorf("insert alias %s: %w", alias, err)
			}
		}
	}

	for _, r := range snap.Roles {
		if _, err := tx.ExecContext(ctx, `INSERT INTO roles (id, title) VALUES ($1, $2)`, r.ID, r.Title); err != nil {
			return fmt.Errorf("insert role %s: %w", r.ID, err)
		}
		if err := insertRoleSkills(ctx, tx, r, "required", r.Required); err != nil {
			return err
		}
		if err := insertRoleSkills(ctx, tx, r, "nice", r.NiceToHave); err != nil {
			return err
		}
	}

	const upsertMeta = `
INSERT INTO catalog_meta (id, version, embedded_by, updated_at)
VALUES (1, $1, $2, now())
ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version, embedded_by = EXCLUDED.embedded_by, updated_at = now()`
	if _, err := tx.ExecContext(ctx, upsertMeta, snap.Version, snap.EmbeddedBy); err != nil {
		return fmt.Errorf("update catalog meta: %w", err)
	}
	return tx.Commit()
}

func insertRoleSkills(ctx context.Context, tx *sql.Tx, r Role, kind string, ids []string) error {
	const query = `INSERT INTO role_skills (role_id, skill_id, kind, position, weight) VALUES ($1, $2, $3, $4, $5)`
	for pos, id := range ids {
		var weight any
		if w, ok := r.Weights[id]; ok {
			weight = w
		}
		if _, err := tx.ExecContext(ctx, query, r.ID, id, kind, pos, weight); err != nil {
			return fmt.Errorf("insert role skill %s/%s: %w", r.ID, id, err)
		}
	}
	return nil
}
