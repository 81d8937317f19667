package analyses

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/queue"
	"skillgap-backend/internal/shared/storage/object/local"
)

const sampleResume = "Skills: Python, SQL, Communication"

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	snap, err := catalog.NewSnapshot(catalog.Document{
		Version: "test-1",
		Skills: []catalog.Skill{
			{ID: "python", Name: "Python"},
			{ID: "sql", Name: "SQL"},
			{ID: "pandas", Name: "Pandas"},
			{ID: "git", Name: "Git"},
			{ID: "communication", Name: "Communication"},
			{ID: "javascript", Name: "JavaScript"},
			{ID: "react", Name: "React"},
		},
		Roles: []catalog.Role{
			{ID: "DA", Title: "Data Analyst", Required: []string{"python", "sql", "pandas"}, NiceToHave: []string{"git"}},
			{ID: "FE", Title: "Frontend Engineer", Required: []string{"javascript", "react"}},
		},
	})
	require.NoError(t, err)
	provider := engine.NewModelProvider(engine.ModelConfig{Embedder: "hashed", Dimensions: 64})
	reg := catalog.NewRegistry(catalog.StaticStore{Snapshot: snap}, provider.PrepareCatalog)
	_, err = reg.Refresh(context.Background())
	require.NoError(t, err)
	return engine.New(reg, provider, engine.DefaultPolicy())
}

func newTestService(t *testing.T, q queue.Client) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	return &Service{
		Repo:           repo,
		Engine:         newTestEngine(t),
		Store:          local.New(t.TempDir()),
		Queue:          q,
		MaxUploadBytes: 1 << 20,
	}, repo
}

type stubQueue struct {
	mu   sync.Mutex
	msgs []queue.Message
	err  error
}

func (s *stubQueue) Send(ctx context.Context, msg queue.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *stubQueue) sent() []queue.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]queue.Message(nil), s.msgs...)
}

type stubAnalyzer struct {
	err error
}

func (s stubAnalyzer) Analyze(ctx context.Context, req engine.Request) (*engine.Result, error) {
	return nil, s.err
}
