package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advocai/internal/agents"
	"advocai/internal/judge"
	"advocai/internal/llm"
	"advocai/internal/pubmed"
	"advocai/internal/session"
	"advocai/internal/storage"
)

type fixedSearcher struct{ articles []pubmed.Article }

func (f *fixedSearcher) Search(context.Context, string) []pubmed.Article { return f.articles }

const auditorReply = `{"denial_code": "CO-50", "insurer_reason_snippet": "not medically necessary", ` +
	`"policy_clause_text": "Section 4.2 excludes unproven treatments entirely.", ` +
	`"procedure_denied": "proton beam therapy", "confidence_score": 0.9}`

const clinicianReply = `{"root": [{"article_title": "Proton therapy outcomes", ` +
	`"summary_of_finding": "Improved survival was observed in the treated cohort.", "pubmed_id": "12345678"}]}`

const regulatoryReply = `{"compliant": false, "violation": "IRDAI Regulation 27", ` +
	`"argument": "Settlement window ignored.", "action": "reverse denial", ` +
	`"legal_points": [{"statute": "IRDAI Regulation 27", "summary": "Claims must be settled within 30 days.", "relevance_score": 0.9}]}`

const barristerReply = "Dear Appeals Department,\n\nWe formally request that this denial be overturned."

func newTestPipeline(t *testing.T, responses []string) (*Pipeline, *session.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	manager := session.NewManager(nil, session.NewFileStore(dir), nil)

	mock := &llm.MockClient{Responses: responses}
	search := &fixedSearcher{articles: []pubmed.Article{{PubmedID: "12345678", ArticleTitle: "Proton therapy outcomes"}}}

	p := NewPipeline(
		agents.NewAuditor(mock, nil),
		agents.NewClinician(mock, search, nil),
		agents.NewRegulatory(mock, filepath.Join(dir, "absent-statutes.md"), nil),
		agents.NewBarrister(mock, nil),
		judge.New(judge.DefaultConfig(), nil),
		manager, dir, nil, nil)
	return p, manager, dir
}

type fakeArtifactStore struct {
	objects map[string][]byte
}

func (f *fakeArtifactStore) PutObject(_ context.Context, key string, body []byte, _ string) (string, error) {
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = body
	return "s3://advocai/" + key, nil
}

func (f *fakeArtifactStore) PutJSON(_ context.Context, key string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return f.PutObject(context.Background(), key, b, "application/json")
}

func writeDenialDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "denial.txt")
	require.NoError(t, os.WriteFile(path,
		[]byte("Your claim for proton beam therapy has been denied as not medically necessary under code CO-50."), 0o644))
	return path
}

func TestPipelineRunsAllStages(t *testing.T) {
	p, manager, dir := newTestPipeline(t, []string{auditorReply, clinicianReply, regulatoryReply, barristerReply})

	ctx := context.Background()
	sessionID, err := manager.StartSession(ctx, nil)
	require.NoError(t, err)

	card, err := p.Run(ctx, sessionID, writeDenialDoc(t), "")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.NotEmpty(t, card.Status)

	sessionDir := filepath.Join(dir, sessionID)
	assert.FileExists(t, filepath.Join(sessionDir, judge.AuditorOutputFile))
	assert.FileExists(t, filepath.Join(sessionDir, judge.ClinicianOutputFile))
	assert.FileExists(t, filepath.Join(sessionDir, judge.RegulatoryOutputFile))
	assert.FileExists(t, filepath.Join(sessionDir, judge.BarristerOutputFile))
	assert.FileExists(t, filepath.Join(sessionDir, judge.ScorecardFile))
	assert.FileExists(t, filepath.Join(sessionDir, judge.ReportFile))

	for _, stage := range session.StageOrder {
		assert.True(t, manager.ShouldSkipStage(ctx, sessionID, stage), stage)
	}
}

func TestPipelineMirrorsArtifacts(t *testing.T) {
	p, manager, dir := newTestPipeline(t, []string{auditorReply, clinicianReply, regulatoryReply, barristerReply})
	store := &fakeArtifactStore{}
	p.Store = store

	ctx := context.Background()
	sessionID, err := manager.StartSession(ctx, nil)
	require.NoError(t, err)

	_, err = p.Run(ctx, sessionID, writeDenialDoc(t), "")
	require.NoError(t, err)

	assert.Contains(t, store.objects, storage.ArtifactKey(sessionID, judge.ScorecardFile))
	assert.Contains(t, store.objects, storage.ArtifactKey(sessionID, judge.BarristerOutputFile))
	assert.Contains(t, store.objects, storage.ArtifactKey(sessionID, judge.ReportFile))

	b, err := os.ReadFile(filepath.Join(dir, sessionID, ArtifactRefsFile))
	require.NoError(t, err)
	var refs map[string]string
	require.NoError(t, json.Unmarshal(b, &refs))
	assert.Equal(t, "s3://advocai/"+storage.ArtifactKey(sessionID, judge.ScorecardFile), refs[judge.ScorecardFile])
	assert.Len(t, refs, 3)
}

func TestPipelineResumesAfterFailure(t *testing.T) {
	// Barrister reply missing: the fourth completion returns empty content,
	// which the barrister rejects.
	p, manager, _ := newTestPipeline(t, []string{auditorReply, clinicianReply, regulatoryReply})

	ctx := context.Background()
	sessionID, err := manager.StartSession(ctx, nil)
	require.NoError(t, err)
	denialPath := writeDenialDoc(t)

	_, err = p.Run(ctx, sessionID, denialPath, "")
	require.Error(t, err)

	st, err := manager.State(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, st.IsResumable)
	assert.Equal(t, session.StageRegulatory, st.LastSafeStage)

	next, err := manager.ResumeStage(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StageBarrister, next)

	// Second run resumes from the barrister with a fresh mock that only needs
	// to answer the remaining stage.
	p2, _, _ := newTestPipeline(t, nil)
	p2.Sessions = manager
	p2.SessionsDir = p.SessionsDir
	p2.Barrister = agents.NewBarrister(&llm.MockClient{Responses: []string{barristerReply}}, nil)

	card, err := p2.Run(ctx, sessionID, denialPath, "")
	require.NoError(t, err)
	assert.NotNil(t, card)
}

func TestPipelineMissingDenialDocument(t *testing.T) {
	p, manager, _ := newTestPipeline(t, nil)

	ctx := context.Background()
	sessionID, err := manager.StartSession(ctx, nil)
	require.NoError(t, err)

	_, err = p.Run(ctx, sessionID, filepath.Join(t.TempDir(), "missing.txt"), "")
	require.Error(t, err)

	st, err := manager.State(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, st.IsResumable)
	assert.Equal(t, "", st.LastSafeStage)
}

func TestNewRunTaskRoundTrip(t *testing.T) {
	task, err := NewRunTask(RunPayload{SessionID: "abc", DenialPath: "/tmp/d.pdf"})
	require.NoError(t, err)
	assert.Equal(t, TypeRunPipeline, task.Type())
	assert.Contains(t, string(task.Payload()), `"session_id":"abc"`)
}

func TestPipelineModelOutageSurfaces(t *testing.T) {
	p, manager, _ := newTestPipeline(t, nil)
	p.Auditor = agents.NewAuditor(&llm.MockClient{Err: errors.New("model down")}, nil)

	ctx := context.Background()
	sessionID, err := manager.StartSession(ctx, nil)
	require.NoError(t, err)

	_, err = p.Run(ctx, sessionID, writeDenialDoc(t), "")
	assert.Error(t, err)
}
