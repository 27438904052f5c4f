package answerbank

import (
	"context"
	"testing"

	"github.com/caredraft/internal/supabase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(Config{InMemory: true, MinScore: 0.1}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func seedItems() []supabase.AnswerItem {
	return []supabase.AnswerItem{
		{
			ID:          "cs-1",
			Title:       "Reablement after hospital discharge",
			Sector:      "domiciliary care",
			Content:     "We supported 40 service users returning home from hospital, reducing readmissions by a third.",
			IsCaseStudy: true,
		},
		{
			ID:          "cs-2",
			Title:       "Dementia-friendly residential activities",
			Sector:      "residential care",
			Content:     "A structured activities programme improved wellbeing scores across two dementia units.",
			IsCaseStudy: true,
		},
		{
			ID:          "ans-1",
			Title:       "Safeguarding policy summary",
			Sector:      "domiciliary care",
			Content:     "Our safeguarding approach follows local authority protocols.",
			IsCaseStudy: false,
		},
	}
}

func TestSyncIndexesOnlyCaseStudies(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Sync(context.Background(), seedItems()))

	hits, err := idx.Search(context.Background(), "safeguarding", "", 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "non-case-study rows must not be searchable")

	hits, err = idx.Search(context.Background(), "hospital discharge", "", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "cs-1", hits[0].ID)
}

func TestSearchReturnsStoredFields(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Sync(context.Background(), seedItems()))

	hits, err := idx.Search(context.Background(), "dementia activities", "residential care", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	top := hits[0]
	assert.Equal(t, "cs-2", top.ID)
	assert.Equal(t, "Dementia-friendly residential activities", top.Title)
	assert.Contains(t, top.Content, "wellbeing scores")
	assert.Greater(t, top.Score, 0.0)
}

func TestFindStudyHit(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Sync(context.Background(), seedItems()))

	study, err := idx.FindStudy(context.Background(), "supporting people leaving hospital", "domiciliary care")
	require.NoError(t, err)
	require.NotNil(t, study)
	assert.Equal(t, "Reablement after hospital discharge", study.Title)
	assert.Equal(t, "answer_bank", study.Origin)
	assert.Contains(t, study.Summary, "readmissions")
}

func TestFindStudyNoMatch(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.Sync(context.Background(), seedItems()))

	study, err := idx.FindStudy(context.Background(), "zzqx nonexistent", "")
	require.NoError(t, err)
	assert.Nil(t, study)
}

func TestSyncReplacesExisting(t *testing.T) {
	idx := newTestIndex(t)
	items := seedItems()
	require.NoError(t, idx.Sync(context.Background(), items))

	items[0].Content = "Updated narrative about reablement outcomes and independence."
	require.NoError(t, idx.Sync(context.Background(), items))

	hits, err := idx.Search(context.Background(), "reablement", "", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Content, "independence")
}
