package meeting

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/confluence"
	"github.com/dshills/designsync/internal/llm"
)

type fakeDocs struct {
	page      *confluence.Page
	fetchErr  error
	appendErr error
	appended  []string
	titles    []string
}

func (f *fakeDocs) FetchPage(context.Context, string) (*confluence.Page, error) {
	return f.page, f.fetchErr
}

func (f *fakeDocs) Append(_ context.Context, _, additional, title string) (*confluence.UpdateResult, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appended = append(f.appended, additional)
	f.titles = append(f.titles, title)
	return &confluence.UpdateResult{Version: f.page.Version + 1}, nil
}

type fakeModel struct {
	content string
	err     error
	prompts []string
}

func (f *fakeModel) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.prompts = append(f.prompts, req.User)
	return llm.Response{Content: f.content}, f.err
}

type recordingNotifier struct {
	errs []error
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, _ Input, err error) {
	n.errs = append(n.errs, err)
}

const updateReply = `{"summary":"Chose SQS","designChanges":["Use SQS"],"actionItems":["Alice: capacity plan"],"shouldUpdate":true,"updatedContent":"Use **SQS**.","reasoning":"Queue changed"}`

var testInput = Input{
	DocumentURL: "https://acme.atlassian.net/wiki/spaces/ENG/pages/123/Queue",
	Summary:     "We picked SQS. token = \"hunter2hunter2\"",
}

func TestRun_AppendsUpdate(t *testing.T) {
	docs := &fakeDocs{page: &confluence.Page{Title: "Queue", Version: 3}}
	model := &fakeModel{content: updateReply}

	p := NewPipeline(docs, model, Options{RedactSecrets: true, SectionTitle: "Sync"})
	res, err := p.Run(context.Background(), testInput)
	require.NoError(t, err)

	require.True(t, res.Structured)
	require.True(t, res.Updated)
	require.Equal(t, 4, res.NewVersion)
	require.Equal(t, "Chose SQS", res.Summary)
	require.Equal(t, []string{"Alice: capacity plan"}, res.ActionItems)
	require.Equal(t, []string{"Use **SQS**."}, docs.appended)
	require.Equal(t, []string{"Sync"}, docs.titles)
	require.NotContains(t, model.prompts[0], "hunter2hunter2")
}

func TestRun_NoUpdateWhenModelSaysNo(t *testing.T) {
	docs := &fakeDocs{page: &confluence.Page{Version: 3}}
	model := &fakeModel{content: `{"summary":"Status only","shouldUpdate":false}`}

	res, err := NewPipeline(docs, model, Options{}).Run(context.Background(), testInput)
	require.NoError(t, err)
	require.False(t, res.Updated)
	require.Empty(t, docs.appended)
}

func TestRun_ShouldUpdateWithoutContent(t *testing.T) {
	docs := &fakeDocs{page: &confluence.Page{Version: 3}}
	model := &fakeModel{content: `{"summary":"x","shouldUpdate":true,"updatedContent":"  "}`}

	res, err := NewPipeline(docs, model, Options{}).Run(context.Background(), testInput)
	require.NoError(t, err)
	require.False(t, res.ShouldUpdate)
	require.Empty(t, docs.appended)
}

func TestRun_UnparseableReplyDoesNotFail(t *testing.T) {
	docs := &fakeDocs{page: &confluence.Page{Version: 3}}
	model := &fakeModel{content: "Sorry, here are notes.\n\nAction: follow up"}

	res, err := NewPipeline(docs, model, Options{}).Run(context.Background(), testInput)
	require.NoError(t, err)
	require.False(t, res.Structured)
	require.False(t, res.ShouldUpdate)
	require.NotEmpty(t, res.Summary)
	require.Equal(t, []string{"Action: follow up"}, res.ActionItems)
	require.Empty(t, docs.appended)
}

func TestRun_DryRunSkipsWrite(t *testing.T) {
	docs := &fakeDocs{page: &confluence.Page{Version: 3}}
	model := &fakeModel{content: updateReply}

	res, err := NewPipeline(docs, model, Options{DryRun: true}).Run(context.Background(), testInput)
	require.NoError(t, err)
	require.True(t, res.ShouldUpdate)
	require.False(t, res.Updated)
	require.Empty(t, docs.appended)
}

func TestRun_ConflictNotifies(t *testing.T) {
	docs := &fakeDocs{page: &confluence.Page{Version: 3}, appendErr: apperr.NewVersionConflict("123", 4)}
	model := &fakeModel{content: updateReply}
	n := &recordingNotifier{}

	res, err := NewPipeline(docs, model, Options{Notifier: n}).Run(context.Background(), testInput)
	require.Nil(t, res)
	require.True(t, apperr.Is(err, apperr.CodeVersionConflict))
	require.Len(t, n.errs, 1)
	require.Equal(t, err, n.errs[0])
}

func TestRun_InvalidInput(t *testing.T) {
	docs := &fakeDocs{}
	_, err := NewPipeline(docs, &fakeModel{}, Options{}).Run(context.Background(), Input{DocumentURL: "/wiki/pages/1"})
	require.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		wantErr string
	}{
		{"valid summary", Input{DocumentURL: "https://x/wiki/pages/1", Summary: "s"}, ""},
		{"valid transcript", Input{DocumentURL: "http://x/wiki/pages/1", Transcript: "t"}, ""},
		{"missing url", Input{Summary: "s"}, "is required"},
		{"relative url", Input{DocumentURL: "wiki/pages/1", Summary: "s"}, "absolute"},
		{"ftp url", Input{DocumentURL: "ftp://x/1", Summary: "s"}, "absolute"},
		{"no text", Input{DocumentURL: "https://x/1", Summary: "  "}, "meeting_summary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			e, ok := apperr.As(err)
			require.True(t, ok)
			errs, _ := e.Details["errors"].([]string)
			require.True(t, strings.Contains(strings.Join(errs, "; "), tt.wantErr), "errors = %v", errs)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	doc := &confluence.Page{Title: "Queue", Version: 2, Body: "<p>Use Kafka.</p>"}
	prompt := BuildPrompt(doc, "", "Alice: let's use SQS")
	require.Contains(t, prompt, "Use Kafka.")
	require.Contains(t, prompt, "BEGIN MEETING TRANSCRIPT")
	require.NotContains(t, prompt, "BEGIN MEETING SUMMARY")
}
