package augment

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/entrhq/vgtabs/pkg/devops"
	"github.com/entrhq/vgtabs/pkg/logging"
	"github.com/entrhq/vgtabs/pkg/page"
	"github.com/entrhq/vgtabs/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libraryURL = "https://dev.azure.com/org1/proj1/_library?itemType=VariableGroups"

const dataProviders = `<script id="dataProviders" type="application/json">` +
	`{"data":{"ms.vss-web.page-data":{"hostName":"org1"},"ms.vss-tfs-web.page-data":{"project":{"name":"proj1"}}}}` +
	`</script>`

const libraryPage = `<html><head>` + dataProviders + `</head><body><div id="root">
<table><tbody class="relative"><tr class="bolt-list-row-spacer"><td></td></tr><tr><td>placeholder</td></tr></tbody></table>
</div></body></html>`

// fakeFetcher returns canned groups. When block is set, calls wait on it or
// on ctx before answering.
type fakeFetcher struct {
	mu     sync.Mutex
	groups []devops.VariableGroup
	err    error
	block  chan struct{}
	calls  int
}

func (f *fakeFetcher) VariableGroups(ctx context.Context, pc devops.PageContext) ([]devops.VariableGroup, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	groups := append([]devops.VariableGroup(nil), f.groups...)
	err := f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return groups, err
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// gatedFetcher signals started on its first call, then ignores ctx and
// answers only once release is closed, like a request already on the wire.
type gatedFetcher struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{started: make(chan struct{}), release: make(chan struct{})}
}

func (f *gatedFetcher) VariableGroups(_ context.Context, _ devops.PageContext) ([]devops.VariableGroup, error) {
	f.once.Do(func() { close(f.started) })
	<-f.release
	return testGroups(), nil
}

func (f *gatedFetcher) waitStarted(t *testing.T) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch never started")
	}
}

// syncBuffer guards a bytes.Buffer shared between the test and run goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testGroups() []devops.VariableGroup {
	return []devops.VariableGroup{
		{ID: 1, Name: "alpha", ModifiedOn: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{ID: 2, Name: "Beta", ModifiedOn: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)},
		{ID: 3, Name: "Gamma", ModifiedOn: time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)},
	}
}

func newLibraryDoc(t *testing.T, src, url string) *page.HTMLDocument {
	t.Helper()
	doc, err := page.ParseHTML(strings.NewReader(src), url)
	require.NoError(t, err)
	return doc
}

func newTestPipeline(doc page.Document, f Fetcher, logs *syncBuffer) *Pipeline {
	return NewPipeline(doc, f, render.New(render.WithLocation(time.UTC)),
		logging.NewWriterLogger("pipeline", logs),
		Options{Timeout: 200 * time.Millisecond})
}

func tableRows(t *testing.T, doc *page.HTMLDocument) *goquery.Selection {
	t.Helper()
	out, err := doc.HTML()
	require.NoError(t, err)
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	return parsed.Find("tbody.relative > tr")
}

func TestPipeline_Run(t *testing.T) {
	logs := &syncBuffer{}
	doc := newLibraryDoc(t, libraryPage, libraryURL)
	fetcher := &fakeFetcher{groups: testGroups()}
	p := newTestPipeline(doc, fetcher, logs)

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Groups)
	assert.Equal(t, devops.PageContext{OrgName: "org1", ProjectName: "proj1"}, res.Context)

	rows := tableRows(t, doc)
	require.Equal(t, 4, rows.Length())
	assert.True(t, rows.Eq(0).HasClass("bolt-list-row-spacer"))
	assert.Equal(t, "alpha", strings.TrimSpace(rows.Eq(1).Find("a").Text()))

	out := logs.String()
	assert.Contains(t, out, "Organization: org1, Project: proj1")
	assert.Contains(t, out, "Table found, loading data...")
	assert.Contains(t, out, "Found 3 variable groups.")
	assert.Contains(t, out, "Successfully loaded 3 variable groups.")
}

func TestPipeline_Idempotent(t *testing.T) {
	doc := newLibraryDoc(t, libraryPage, libraryURL)
	p := newTestPipeline(doc, &fakeFetcher{groups: testGroups()}, &syncBuffer{})

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	first, err := doc.HTML()
	require.NoError(t, err)

	_, err = p.RunOnce(context.Background())
	require.NoError(t, err)
	second, err := doc.HTML()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 4, tableRows(t, doc).Length())
}

func TestPipeline_WrongView(t *testing.T) {
	doc := newLibraryDoc(t, libraryPage, "https://dev.azure.com/org1/proj1/_library?itemType=SecureFiles")
	fetcher := &fakeFetcher{groups: testGroups()}
	p := newTestPipeline(doc, fetcher, &syncBuffer{})

	_, err := p.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrWrongView)
	assert.Equal(t, 0, fetcher.Calls())
}

func TestPipeline_FailuresLeaveTableUntouched(t *testing.T) {
	noProviders := strings.Replace(libraryPage, dataProviders, "", 1)
	badJSON := strings.Replace(libraryPage, `{"data"`, `{"data`, 1)
	noHost := strings.Replace(libraryPage, `"hostName":"org1"`, `"other":"x"`, 1)
	noTable := strings.Replace(libraryPage, `class="relative"`, `class="other"`, 1)

	tests := []struct {
		name    string
		src     string
		fetcher *fakeFetcher
		check   func(t *testing.T, err error)
	}{
		{
			name:    "missing data providers",
			src:     noProviders,
			fetcher: &fakeFetcher{},
			check: func(t *testing.T, err error) {
				var target *devops.ParseError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name:    "malformed page data",
			src:     badJSON,
			fetcher: &fakeFetcher{},
			check: func(t *testing.T, err error) {
				var target *devops.ParseError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name:    "missing host name",
			src:     noHost,
			fetcher: &fakeFetcher{},
			check: func(t *testing.T, err error) {
				var target *devops.MissingDataError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name:    "table never appears",
			src:     noTable,
			fetcher: &fakeFetcher{},
			check: func(t *testing.T, err error) {
				var target *page.TimeoutError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name:    "api failure",
			src:     libraryPage,
			fetcher: &fakeFetcher{err: &devops.HTTPError{StatusCode: 404, Status: "404 Not Found"}},
			check: func(t *testing.T, err error) {
				var target *devops.HTTPError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, 404, target.StatusCode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newLibraryDoc(t, tt.src, libraryURL)
			before, err := doc.HTML()
			require.NoError(t, err)

			p := NewPipeline(doc, tt.fetcher, render.New(), logging.NewWriterLogger("pipeline", &syncBuffer{}),
				Options{Timeout: 30 * time.Millisecond})
			_, err = p.RunOnce(context.Background())
			require.Error(t, err)
			tt.check(t, err)

			after, err := doc.HTML()
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestPipeline_SupersededRunDoesNotRender(t *testing.T) {
	doc := newLibraryDoc(t, libraryPage, libraryURL)
	p := newTestPipeline(doc, &fakeFetcher{groups: testGroups()}, &syncBuffer{})

	stale := p.Begin()
	p.Begin()

	_, err := p.Run(context.Background(), stale)
	assert.ErrorIs(t, err, ErrSuperseded)
	assert.Contains(t, tableRows(t, doc).Text(), "placeholder")
}

func TestPipeline_WaitsForTable(t *testing.T) {
	src := `<html><head>` + dataProviders + `</head><body><div id="root"></div></body></html>`
	doc := newLibraryDoc(t, src, libraryURL)
	p := newTestPipeline(doc, &fakeFetcher{groups: testGroups()}, &syncBuffer{})

	go func() {
		time.Sleep(20 * time.Millisecond)
		doc.Mutate(func(d *goquery.Document) {
			d.Find("#root").AppendHtml(`<table><tbody class="relative"></tbody></table>`)
		})
	}()

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Groups)
	assert.Equal(t, 3, tableRows(t, doc).Length())
}

func TestPipeline_LeavingViewDuringFetchDoesNotRender(t *testing.T) {
	logs := &syncBuffer{}
	doc := newLibraryDoc(t, libraryPage, libraryURL)
	fetcher := newGatedFetcher()
	p := newTestPipeline(doc, fetcher, logs)

	before, err := doc.HTML()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.RunOnce(context.Background())
		done <- err
	}()

	fetcher.waitStarted(t)
	doc.Navigate("https://dev.azure.com/org1/proj1/_library?itemType=SecureFiles")
	close(fetcher.release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrWrongView)
	case <-time.After(2 * time.Second):
		t.Fatal("run never finished")
	}

	after, err := doc.HTML()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Contains(t, logs.String(), "Left the Variable Groups view, discarding result.")
}
