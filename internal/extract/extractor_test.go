package extract

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/boe-sumario-crawler/internal/fetcher"
	"github.com/JakeFAU/boe-sumario-crawler/internal/gazette"
)

// MockFetcher is a mock implementation of the fetcher.Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) (fetcher.Response, error) {
	args := m.Called(ctx, rawURL, headers)
	return args.Get(0).(fetcher.Response), args.Error(1)
}

const (
	xmlURL  = "https://www.boe.es/diario_boe/xml.php?id=BOE-A-2024-7"
	htmlURL = "https://www.boe.es/diario_boe/txt.php?id=BOE-A-2024-7"
)

func testItem() gazette.Item {
	return gazette.Item{
		ID:      "BOE-A-2024-7",
		Title:   "Resolución de prueba",
		XMLURL:  xmlURL,
		HTMLURL: htmlURL,
	}
}

func ok(body string) fetcher.Response {
	return fetcher.Response{StatusCode: http.StatusOK, Body: []byte(body)}
}

func TestExtract_StructuredFirstSkipsPage(t *testing.T) {
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, xmlURL, mock.Anything).
		Return(ok(`<documento><texto><p>Texto XML.</p></texto></documento>`), nil)

	res, err := New(f, nil).Extract(context.Background(), testItem())

	require.NoError(t, err)
	assert.Equal(t, "Texto XML.", res.Text)
	assert.Equal(t, SourceXML, res.Source)
	assert.Equal(t, xmlURL, res.URL)
	f.AssertNumberOfCalls(t, "Fetch", 1)
	f.AssertNotCalled(t, "Fetch", mock.Anything, htmlURL, mock.Anything)
}

func TestExtract_FallsBackToPageWhenStructuredEmpty(t *testing.T) {
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, xmlURL, mock.Anything).
		Return(ok(`<documento><metadatos/></documento>`), nil)
	f.On("Fetch", mock.Anything, htmlURL, mock.Anything).
		Return(ok(`<html><body><div id="text"><p>Texto HTML.</p></div></body></html>`), nil)

	res, err := New(f, nil).Extract(context.Background(), testItem())

	require.NoError(t, err)
	assert.Equal(t, "Texto HTML.", res.Text)
	assert.Equal(t, SourceHTML, res.Source)
	f.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestExtract_FallsBackWhenStructuredUnavailable(t *testing.T) {
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, xmlURL, mock.Anything).
		Return(fetcher.Response{}, fetcher.ErrUnavailable)
	f.On("Fetch", mock.Anything, htmlURL, mock.Anything).
		Return(ok(`<html><body><p>Texto HTML.</p></body></html>`), nil)

	res, err := New(f, nil).Extract(context.Background(), testItem())

	require.NoError(t, err)
	assert.Equal(t, SourceHTML, res.Source)
}

func TestExtract_ParseFailureLogsWarningAndFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, xmlURL, mock.Anything).
		Return(ok(`<documento><texto><p>roto`), nil)
	f.On("Fetch", mock.Anything, htmlURL, mock.Anything).
		Return(ok(`<html><body><p>Rescatado.</p></body></html>`), nil)

	res, err := New(f, zap.New(core)).Extract(context.Background(), testItem())

	require.NoError(t, err)
	assert.Equal(t, "Rescatado.", res.Text)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, xmlURL, warnings[0].ContextMap()["url"])
}

func TestExtract_SkipsMalformedLocators(t *testing.T) {
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, htmlURL, mock.Anything).
		Return(ok(`<html><body><p>Solo página.</p></body></html>`), nil)

	it := testItem()
	it.XMLURL = "/diario_boe/xml.php?id=BOE-A-2024-7"

	res, err := New(f, nil).Extract(context.Background(), it)

	require.NoError(t, err)
	assert.Equal(t, "Solo página.", res.Text)
	f.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestExtract_NoTextFromAnySource(t *testing.T) {
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, xmlURL, mock.Anything).
		Return(fetcher.Response{}, fetcher.ErrNotFound)
	f.On("Fetch", mock.Anything, htmlURL, mock.Anything).
		Return(ok(`<html><body><nav><p>Menú</p></nav></body></html>`), nil)

	_, err := New(f, nil).Extract(context.Background(), testItem())

	require.ErrorIs(t, err, ErrNoText)
	f.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestExtract_NoLocators(t *testing.T) {
	f := new(MockFetcher)

	_, err := New(f, nil).Extract(context.Background(), gazette.Item{ID: "BOE-A-2024-9"})

	require.ErrorIs(t, err, ErrNoText)
	f.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtract_CustomStrategyOrder(t *testing.T) {
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, htmlURL, mock.Anything).
		Return(ok(`<html><body><p>Primero HTML.</p></body></html>`), nil)

	defaults := DefaultStrategies("ua/1.0")
	e := New(f, nil, defaults[1], defaults[0])

	res, err := e.Extract(context.Background(), testItem())

	require.NoError(t, err)
	assert.Equal(t, SourceHTML, res.Source)
	f.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestDefaultStrategiesHeaders(t *testing.T) {
	t.Parallel()

	s := DefaultStrategies("boe-sumario/1.0")
	require.Len(t, s, 2)
	assert.Equal(t, "application/xml", s[0].Headers.Get("Accept"))
	assert.Equal(t, "boe-sumario/1.0", s[0].Headers.Get("User-Agent"))
	assert.Empty(t, s[1].Headers.Get("Accept"))
	assert.Equal(t, "boe-sumario/1.0", s[1].Headers.Get("User-Agent"))
}

func TestExtract_ParseErrorFromCustomStrategy(t *testing.T) {
	f := new(MockFetcher)
	f.On("Fetch", mock.Anything, xmlURL, mock.Anything).Return(ok("x"), nil)

	failing := Strategy{
		Name: "custom",
		URL:  func(it gazette.Item) string { return it.XMLURL },
		Parse: func([]byte, gazette.Item) (string, error) {
			return "", errors.New("boom")
		},
	}
	_, err := New(f, nil, failing).Extract(context.Background(), testItem())
	require.ErrorIs(t, err, ErrNoText)
}
