package decisions

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "atti/pkg/domain-errors"
	"atti/pkg/testutil"
)

func TestLoadBundledCatalogue(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	require.Len(t, c.Decisions, 1)

	d := c.Decisions[0]
	assert.Equal(t, "verifica-competenza", d.ID)
	assert.Equal(t, "verifica-competenza.dmn", d.Name)
	assert.Equal(t, 3, d.RuleCount)
	assert.Equal(t, []string{"Livello Dirigente", "Importo"}, d.Inputs)

	limits := map[string]string{}
	for _, rule := range d.Rules {
		limits[rule["Livello Dirigente"]] = rule["Importo"]
	}
	assert.Equal(t, map[string]string{"D1": "<= 5000", "D2": "<= 25000", "D3": "<= 100000"}, limits)
}

func TestParseRejectsMalformedTables(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid yaml", "decisions: [unterminated"},
		{"missing id", "decisions:\n  - nome: x.dmn\n"},
		{"duplicate id", "decisions:\n  - id: a\n  - id: a\n"},
		{"rule missing a column", "decisions:\n  - id: a\n    inputs: [Importo]\n    outputs: [Competente]\n    regole:\n      - Importo: \"<= 1\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	r := chi.NewRouter()
	NewHandler(c, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestHandler(t *testing.T) {
	router := newTestRouter(t)

	testutil.Given(t, "an anonymous caller", func(t *testing.T) {
		testutil.When(t, "listing decisions", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/decisions"))
			testutil.Then(t, "the catalogue is returned", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				var body []map[string]any
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				require.Len(t, body, 1)
				assert.Equal(t, "verifica-competenza", body[0]["id"])
				assert.EqualValues(t, 3, body[0]["numeroRegole"])
			})
		})

		testutil.When(t, "fetching an unknown decision", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/decisions/nope"))
			testutil.Then(t, "it is not found", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
			})
		})
	})
}
