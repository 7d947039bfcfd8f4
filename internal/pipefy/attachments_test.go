package pipefy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAttachments_JSONArray(t *testing.T) {
	fields := []CardField{
		{Name: "Documentos", Value: `["https://files.example.com/a.pdf","not-a-url"]`},
	}

	attachments := ResolveAttachments(fields)

	require.Len(t, attachments, 1)
	assert.Equal(t, "a.pdf", attachments[0].Name)
	assert.Equal(t, "https://files.example.com/a.pdf", attachments[0].SourceURL)
}

func TestResolveAttachments_MultipleURLs(t *testing.T) {
	fields := []CardField{
		{Name: "Anexos", Value: `["https://x/contrato.pdf","https://x/rg.png"]`},
	}

	attachments := ResolveAttachments(fields)

	require.Len(t, attachments, 2)
	assert.Equal(t, "contrato.pdf", attachments[0].Name)
	assert.Equal(t, "rg.png", attachments[1].Name)
}

func TestResolveAttachments_PlainURLValue(t *testing.T) {
	fields := []CardField{
		{Name: "Comprovante", Value: "https://x/docs/comprovante.jpg?token=abc"},
	}

	attachments := ResolveAttachments(fields)

	require.Len(t, attachments, 1)
	assert.Equal(t, "comprovante.jpg", attachments[0].Name)
	assert.Equal(t, "https://x/docs/comprovante.jpg?token=abc", attachments[0].SourceURL)
}

func TestResolveAttachments_QueryStringStripped(t *testing.T) {
	fields := []CardField{
		{Name: "F", Value: `["https://x/a.pdf?sig=123&exp=456"]`},
	}

	attachments := ResolveAttachments(fields)

	require.Len(t, attachments, 1)
	assert.Equal(t, "a.pdf", attachments[0].Name)
}

func TestResolveAttachments_EmptySegmentFallsBackToFieldName(t *testing.T) {
	fields := []CardField{
		{Name: "Contrato Social", Value: `["https://x/files/"]`},
	}

	attachments := ResolveAttachments(fields)

	require.Len(t, attachments, 1)
	assert.Equal(t, "Contrato Social.pdf", attachments[0].Name)
}

func TestResolveAttachments_IgnoresNonURLValues(t *testing.T) {
	fields := []CardField{
		{Name: "Nome", Value: "Empresa XYZ Ltda"},
		{Name: "CNPJ", Value: "11.222.333/0001-81"},
		{Name: "Vazio", Value: ""},
		{Name: "Numeros", Value: `[1,2,3]`},
	}

	assert.Empty(t, ResolveAttachments(fields))
}

func TestResolveAttachments_NoFields(t *testing.T) {
	assert.Empty(t, ResolveAttachments(nil))
}

func TestCardAttachments_APIErrorYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Config{URL: server.URL, Token: "t", Timeout: time.Second}, nil)

	assert.Empty(t, client.CardAttachments(context.Background(), "123"))
}

func TestCardAttachments_MissingCardYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"card":null}}`))
	}))
	defer server.Close()

	client := New(Config{URL: server.URL, Token: "t", Timeout: time.Second}, nil)

	assert.Empty(t, client.CardAttachments(context.Background(), "123"))
}

func TestCardAttachments_ResolvesFromAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"card":{"id":"123","fields":[
			{"field":{"id":"f1","label":"Anexos","type":"attachment"},"name":"Anexos","value":"[\"https://x/a.pdf\"]"}
		]}}}`))
	}))
	defer server.Close()

	client := New(Config{URL: server.URL, Token: "t", Timeout: time.Second}, nil)

	attachments := client.CardAttachments(context.Background(), "123")
	require.Len(t, attachments, 1)
	assert.Equal(t, "a.pdf", attachments[0].Name)
}
