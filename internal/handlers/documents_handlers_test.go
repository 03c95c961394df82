package handlers

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/projectmanager/backend/internal/models"
)

func uploadDocument(t *testing.T, env *testEnv, token string, fields map[string]string, filename, contentType string, payload []byte) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		_ = writer.WriteField(key, value)
	}
	if filename != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("failed creating multipart file part: %v", err)
		}
		if _, err := part.Write(payload); err != nil {
			t.Fatalf("failed writing multipart payload: %v", err)
		}
	}
	writer.Close()

	return performRequest(t, env.app, http.MethodPost, "/api/documents", body, map[string]string{
		"Content-Type":  writer.FormDataContentType(),
		"Authorization": "Bearer " + token,
	})
}

func TestDocumentsEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	_, adminToken := createTestUser(t, env, "documents-admin", "password123", models.RoleUser, models.RoleAdmin)
	_, memberToken := createTestUser(t, env, "documents-member", "password123", models.RoleUser)

	project := models.Project{Title: "Document Host"}
	if err := env.db.Create(&project).Error; err != nil {
		t.Fatalf("failed seeding project: %v", err)
	}

	var documentID string
	var storagePath string

	t.Run("POST /api/documents uploads and links to the project", func(t *testing.T) {
		resp := uploadDocument(t, env, adminToken, map[string]string{
			"project":     project.ID.String(),
			"description": "floor plan",
		}, "plan.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		result := body["result"].(map[string]any)
		documentID = result["id"].(string)
		storagePath = result["storagePath"].(string)
		if result["mimeType"] != "application/pdf" {
			t.Fatalf("expected stored mime type application/pdf, got %v", result["mimeType"])
		}
		if !env.store.has(storagePath) {
			t.Fatalf("expected object %q in storage", storagePath)
		}

		var loaded models.Project
		if err := env.db.Preload("Documents").First(&loaded, "id = ?", project.ID).Error; err != nil {
			t.Fatalf("failed reloading project: %v", err)
		}
		if len(loaded.Documents) != 1 {
			t.Fatalf("expected document linked to project, got %d links", len(loaded.Documents))
		}
	})

	t.Run("POST /api/documents missing project is rejected", func(t *testing.T) {
		resp := uploadDocument(t, env, adminToken, nil, "plan.pdf", "application/pdf", []byte("x"))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "project is required")
	})

	t.Run("POST /api/documents unknown project is not found", func(t *testing.T) {
		resp := uploadDocument(t, env, adminToken, map[string]string{
			"project": "00000000-0000-0000-0000-000000000000",
		}, "plan.pdf", "application/pdf", []byte("x"))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "project not found")
	})

	t.Run("POST /api/documents missing file is rejected", func(t *testing.T) {
		resp := uploadDocument(t, env, adminToken, map[string]string{
			"project": project.ID.String(),
		}, "", "", nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "file is required")
	})

	t.Run("POST /api/documents disallowed mime type is rejected", func(t *testing.T) {
		resp := uploadDocument(t, env, adminToken, map[string]string{
			"project": project.ID.String(),
		}, "tool.exe", "application/x-msdownload", []byte("MZ"))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "file type not allowed")
	})

	t.Run("POST /api/documents non-admin is unauthorized", func(t *testing.T) {
		resp := uploadDocument(t, env, memberToken, map[string]string{
			"project": project.ID.String(),
		}, "plan.pdf", "application/pdf", []byte("x"))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "unauthorized")
	})

	t.Run("GET /api/documents filters by description", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/documents/?description=floor", nil, authHeaders(memberToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		documents, _ := body["documents"].([]any)
		if len(documents) != 1 {
			t.Fatalf("expected 1 document, got %d", len(documents))
		}
	})

	t.Run("GET /api/documents filter with no matches is not found", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/documents/?description=zzz", nil, authHeaders(memberToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "no documents found")
	})

	t.Run("GET /api/documents/project/:id lists project documents", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, fmt.Sprintf("/api/documents/project/%s", project.ID), nil, authHeaders(memberToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		documents, _ := body["documents"].([]any)
		if len(documents) != 1 {
			t.Fatalf("expected 1 document, got %d", len(documents))
		}
	})

	t.Run("GET /api/documents/file/:id streams with the stored mime type", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, fmt.Sprintf("/api/documents/file/%s", documentID), nil, authHeaders(memberToken))
		assertStatus(t, resp, http.StatusOK)
		if got := resp.Header.Get("Content-Type"); got != "application/pdf" {
			t.Fatalf("expected Content-Type application/pdf, got %q", got)
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("failed reading streamed payload: %v", err)
		}
		if string(payload) != "%PDF-1.4 fake" {
			t.Fatalf("unexpected streamed payload %q", string(payload))
		}
	})

	t.Run("PUT /api/documents/:id updates description and accepted", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, fmt.Sprintf("/api/documents/%s", documentID), map[string]any{
			"description": "approved floor plan",
			"accepted":    true,
		}, authHeaders(memberToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		result := body["result"].(map[string]any)
		if result["accepted"] != true {
			t.Fatalf("expected accepted=true, got %v", result["accepted"])
		}
	})

	t.Run("DELETE /api/documents/:id removes object and project link", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, fmt.Sprintf("/api/documents/%s", documentID), nil, authHeaders(memberToken))
		assertStatus(t, resp, http.StatusOK)

		if env.store.has(storagePath) {
			t.Fatalf("expected object %q removed from storage", storagePath)
		}

		var loaded models.Project
		if err := env.db.Preload("Documents").First(&loaded, "id = ?", project.ID).Error; err != nil {
			t.Fatalf("failed reloading project: %v", err)
		}
		if len(loaded.Documents) != 0 {
			t.Fatalf("expected no linked documents, got %d", len(loaded.Documents))
		}
	})
}
