package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEnvelopeDecoding(t *testing.T) {
	t.Run("UnwrapsDataField", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]any{"id": 7},
			})
		}))
		defer server.Close()

		var out struct {
			ID int64 `json:"id"`
		}
		client := New(server.URL)
		if err := client.Get(context.Background(), "/thing", &out); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if out.ID != 7 {
			t.Errorf("id = %d, want 7", out.ID)
		}
	})

	t.Run("FallsBackToRawBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"id": 9})
		}))
		defer server.Close()

		var out struct {
			ID int64 `json:"id"`
		}
		client := New(server.URL)
		if err := client.Get(context.Background(), "/thing", &out); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if out.ID != 9 {
			t.Errorf("id = %d, want 9", out.ID)
		}
	})
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"PrefersErrorField", `{"success":false,"message":"login failed","error":"invalid phone or password"}`, "invalid phone or password"},
		{"FallsBackToMessage", `{"success":false,"message":"login failed"}`, "login failed"},
		{"GenericWhenBodyUnusable", `<html>bad gateway</html>`, "request failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			err := New(server.URL).Post(context.Background(), "/x", map[string]string{}, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			apiErr, ok := err.(*Error)
			if !ok {
				t.Fatalf("error type = %T", err)
			}
			if apiErr.Status != http.StatusBadRequest {
				t.Errorf("status = %d", apiErr.Status)
			}
			if !strings.Contains(apiErr.Message, tc.want) {
				t.Errorf("message = %q, want substring %q", apiErr.Message, tc.want)
			}
		})
	}

	t.Run("TransportFailure", func(t *testing.T) {
		// Closed server: connection refused.
		server := httptest.NewServer(http.NewServeMux())
		server.Close()

		err := New(server.URL).Get(context.Background(), "/x", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		apiErr := err.(*Error)
		if apiErr.Status != 0 {
			t.Errorf("status = %d, want 0", apiErr.Status)
		}
		if apiErr.Message == "" {
			t.Error("no human-readable message for transport failure")
		}
	})
}

func TestBearerToken(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	t.Run("AttachedWhenPresent", func(t *testing.T) {
		client := New(server.URL, WithTokenSource(func() string { return "tok-1" }))
		client.Get(context.Background(), "/x", nil)
		if got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
	})

	t.Run("OmittedWhenAbsent", func(t *testing.T) {
		client := New(server.URL, WithTokenSource(func() string { return "" }))
		client.Get(context.Background(), "/x", nil)
		if got != "" {
			t.Errorf("Authorization = %q, want empty", got)
		}
	})
}

func TestContentTypes(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Content-Type")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()
	client := New(server.URL)

	t.Run("JSONBody", func(t *testing.T) {
		client.Post(context.Background(), "/x", map[string]string{"a": "b"}, nil)
		if got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
	})

	t.Run("MultipartKeepsBoundary", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, _ := mw.CreateFormFile("file", "avatar.png")
		fw.Write([]byte("png-bytes"))
		mw.Close()

		client.PostMultipart(context.Background(), "/upload", mw.FormDataContentType(), &buf, nil)
		if !strings.HasPrefix(got, "multipart/form-data; boundary=") {
			t.Errorf("Content-Type = %q", got)
		}
	})
}

func TestUnauthorizedHook(t *testing.T) {
	authed := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" || !authed {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":"invalid or expired token"}`))
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	token := "tok"
	var fired int
	client := New(server.URL,
		WithTokenSource(func() string { return token }),
		WithOnUnauthorized(func() { fired++; token = "" }),
	)

	// Healthy call arms the hook.
	if err := client.Get(context.Background(), "/x", nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// The token expires; repeated 401s fire the hook exactly once.
	authed = false
	token = "tok"
	for i := 0; i < 3; i++ {
		err := client.Get(context.Background(), "/x", nil)
		if !IsUnauthorized(err) {
			t.Fatalf("call %d: err = %v, want 401", i, err)
		}
		token = ""
	}
	if fired != 1 {
		t.Errorf("hook fired %d times, want 1", fired)
	}

	// A fresh login re-arms it.
	authed = true
	token = "tok2"
	client.Get(context.Background(), "/x", nil)
	authed = false
	client.Get(context.Background(), "/x", nil)
	if fired != 2 {
		t.Errorf("hook fired %d times after re-arm, want 2", fired)
	}
}
