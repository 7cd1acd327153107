// Package rag holds the clients for the retrieval collaborators: the hosted
// vector index documents are chunked into and the chat completion provider
// that answers over retrieved context.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const pineconeAPIVersion = "2025-01"

// Record is one chunk of an ingested document together with the metadata
// the index embeds and stores alongside it.
type Record struct {
	ID          string `json:"_id"`
	Text        string `json:"text"`
	DocumentID  string `json:"documentId"`
	Title       string `json:"title"`
	CourseID    string `json:"courseId"`
	CourseTitle string `json:"courseTitle"`
}

// Hit is one search result returned by the index.
type Hit struct {
	ID         string  `json:"id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
}

// VectorIndex is the part of the hosted index this service relies on.
// Namespaces isolate tenants; every call is scoped to one.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, records []Record) error
	Search(ctx context.Context, namespace, query string, topK int, courseID string) ([]Hit, error)
	List(ctx context.Context, namespace, prefix string) ([]string, error)
	Delete(ctx context.Context, namespace string, ids []string) error
}

// PineconeIndex talks to a Pinecone serverless index with integrated
// embedding over its REST API.
type PineconeIndex struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

func NewPineconeIndex(host, apiKey string) *PineconeIndex {
	return &PineconeIndex{
		host:   host,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upsert writes records into the namespace as NDJSON. The index embeds the
// text field server side.
func (p *PineconeIndex) Upsert(ctx context.Context, namespace string, records []Record) error {

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding record %s: %w", rec.ID, err)
		}
	}

	endpoint := fmt.Sprintf("%s/records/namespaces/%s/upsert", p.host, url.PathEscape(namespace))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	p.setAuthHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("upsert returned status %d", resp.StatusCode)
	}
	return nil
}

type searchRequest struct {
	Query  searchQuery `json:"query"`
	Fields []string    `json:"fields,omitempty"`
}

type searchQuery struct {
	TopK   int               `json:"top_k"`
	Inputs map[string]string `json:"inputs"`
	Filter map[string]string `json:"filter,omitempty"`
}

type searchResponse struct {
	Result struct {
		Hits []struct {
			ID     string            `json:"_id"`
			Score  float64           `json:"_score"`
			Fields map[string]string `json:"fields"`
		} `json:"hits"`
	} `json:"result"`
}

// Search embeds the query server side and returns the topK nearest chunks.
// A non-empty courseID restricts results to that course.
func (p *PineconeIndex) Search(ctx context.Context, namespace, query string, topK int, courseID string) ([]Hit, error) {

	sr := searchRequest{
		Query: searchQuery{
			TopK:   topK,
			Inputs: map[string]string{"text": query},
		},
		Fields: []string{"text", "documentId", "title"},
	}
	if courseID != "" {
		sr.Query.Filter = map[string]string{"courseId": courseID}
	}

	body, err := json.Marshal(sr)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/records/namespaces/%s/search", p.host, url.PathEscape(namespace))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	p.setAuthHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Result.Hits))
	for _, h := range parsed.Result.Hits {
		hits = append(hits, Hit{
			ID:         h.ID,
			Score:      h.Score,
			Text:       h.Fields["text"],
			DocumentID: h.Fields["documentId"],
			Title:      h.Fields["title"],
		})
	}
	return hits, nil
}

type listResponse struct {
	Vectors []struct {
		ID string `json:"id"`
	} `json:"vectors"`
	Pagination struct {
		Next string `json:"next"`
	} `json:"pagination"`
}

// List returns the ids of every vector in the namespace whose id starts
// with prefix, following pagination tokens until exhausted.
func (p *PineconeIndex) List(ctx context.Context, namespace, prefix string) ([]string, error) {

	var ids []string
	token := ""

	for {
		q := url.Values{}
		q.Set("namespace", namespace)
		q.Set("prefix", prefix)
		if token != "" {
			q.Set("paginationToken", token)
		}

		endpoint := fmt.Sprintf("%s/vectors/list?%s", p.host, q.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		p.setAuthHeaders(req)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list request failed: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("list returned status %d", resp.StatusCode)
		}

		var parsed listResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decoding list response: %w", err)
		}

		for _, v := range parsed.Vectors {
			ids = append(ids, v.ID)
		}

		if parsed.Pagination.Next == "" {
			return ids, nil
		}
		token = parsed.Pagination.Next
	}
}

// Delete removes the given vector ids from the namespace.
func (p *PineconeIndex) Delete(ctx context.Context, namespace string, ids []string) error {

	body, err := json.Marshal(map[string]any{
		"ids":       ids,
		"namespace": namespace,
	})
	if err != nil {
		return err
	}

	endpoint := p.host + "/vectors/delete"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	p.setAuthHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *PineconeIndex) setAuthHeaders(req *http.Request) {
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("X-Pinecone-API-Version", pineconeAPIVersion)
}
