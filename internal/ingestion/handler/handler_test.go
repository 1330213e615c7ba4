package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/search-server/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/search-server/pkg/kafka"
)

type fakeProducer struct {
	events []kafka.Event
	err    error
}

func (p *fakeProducer) Publish(_ context.Context, event kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakeProducer) PublishBatch(_ context.Context, events []kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func serve(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestIngest(t *testing.T) {
	producer := &fakeProducer{}
	h := New(publisher.New(producer))

	rec := serve(h.Ingest, `{"op":"add","id":12,"text":"white cat","status":"BANNED","ratings":[1]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ingestion.IngestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.DocumentID != 12 || resp.Op != ingestion.OpAdd {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(producer.events) != 1 || producer.events[0].Key != "12" {
		t.Fatalf("expected one event keyed 12, got %+v", producer.events)
	}
}

func TestIngestRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"op":`, http.StatusBadRequest},
		{"unknown status", `{"op":"add","id":1,"text":"a","status":"GONE"}`, http.StatusBadRequest},
		{"missing text", `{"op":"add","id":1}`, http.StatusBadRequest},
		{"negative id", `{"op":"remove","id":-1}`, http.StatusBadRequest},
		{"bad policy", `{"op":"remove","id":1,"policy":"fast"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			producer := &fakeProducer{}
			rec := serve(New(publisher.New(producer)).Ingest, tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
			if len(producer.events) != 0 {
				t.Errorf("rejected event was published")
			}
		})
	}
}

func TestIngestValidationFields(t *testing.T) {
	rec := serve(New(publisher.New(&fakeProducer{})).Ingest, `{"op":"add","id":-4}`)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if _, ok := body.Fields["id"]; !ok {
		t.Errorf("expected id field error, got %v", body.Fields)
	}
	if _, ok := body.Fields["text"]; !ok {
		t.Errorf("expected text field error, got %v", body.Fields)
	}
}

func TestIngestProducerFailure(t *testing.T) {
	h := New(publisher.New(&fakeProducer{err: errors.New("broker down")}))
	rec := serve(h.Ingest, `{"op":"remove","id":3}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestIngestBatch(t *testing.T) {
	producer := &fakeProducer{}
	h := New(publisher.New(producer))

	rec := serve(h.IngestBatch, `[{"op":"add","id":1,"text":"cat"},{"op":"remove","id":1,"policy":"par"}]`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(producer.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(producer.events))
	}

	rec = serve(h.IngestBatch, `[{"op":"add","id":2,"text":"dog"},{"op":"add","id":3}]`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if len(producer.events) != 2 {
		t.Errorf("invalid batch published %d events", len(producer.events)-2)
	}
}
